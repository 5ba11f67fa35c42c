package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
)

// MenuStore is the catalog persistence surface menu handlers need.
type MenuStore interface {
	CreateMenuItem(ctx context.Context, item *database.MenuItem) error
	GetMenuItem(ctx context.Context, id uuid.UUID) (*database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, item *database.MenuItem) error
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
	ListMenuItems(ctx context.Context, filter postgres.MenuFilter) ([]database.MenuItem, error)
}

// MenuHandler handles menu item CRUD endpoints.
type MenuHandler struct {
	menu MenuStore
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(menu MenuStore) *MenuHandler {
	return &MenuHandler{menu: menu}
}

type menuItemRequest struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	IsAvailable *bool    `json:"is_available"`
	Aliases     []string `json:"aliases"`
}

func (req *menuItemRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Price < 0 {
		return "price must not be negative"
	}
	for i, a := range req.Aliases {
		req.Aliases[i] = strings.TrimSpace(a)
	}
	return ""
}

type menuItemView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	IsAvailable bool     `json:"is_available"`
	Aliases     []string `json:"aliases"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func newMenuItemView(item *database.MenuItem) menuItemView {
	aliases := item.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return menuItemView{
		ID:          item.ID.String(),
		Name:        item.Name,
		Price:       item.Price,
		Category:    item.Category,
		Description: item.Description,
		IsAvailable: item.IsAvailable,
		Aliases:     aliases,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now()
	item := &database.MenuItem{
		ID:          uuid.New(),
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Description: req.Description,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
		Aliases:     req.Aliases,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.menu.CreateMenuItem(r.Context(), item); err != nil {
		if errors.Is(err, postgres.ErrDuplicate) {
			respondError(w, http.StatusConflict, "menu item with this name already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create menu item")
		return
	}

	respondJSON(w, http.StatusCreated, newMenuItemView(item))
}

// Get handles GET /api/menu/{id}.
func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	item, err := h.menu.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "menu item not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get menu item")
		return
	}

	respondJSON(w, http.StatusOK, newMenuItemView(item))
}

// List handles GET /api/menu with optional category and available filters.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := postgres.MenuFilter{
		Category: r.URL.Query().Get("category"),
	}
	switch r.URL.Query().Get("available") {
	case "true":
		v := true
		filter.IsAvailable = &v
	case "false":
		v := false
		filter.IsAvailable = &v
	}

	items, err := h.menu.ListMenuItems(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list menu items")
		return
	}

	views := make([]menuItemView, 0, len(items))
	for i := range items {
		views = append(views, newMenuItemView(&items[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": views,
		"count": len(views),
	})
}

// Update handles PUT /api/menu/{id}. All mutable fields are replaced.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.menu.GetMenuItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "menu item not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get menu item")
		return
	}

	item.Name = req.Name
	item.Price = req.Price
	item.Category = req.Category
	item.Description = req.Description
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	item.Aliases = req.Aliases

	if err := h.menu.UpdateMenuItem(r.Context(), item); err != nil {
		if errors.Is(err, postgres.ErrDuplicate) {
			respondError(w, http.StatusConflict, "menu item with this name already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update menu item")
		return
	}

	respondJSON(w, http.StatusOK, newMenuItemView(item))
}

// Delete handles DELETE /api/menu/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.menu.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "menu item not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete menu item")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
