package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
)

// DailyMenuStore is the daily menu persistence surface the handlers need.
type DailyMenuStore interface {
	UpsertDailyMenu(ctx context.Context, menu *database.DailyMenu) error
	GetDailyMenu(ctx context.Context, date time.Time) (*database.DailyMenu, error)
	ListDailyMenus(ctx context.Context, from, to time.Time) ([]database.DailyMenu, error)
	DeleteDailyMenu(ctx context.Context, date time.Time) error
}

// MenuItemGetter resolves daily menu item IDs to full items for display.
type MenuItemGetter interface {
	GetMenuItem(ctx context.Context, id uuid.UUID) (*database.MenuItem, error)
}

// DailyMenuHandler handles per-date menu endpoints.
type DailyMenuHandler struct {
	daily DailyMenuStore
	menu  MenuItemGetter
}

// NewDailyMenuHandler creates a new daily menu handler.
func NewDailyMenuHandler(daily DailyMenuStore, menu MenuItemGetter) *DailyMenuHandler {
	return &DailyMenuHandler{daily: daily, menu: menu}
}

type setDailyMenuRequest struct {
	Date    string   `json:"date"`
	ItemIDs []string `json:"item_ids"`
	Notes   string   `json:"notes"`
}

type dailyMenuView struct {
	ID    string         `json:"id"`
	Date  string         `json:"date"`
	Items []menuItemView `json:"items"`
	Notes string         `json:"notes"`
}

// resolveItems loads the full items behind a daily menu, skipping IDs whose
// items were deleted since the menu was set.
func (h *DailyMenuHandler) resolveItems(ctx context.Context, menu *database.DailyMenu) []menuItemView {
	items := make([]menuItemView, 0, len(menu.ItemIDs))
	for _, id := range menu.ItemIDs {
		item, err := h.menu.GetMenuItem(ctx, id)
		if err != nil {
			continue
		}
		items = append(items, newMenuItemView(item))
	}
	return items
}

func (h *DailyMenuHandler) view(ctx context.Context, menu *database.DailyMenu) dailyMenuView {
	return dailyMenuView{
		ID:    menu.ID.String(),
		Date:  menu.MenuDate.Format("2006-01-02"),
		Items: h.resolveItems(ctx, menu),
		Notes: menu.Notes,
	}
}

// Set handles PUT /api/daily-menu. Setting a date that already has a menu
// replaces it.
func (h *DailyMenuHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setDailyMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	itemIDs := make([]uuid.UUID, 0, len(req.ItemIDs))
	for _, s := range req.ItemIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid item id: "+sanitizeForLog(s))
			return
		}
		if _, err := h.menu.GetMenuItem(r.Context(), id); err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				respondError(w, http.StatusBadRequest, "unknown item id: "+id.String())
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to verify menu items")
			return
		}
		itemIDs = append(itemIDs, id)
	}

	menu := &database.DailyMenu{
		ID:        uuid.New(),
		MenuDate:  date,
		ItemIDs:   itemIDs,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
	}

	if err := h.daily.UpsertDailyMenu(r.Context(), menu); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to set daily menu")
		return
	}

	respondJSON(w, http.StatusOK, h.view(r.Context(), menu))
}

// Get handles GET /api/daily-menu/{date}. The date "today" is accepted as a
// shortcut.
func (h *DailyMenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	var date time.Time
	var err error
	if raw == "today" {
		now := time.Now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		date, err = parseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	menu, err := h.daily.GetDailyMenu(r.Context(), date)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no menu set for this date")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get daily menu")
		return
	}

	respondJSON(w, http.StatusOK, h.view(r.Context(), menu))
}

// List handles GET /api/daily-menu with a from/to date range, defaulting to
// the coming week.
func (h *DailyMenuHandler) List(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = parseDate(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = parseDate(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	menus, err := h.daily.ListDailyMenus(r.Context(), from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list daily menus")
		return
	}

	views := make([]dailyMenuView, 0, len(menus))
	for i := range menus {
		views = append(views, h.view(r.Context(), &menus[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"menus": views})
}

// Delete handles DELETE /api/daily-menu/{date}.
func (h *DailyMenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.daily.DeleteDailyMenu(r.Context(), date); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no menu set for this date")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete daily menu")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
