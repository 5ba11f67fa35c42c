package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
)

// WeeklyMenuStore is the recurring menu persistence surface the handlers need.
type WeeklyMenuStore interface {
	UpsertWeeklyMenu(ctx context.Context, menu *database.WeeklyMenu) error
	GetWeeklyMenu(ctx context.Context, dayOfWeek int) (*database.WeeklyMenu, error)
	ListWeeklyMenus(ctx context.Context) ([]database.WeeklyMenu, error)
	DeleteWeeklyMenu(ctx context.Context, dayOfWeek int) error
}

// WeeklyMenuHandler handles the recurring per-weekday menu endpoints.
type WeeklyMenuHandler struct {
	weekly WeeklyMenuStore
	menu   MenuItemGetter
}

// NewWeeklyMenuHandler creates a new weekly menu handler.
func NewWeeklyMenuHandler(weekly WeeklyMenuStore, menu MenuItemGetter) *WeeklyMenuHandler {
	return &WeeklyMenuHandler{weekly: weekly, menu: menu}
}

var dayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

type setWeeklyMenuRequest struct {
	DayOfWeek *int     `json:"day_of_week"`
	Breakfast []string `json:"breakfast"`
	Lunch     []string `json:"lunch"`
	Dinner    []string `json:"dinner"`
	Notes     string   `json:"notes"`
}

type weeklyMenuView struct {
	ID        string         `json:"id"`
	DayOfWeek int            `json:"day_of_week"`
	DayName   string         `json:"day_name"`
	Breakfast []menuItemView `json:"breakfast"`
	Lunch     []menuItemView `json:"lunch"`
	Dinner    []menuItemView `json:"dinner"`
	Notes     string         `json:"notes"`
}

// resolveSlot loads the full items behind one meal slot, skipping IDs whose
// items were deleted since the menu was set.
func (h *WeeklyMenuHandler) resolveSlot(ctx context.Context, ids []uuid.UUID) []menuItemView {
	items := make([]menuItemView, 0, len(ids))
	for _, id := range ids {
		item, err := h.menu.GetMenuItem(ctx, id)
		if err != nil {
			continue
		}
		items = append(items, newMenuItemView(item))
	}
	return items
}

func (h *WeeklyMenuHandler) view(ctx context.Context, menu *database.WeeklyMenu) weeklyMenuView {
	return weeklyMenuView{
		ID:        menu.ID.String(),
		DayOfWeek: menu.DayOfWeek,
		DayName:   dayNames[menu.DayOfWeek],
		Breakfast: h.resolveSlot(ctx, menu.Breakfast),
		Lunch:     h.resolveSlot(ctx, menu.Lunch),
		Dinner:    h.resolveSlot(ctx, menu.Dinner),
		Notes:     menu.Notes,
	}
}

// parseSlot validates a slot's item IDs against the catalog.
func (h *WeeklyMenuHandler) parseSlot(ctx context.Context, w http.ResponseWriter, raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid item id: "+sanitizeForLog(s))
			return nil, false
		}
		if _, err := h.menu.GetMenuItem(ctx, id); err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				respondError(w, http.StatusBadRequest, "unknown item id: "+id.String())
				return nil, false
			}
			respondError(w, http.StatusInternalServerError, "failed to verify menu items")
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// parseDayOfWeek reads a {day} URL parameter. The value "today" resolves to
// the current weekday.
func parseDayOfWeek(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "day")
	if raw == "today" {
		return int(time.Now().Weekday()), nil
	}
	day, err := strconv.Atoi(raw)
	if err != nil || day < 0 || day > 6 {
		return 0, errors.New("day must be between 0 (Sunday) and 6 (Saturday)")
	}
	return day, nil
}

// Set handles PUT /api/weekly-menu. Setting a weekday that already has a menu
// replaces it.
func (h *WeeklyMenuHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setWeeklyMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.DayOfWeek == nil || *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		respondError(w, http.StatusBadRequest, "day_of_week must be between 0 (Sunday) and 6 (Saturday)")
		return
	}

	breakfast, ok := h.parseSlot(r.Context(), w, req.Breakfast)
	if !ok {
		return
	}
	lunch, ok := h.parseSlot(r.Context(), w, req.Lunch)
	if !ok {
		return
	}
	dinner, ok := h.parseSlot(r.Context(), w, req.Dinner)
	if !ok {
		return
	}

	menu := &database.WeeklyMenu{
		ID:        uuid.New(),
		DayOfWeek: *req.DayOfWeek,
		Breakfast: breakfast,
		Lunch:     lunch,
		Dinner:    dinner,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
	}

	if err := h.weekly.UpsertWeeklyMenu(r.Context(), menu); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to set weekly menu")
		return
	}

	respondJSON(w, http.StatusOK, h.view(r.Context(), menu))
}

// Get handles GET /api/weekly-menu/{day} where day is 0-6 or "today".
func (h *WeeklyMenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayOfWeek(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	menu, err := h.weekly.GetWeeklyMenu(r.Context(), day)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no menu set for "+dayNames[day])
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get weekly menu")
		return
	}

	respondJSON(w, http.StatusOK, h.view(r.Context(), menu))
}

// List handles GET /api/weekly-menu, returning the full week Sunday first.
func (h *WeeklyMenuHandler) List(w http.ResponseWriter, r *http.Request) {
	menus, err := h.weekly.ListWeeklyMenus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list weekly menus")
		return
	}

	views := make([]weeklyMenuView, 0, len(menus))
	for i := range menus {
		views = append(views, h.view(r.Context(), &menus[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"menus": views})
}

// Delete handles DELETE /api/weekly-menu/{day}.
func (h *WeeklyMenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayOfWeek(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.weekly.DeleteWeeklyMenu(r.Context(), day); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no menu set for "+dayNames[day])
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete weekly menu")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
