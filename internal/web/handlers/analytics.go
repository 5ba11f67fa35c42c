package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/campusmess/mess-server/internal/database/postgres"
)

// AnalyticsStore is the aggregation surface the analytics handlers need.
type AnalyticsStore interface {
	GetRevenueOverview(ctx context.Context, filter postgres.TransactionFilter) (*postgres.RevenueOverview, error)
	GetPopularItems(ctx context.Context, filter postgres.TransactionFilter, limit int) ([]postgres.PopularItem, error)
	GetRevenueByPeriod(ctx context.Context, period string, filter postgres.TransactionFilter) ([]postgres.RevenuePoint, error)
	GetTopUsers(ctx context.Context, filter postgres.TransactionFilter, limit int) ([]postgres.TopUser, error)
}

// AnalyticsHandler handles admin analytics endpoints.
type AnalyticsHandler struct {
	store AnalyticsStore
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(store AnalyticsStore) *AnalyticsHandler {
	return &AnalyticsHandler{store: store}
}

// parseDateRange builds a date-range-only filter from query parameters.
func parseDateRange(r *http.Request) (postgres.TransactionFilter, error) {
	// Reuse the transaction filter parser with an admin-less scope: analytics
	// endpoints are admin-only, so the range applies to all users.
	q := r.URL.Query()
	var filter postgres.TransactionFilter

	if v := q.Get("start_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter, err
		}
		filter.StartDate = t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return filter, err
		}
		// Make the end date inclusive.
		filter.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}
	return filter, nil
}

// parseLimit reads a limit query parameter with a default and a cap.
func parseLimit(r *http.Request, def, max int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= max {
			return n
		}
	}
	return def
}

// Overview handles GET /api/analytics/overview.
func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	overview, err := h.store.GetRevenueOverview(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute revenue overview")
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

// PopularItems handles GET /api/analytics/popular-items.
func (h *AnalyticsHandler) PopularItems(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.store.GetPopularItems(r.Context(), filter, parseLimit(r, 10, 100))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to rank popular items")
		return
	}
	if items == nil {
		items = []postgres.PopularItem{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Revenue handles GET /api/analytics/revenue with period bucketing.
func (h *AnalyticsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "day"
	}

	points, err := h.store.GetRevenueByPeriod(r.Context(), period, filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute revenue")
		return
	}
	if points == nil {
		points = []postgres.RevenuePoint{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"period": period,
		"points": points,
	})
}

// TopUsers handles GET /api/analytics/top-users.
func (h *AnalyticsHandler) TopUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.store.GetTopUsers(r.Context(), filter, parseLimit(r, 10, 100))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to rank users")
		return
	}
	if users == nil {
		users = []postgres.TopUser{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}
