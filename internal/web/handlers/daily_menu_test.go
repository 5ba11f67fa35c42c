package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
)

// fakeDailyMenuStore is an in-memory DailyMenuStore keyed by date.
type fakeDailyMenuStore struct {
	menus map[string]*database.DailyMenu
}

func newFakeDailyMenuStore() *fakeDailyMenuStore {
	return &fakeDailyMenuStore{menus: make(map[string]*database.DailyMenu)}
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (f *fakeDailyMenuStore) UpsertDailyMenu(ctx context.Context, menu *database.DailyMenu) error {
	cp := *menu
	f.menus[dateKey(menu.MenuDate)] = &cp
	return nil
}

func (f *fakeDailyMenuStore) GetDailyMenu(ctx context.Context, date time.Time) (*database.DailyMenu, error) {
	menu, ok := f.menus[dateKey(date)]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return menu, nil
}

func (f *fakeDailyMenuStore) ListDailyMenus(ctx context.Context, from, to time.Time) ([]database.DailyMenu, error) {
	var out []database.DailyMenu
	for _, menu := range f.menus {
		if menu.MenuDate.Before(from) || menu.MenuDate.After(to) {
			continue
		}
		out = append(out, *menu)
	}
	return out, nil
}

func (f *fakeDailyMenuStore) DeleteDailyMenu(ctx context.Context, date time.Time) error {
	if _, ok := f.menus[dateKey(date)]; !ok {
		return postgres.ErrNotFound
	}
	delete(f.menus, dateKey(date))
	return nil
}

func seedMenuItem(t *testing.T, store *fakeMenuStore, name string) *database.MenuItem {
	t.Helper()
	item := &database.MenuItem{
		ID:          uuid.New(),
		Name:        name,
		Price:       50,
		IsAvailable: true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := store.CreateMenuItem(context.Background(), item); err != nil {
		t.Fatalf("failed to seed menu item: %v", err)
	}
	return item
}

func TestDailyMenuSetAndGet(t *testing.T) {
	menuStore := newFakeMenuStore()
	dosa := seedMenuItem(t, menuStore, "Masala Dosa")
	thali := seedMenuItem(t, menuStore, "Veg Thali")
	handler := NewDailyMenuHandler(newFakeDailyMenuStore(), menuStore)

	set := httptest.NewRecorder()
	handler.Set(set, httptest.NewRequest("PUT", "/api/v1/daily-menu", jsonBody(t, map[string]any{
		"date":     "2026-09-01",
		"item_ids": []string{dosa.ID.String(), thali.ID.String()},
		"notes":    "monday special",
	})))
	assertStatusCode(t, set, http.StatusOK)

	req := requestWithChiParams(
		httptest.NewRequest("GET", "/api/v1/daily-menu/2026-09-01", nil),
		map[string]string{"date": "2026-09-01"},
	)
	get := httptest.NewRecorder()
	handler.Get(get, req)

	assertStatusCode(t, get, http.StatusOK)
	var view dailyMenuView
	parseJSONResponse(t, get, &view)
	if view.Date != "2026-09-01" || view.Notes != "monday special" {
		t.Errorf("unexpected daily menu: %+v", view)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 resolved items, got %d", len(view.Items))
	}
}

func TestDailyMenuSetReplacesExisting(t *testing.T) {
	menuStore := newFakeMenuStore()
	dosa := seedMenuItem(t, menuStore, "Masala Dosa")
	chai := seedMenuItem(t, menuStore, "Chai")
	store := newFakeDailyMenuStore()
	handler := NewDailyMenuHandler(store, menuStore)

	for _, id := range []string{dosa.ID.String(), chai.ID.String()} {
		recorder := httptest.NewRecorder()
		handler.Set(recorder, httptest.NewRequest("PUT", "/api/v1/daily-menu", jsonBody(t, map[string]any{
			"date":     "2026-09-01",
			"item_ids": []string{id},
		})))
		assertStatusCode(t, recorder, http.StatusOK)
	}

	if len(store.menus) != 1 {
		t.Fatalf("expected a single menu for the date, got %d", len(store.menus))
	}
	menu := store.menus["2026-09-01"]
	if len(menu.ItemIDs) != 1 || menu.ItemIDs[0] != chai.ID {
		t.Errorf("second set must replace the first: %+v", menu.ItemIDs)
	}
}

func TestDailyMenuSetUnknownItem(t *testing.T) {
	handler := NewDailyMenuHandler(newFakeDailyMenuStore(), newFakeMenuStore())

	recorder := httptest.NewRecorder()
	handler.Set(recorder, httptest.NewRequest("PUT", "/api/v1/daily-menu", jsonBody(t, map[string]any{
		"date":     "2026-09-01",
		"item_ids": []string{uuid.NewString()},
	})))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "unknown item id")
}

func TestDailyMenuSetBadDate(t *testing.T) {
	handler := NewDailyMenuHandler(newFakeDailyMenuStore(), newFakeMenuStore())

	recorder := httptest.NewRecorder()
	handler.Set(recorder, httptest.NewRequest("PUT", "/api/v1/daily-menu", jsonBody(t, map[string]any{
		"date": "01-09-2026",
	})))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestDailyMenuGetToday(t *testing.T) {
	menuStore := newFakeMenuStore()
	chai := seedMenuItem(t, menuStore, "Chai")
	store := newFakeDailyMenuStore()
	handler := NewDailyMenuHandler(store, menuStore)

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	store.UpsertDailyMenu(context.Background(), &database.DailyMenu{
		ID:       uuid.New(),
		MenuDate: today,
		ItemIDs:  []uuid.UUID{chai.ID},
	})

	req := requestWithChiParams(
		httptest.NewRequest("GET", "/api/v1/daily-menu/today", nil),
		map[string]string{"date": "today"},
	)
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var view dailyMenuView
	parseJSONResponse(t, recorder, &view)
	if view.Date != today.Format("2006-01-02") {
		t.Errorf("expected today's menu, got %s", view.Date)
	}
}

func TestDailyMenuGetNotFound(t *testing.T) {
	handler := NewDailyMenuHandler(newFakeDailyMenuStore(), newFakeMenuStore())

	req := requestWithChiParams(
		httptest.NewRequest("GET", "/api/v1/daily-menu/2026-09-01", nil),
		map[string]string{"date": "2026-09-01"},
	)
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestDailyMenuResolveSkipsDeletedItems(t *testing.T) {
	menuStore := newFakeMenuStore()
	dosa := seedMenuItem(t, menuStore, "Masala Dosa")
	gone := seedMenuItem(t, menuStore, "Discontinued")
	store := newFakeDailyMenuStore()
	handler := NewDailyMenuHandler(store, menuStore)

	store.UpsertDailyMenu(context.Background(), &database.DailyMenu{
		ID:       uuid.New(),
		MenuDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ItemIDs:  []uuid.UUID{dosa.ID, gone.ID},
	})
	menuStore.DeleteMenuItem(context.Background(), gone.ID)

	req := requestWithChiParams(
		httptest.NewRequest("GET", "/api/v1/daily-menu/2026-09-01", nil),
		map[string]string{"date": "2026-09-01"},
	)
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var view dailyMenuView
	parseJSONResponse(t, recorder, &view)
	if len(view.Items) != 1 || view.Items[0].Name != "Masala Dosa" {
		t.Errorf("deleted items must be skipped: %+v", view.Items)
	}
}

func TestDailyMenuList(t *testing.T) {
	menuStore := newFakeMenuStore()
	chai := seedMenuItem(t, menuStore, "Chai")
	store := newFakeDailyMenuStore()
	handler := NewDailyMenuHandler(store, menuStore)

	for _, day := range []int{1, 3, 20} {
		store.UpsertDailyMenu(context.Background(), &database.DailyMenu{
			ID:       uuid.New(),
			MenuDate: time.Date(2026, 9, day, 0, 0, 0, 0, time.UTC),
			ItemIDs:  []uuid.UUID{chai.ID},
		})
	}

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/daily-menu?from=2026-09-01&to=2026-09-07", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp struct {
		Menus []dailyMenuView `json:"menus"`
	}
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Menus) != 2 {
		t.Errorf("expected 2 menus in range, got %d", len(resp.Menus))
	}
}

func TestDailyMenuDelete(t *testing.T) {
	menuStore := newFakeMenuStore()
	chai := seedMenuItem(t, menuStore, "Chai")
	store := newFakeDailyMenuStore()
	handler := NewDailyMenuHandler(store, menuStore)

	store.UpsertDailyMenu(context.Background(), &database.DailyMenu{
		ID:       uuid.New(),
		MenuDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		ItemIDs:  []uuid.UUID{chai.ID},
	})

	req := requestWithChiParams(
		httptest.NewRequest("DELETE", "/api/v1/daily-menu/2026-09-01", nil),
		map[string]string{"date": "2026-09-01"},
	)
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	again := httptest.NewRecorder()
	handler.Delete(again, req)
	assertStatusCode(t, again, http.StatusNotFound)
}
