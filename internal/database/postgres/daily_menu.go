package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campusmess/mess-server/internal/database"
)

// DailyMenuRepository provides PostgreSQL-backed daily menu storage.
type DailyMenuRepository struct {
	pool *Pool
}

// NewDailyMenuRepository creates a new PostgreSQL daily menu repository.
func NewDailyMenuRepository(pool *Pool) *DailyMenuRepository {
	return &DailyMenuRepository{pool: pool}
}

// itemIDStrings converts UUIDs to strings for a uuid[] column.
func itemIDStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// parseItemIDs converts uuid[] column values back to UUIDs, skipping any that
// fail to parse.
func parseItemIDs(raw []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// UpsertDailyMenu creates or replaces the menu for a date. Dates are unique,
// so setting a date twice overwrites the earlier menu.
func (r *DailyMenuRepository) UpsertDailyMenu(ctx context.Context, menu *database.DailyMenu) error {
	query := `
		INSERT INTO daily_menus (id, menu_date, item_ids, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (menu_date) DO UPDATE SET
			item_ids = EXCLUDED.item_ids,
			notes = EXCLUDED.notes,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		menu.ID, menu.MenuDate, pq.Array(itemIDStrings(menu.ItemIDs)), menu.Notes, menu.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert daily menu: %w", err)
	}
	return nil
}

// GetDailyMenu fetches the menu for a date. Returns ErrNotFound if none set.
func (r *DailyMenuRepository) GetDailyMenu(ctx context.Context, date time.Time) (*database.DailyMenu, error) {
	var menu database.DailyMenu
	var rawIDs []string
	err := r.pool.QueryRow(ctx, `
		SELECT id, menu_date, item_ids::text[], notes, created_at, updated_at
		FROM daily_menus WHERE menu_date = $1
	`, date).Scan(&menu.ID, &menu.MenuDate, pq.Array(&rawIDs), &menu.Notes, &menu.CreatedAt, &menu.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily menu: %w", err)
	}

	menu.ItemIDs = parseItemIDs(rawIDs)
	return &menu, nil
}

// ListDailyMenus returns menus in a date range, oldest first.
func (r *DailyMenuRepository) ListDailyMenus(ctx context.Context, from, to time.Time) ([]database.DailyMenu, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, menu_date, item_ids::text[], notes, created_at, updated_at
		FROM daily_menus
		WHERE menu_date >= $1 AND menu_date <= $2
		ORDER BY menu_date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily menus: %w", err)
	}
	defer rows.Close()

	var menus []database.DailyMenu
	for rows.Next() {
		var menu database.DailyMenu
		var rawIDs []string
		if err := rows.Scan(&menu.ID, &menu.MenuDate, pq.Array(&rawIDs), &menu.Notes, &menu.CreatedAt, &menu.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan daily menu: %w", err)
		}
		menu.ItemIDs = parseItemIDs(rawIDs)
		menus = append(menus, menu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily menus: %w", err)
	}
	return menus, nil
}

// DeleteDailyMenu removes the menu for a date.
func (r *DailyMenuRepository) DeleteDailyMenu(ctx context.Context, date time.Time) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM daily_menus WHERE menu_date = $1", date)
	if err != nil {
		return fmt.Errorf("delete daily menu: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete daily menu rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
