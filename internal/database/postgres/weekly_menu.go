package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/campusmess/mess-server/internal/database"
)

// WeeklyMenuRepository provides PostgreSQL-backed recurring menu storage.
// One row per day of the week.
type WeeklyMenuRepository struct {
	pool *Pool
}

// NewWeeklyMenuRepository creates a new PostgreSQL weekly menu repository.
func NewWeeklyMenuRepository(pool *Pool) *WeeklyMenuRepository {
	return &WeeklyMenuRepository{pool: pool}
}

// UpsertWeeklyMenu creates or replaces the menu for a weekday. Days are
// unique, so setting a day twice overwrites the earlier menu.
func (r *WeeklyMenuRepository) UpsertWeeklyMenu(ctx context.Context, menu *database.WeeklyMenu) error {
	query := `
		INSERT INTO weekly_menus (id, day_of_week, breakfast_ids, lunch_ids, dinner_ids, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (day_of_week) DO UPDATE SET
			breakfast_ids = EXCLUDED.breakfast_ids,
			lunch_ids = EXCLUDED.lunch_ids,
			dinner_ids = EXCLUDED.dinner_ids,
			notes = EXCLUDED.notes,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		menu.ID, menu.DayOfWeek,
		pq.Array(itemIDStrings(menu.Breakfast)),
		pq.Array(itemIDStrings(menu.Lunch)),
		pq.Array(itemIDStrings(menu.Dinner)),
		menu.Notes, menu.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert weekly menu: %w", err)
	}
	return nil
}

func scanWeeklyMenu(scan func(dest ...any) error) (*database.WeeklyMenu, error) {
	var menu database.WeeklyMenu
	var breakfast, lunch, dinner []string
	err := scan(&menu.ID, &menu.DayOfWeek,
		pq.Array(&breakfast), pq.Array(&lunch), pq.Array(&dinner),
		&menu.Notes, &menu.CreatedAt, &menu.UpdatedAt)
	if err != nil {
		return nil, err
	}
	menu.Breakfast = parseItemIDs(breakfast)
	menu.Lunch = parseItemIDs(lunch)
	menu.Dinner = parseItemIDs(dinner)
	return &menu, nil
}

// GetWeeklyMenu fetches the menu for a weekday (0 = Sunday). Returns
// ErrNotFound if none set.
func (r *WeeklyMenuRepository) GetWeeklyMenu(ctx context.Context, dayOfWeek int) (*database.WeeklyMenu, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, day_of_week, breakfast_ids::text[], lunch_ids::text[], dinner_ids::text[],
		       notes, created_at, updated_at
		FROM weekly_menus WHERE day_of_week = $1
	`, dayOfWeek)

	menu, err := scanWeeklyMenu(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly menu: %w", err)
	}
	return menu, nil
}

// ListWeeklyMenus returns all weekday menus ordered Sunday through Saturday.
func (r *WeeklyMenuRepository) ListWeeklyMenus(ctx context.Context) ([]database.WeeklyMenu, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, day_of_week, breakfast_ids::text[], lunch_ids::text[], dinner_ids::text[],
		       notes, created_at, updated_at
		FROM weekly_menus
		ORDER BY day_of_week
	`)
	if err != nil {
		return nil, fmt.Errorf("query weekly menus: %w", err)
	}
	defer rows.Close()

	var menus []database.WeeklyMenu
	for rows.Next() {
		menu, err := scanWeeklyMenu(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan weekly menu: %w", err)
		}
		menus = append(menus, *menu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly menus: %w", err)
	}
	return menus, nil
}

// DeleteWeeklyMenu removes the menu for a weekday.
func (r *WeeklyMenuRepository) DeleteWeeklyMenu(ctx context.Context, dayOfWeek int) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM weekly_menus WHERE day_of_week = $1", dayOfWeek)
	if err != nil {
		return fmt.Errorf("delete weekly menu: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete weekly menu rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
