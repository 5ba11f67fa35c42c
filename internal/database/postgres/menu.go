package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/campusmess/mess-server/internal/database"
)

// MenuRepository provides PostgreSQL-backed menu item storage.
type MenuRepository struct {
	pool *Pool
}

// NewMenuRepository creates a new PostgreSQL menu repository.
func NewMenuRepository(pool *Pool) *MenuRepository {
	return &MenuRepository{pool: pool}
}

const menuItemColumns = "id, name, price, category, description, is_available, aliases, created_at, updated_at"

func scanMenuItem(rows interface{ Scan(...any) error }) (database.MenuItem, error) {
	var item database.MenuItem
	err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Category, &item.Description,
		&item.IsAvailable, pq.Array(&item.Aliases), &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

// CreateMenuItem inserts a new item. Returns ErrDuplicate when the name is
// already taken.
func (r *MenuRepository) CreateMenuItem(ctx context.Context, item *database.MenuItem) error {
	query := `
		INSERT INTO menu_items (id, name, price, category, description, is_available, aliases, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		item.ID, item.Name, item.Price, item.Category, item.Description,
		item.IsAvailable, pq.Array(item.Aliases), item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create menu item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create menu item rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// GetMenuItem fetches an item by ID. Returns ErrNotFound if missing.
func (r *MenuRepository) GetMenuItem(ctx context.Context, id uuid.UUID) (*database.MenuItem, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+menuItemColumns+" FROM menu_items WHERE id = $1", id)

	item, err := scanMenuItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return &item, nil
}

// GetMenuItemByName fetches an item by exact display name.
func (r *MenuRepository) GetMenuItemByName(ctx context.Context, name string) (*database.MenuItem, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+menuItemColumns+" FROM menu_items WHERE name = $1", name)

	item, err := scanMenuItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item by name: %w", err)
	}
	return &item, nil
}

// UpdateMenuItem rewrites all mutable fields of an item.
func (r *MenuRepository) UpdateMenuItem(ctx context.Context, item *database.MenuItem) error {
	query := `
		UPDATE menu_items
		SET name = $2, price = $3, category = $4, description = $5,
		    is_available = $6, aliases = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		item.ID, item.Name, item.Price, item.Category, item.Description,
		item.IsAvailable, pq.Array(item.Aliases))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update menu item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update menu item rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMenuItem removes an item from the catalog.
func (r *MenuRepository) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM menu_items WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete menu item rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MenuFilter narrows ListMenuItems results.
type MenuFilter struct {
	Category    string
	IsAvailable *bool
}

// ListMenuItems returns items matching the filter, newest first.
func (r *MenuRepository) ListMenuItems(ctx context.Context, filter MenuFilter) ([]database.MenuItem, error) {
	var conditions []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.IsAvailable != nil {
		args = append(args, *filter.IsAvailable)
		conditions = append(conditions, fmt.Sprintf("is_available = $%d", len(args)))
	}

	query := "SELECT " + menuItemColumns + " FROM menu_items"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	var items []database.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}

// ListAvailableItems returns the catalog snapshot a scan matches against.
func (r *MenuRepository) ListAvailableItems(ctx context.Context) ([]database.MenuItem, error) {
	available := true
	return r.ListMenuItems(ctx, MenuFilter{IsAvailable: &available})
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
