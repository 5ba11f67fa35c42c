package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
)

// TransactionRepository provides PostgreSQL-backed transaction storage and
// the aggregation queries behind the analytics endpoints.
type TransactionRepository struct {
	pool *Pool
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(pool *Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// CreateTransaction inserts a transaction and its line items atomically.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, trx *database.Transaction) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rawDetections any
	if len(trx.RawDetections) > 0 {
		rawDetections = trx.RawDetections
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, total, status, face_distance, raw_detections, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, trx.ID, trx.UserID, trx.Total, trx.Status, trx.FaceDistance, rawDetections, trx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	for _, item := range trx.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, name, price, quantity)
			VALUES ($1, $2, $3, $4)
		`, trx.ID, item.Name, item.Price, item.Quantity)
		if err != nil {
			return fmt.Errorf("insert transaction item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// loadItems fetches line items for a set of transactions in one query.
func (r *TransactionRepository) loadItems(ctx context.Context, trxs map[uuid.UUID]*database.Transaction) error {
	if len(trxs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(trxs))
	for id := range trxs {
		ids = append(ids, id.String())
	}

	rows, err := r.pool.Query(ctx, `
		SELECT transaction_id, name, price, quantity
		FROM transaction_items
		WHERE transaction_id = ANY($1::uuid[])
		ORDER BY id
	`, "{"+strings.Join(ids, ",")+"}")
	if err != nil {
		return fmt.Errorf("query transaction items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trxID uuid.UUID
		var item database.TransactionItem
		if err := rows.Scan(&trxID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return fmt.Errorf("scan transaction item: %w", err)
		}
		if trx, ok := trxs[trxID]; ok {
			trx.Items = append(trx.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate transaction items: %w", err)
	}
	return nil
}

// GetTransaction fetches one transaction with its items.
func (r *TransactionRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*database.Transaction, error) {
	var trx database.Transaction
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, total, status, face_distance, raw_detections, created_at
		FROM transactions WHERE id = $1
	`, id).Scan(&trx.ID, &trx.UserID, &trx.Total, &trx.Status, &trx.FaceDistance, &raw, &trx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	trx.RawDetections = raw

	if err := r.loadItems(ctx, map[uuid.UUID]*database.Transaction{trx.ID: &trx}); err != nil {
		return nil, err
	}
	return &trx, nil
}

// TransactionFilter narrows ListTransactions results.
type TransactionFilter struct {
	UserID    uuid.UUID // zero value means all users
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

func (f *TransactionFilter) conditions() ([]string, []any) {
	var conditions []string
	var args []any

	if f.UserID != uuid.Nil {
		args = append(args, f.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !f.StartDate.IsZero() {
		args = append(args, f.StartDate)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.EndDate.IsZero() {
		args = append(args, f.EndDate)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return conditions, args
}

// ListTransactions returns transactions matching the filter, newest first,
// with their items populated.
func (r *TransactionRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*database.Transaction, error) {
	conditions, args := filter.conditions()

	query := "SELECT id, user_id, total, status, face_distance, raw_detections, created_at FROM transactions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var list []*database.Transaction
	byID := make(map[uuid.UUID]*database.Transaction)
	for rows.Next() {
		var trx database.Transaction
		var raw []byte
		if err := rows.Scan(&trx.ID, &trx.UserID, &trx.Total, &trx.Status, &trx.FaceDistance, &raw, &trx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		trx.RawDetections = raw
		list = append(list, &trx)
		byID[trx.ID] = &trx
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	if err := r.loadItems(ctx, byID); err != nil {
		return nil, err
	}
	return list, nil
}

// CountTransactions returns the number of transactions matching the filter.
func (r *TransactionRepository) CountTransactions(ctx context.Context, filter TransactionFilter) (int, error) {
	conditions, args := filter.conditions()

	query := "SELECT COUNT(*) FROM transactions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

// RevenueOverview summarizes all transactions in a date range.
type RevenueOverview struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalTransactions int     `json:"total_transactions"`
	AverageValue      float64 `json:"average_transaction_value"`
}

// GetRevenueOverview computes total revenue, transaction count, and average
// transaction value for the given range.
func (r *TransactionRepository) GetRevenueOverview(ctx context.Context, filter TransactionFilter) (*RevenueOverview, error) {
	conditions, args := filter.conditions()

	query := "SELECT COALESCE(SUM(total), 0), COUNT(*) FROM transactions"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var o RevenueOverview
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&o.TotalRevenue, &o.TotalTransactions); err != nil {
		return nil, fmt.Errorf("revenue overview: %w", err)
	}
	if o.TotalTransactions > 0 {
		o.AverageValue = o.TotalRevenue / float64(o.TotalTransactions)
	}
	return &o, nil
}

// PopularItem is one entry of the most-sold-items ranking.
type PopularItem struct {
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	Revenue      float64 `json:"revenue"`
	AveragePrice float64 `json:"average_price"`
}

// GetPopularItems ranks line items by total quantity sold.
func (r *TransactionRepository) GetPopularItems(ctx context.Context, filter TransactionFilter, limit int) ([]PopularItem, error) {
	conditions, args := filter.conditions()

	query := `
		SELECT ti.name, SUM(ti.quantity), SUM(ti.price * ti.quantity), AVG(ti.price)
		FROM transaction_items ti
		JOIN transactions t ON t.id = ti.transaction_id
	`
	if len(conditions) > 0 {
		for i := range conditions {
			conditions[i] = "t." + conditions[i]
		}
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" GROUP BY ti.name ORDER BY SUM(ti.quantity) DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query popular items: %w", err)
	}
	defer rows.Close()

	var items []PopularItem
	for rows.Next() {
		var it PopularItem
		if err := rows.Scan(&it.Name, &it.Quantity, &it.Revenue, &it.AveragePrice); err != nil {
			return nil, fmt.Errorf("scan popular item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular items: %w", err)
	}
	return items, nil
}

// RevenuePoint is revenue aggregated over one period bucket.
type RevenuePoint struct {
	Period       string  `json:"period"`
	Revenue      float64 `json:"revenue"`
	Transactions int     `json:"transactions"`
}

// periodFormats maps a period name to the to_char format used for bucketing.
var periodFormats = map[string]string{
	"day":   "YYYY-MM-DD",
	"week":  "YYYY-MM-DD",
	"month": "YYYY-MM",
	"year":  "YYYY",
}

// GetRevenueByPeriod buckets revenue by day, month, or year.
func (r *TransactionRepository) GetRevenueByPeriod(ctx context.Context, period string, filter TransactionFilter) ([]RevenuePoint, error) {
	format, ok := periodFormats[period]
	if !ok {
		format = periodFormats["day"]
	}

	conditions, args := filter.conditions()
	args = append(args, format)
	bucket := fmt.Sprintf("to_char(created_at, $%d)", len(args))

	query := fmt.Sprintf("SELECT %s, COALESCE(SUM(total), 0), COUNT(*) FROM transactions", bucket)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += fmt.Sprintf(" GROUP BY %s ORDER BY %s", bucket, bucket)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query revenue by period: %w", err)
	}
	defer rows.Close()

	var points []RevenuePoint
	for rows.Next() {
		var p RevenuePoint
		if err := rows.Scan(&p.Period, &p.Revenue, &p.Transactions); err != nil {
			return nil, fmt.Errorf("scan revenue point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenue points: %w", err)
	}
	return points, nil
}

// TopUser is one entry of the top-spenders ranking.
type TopUser struct {
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	TotalSpent   float64   `json:"total_spent"`
	Transactions int       `json:"transaction_count"`
}

// GetTopUsers ranks users by total spend in the given range.
func (r *TransactionRepository) GetTopUsers(ctx context.Context, filter TransactionFilter, limit int) ([]TopUser, error) {
	conditions, args := filter.conditions()

	query := `
		SELECT t.user_id, u.name, u.email, SUM(t.total), COUNT(*)
		FROM transactions t
		JOIN users u ON u.id = t.user_id
	`
	if len(conditions) > 0 {
		for i := range conditions {
			conditions[i] = "t." + conditions[i]
		}
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" GROUP BY t.user_id, u.name, u.email ORDER BY SUM(t.total) DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top users: %w", err)
	}
	defer rows.Close()

	var users []TopUser
	for rows.Next() {
		var u TopUser
		if err := rows.Scan(&u.UserID, &u.Name, &u.Email, &u.TotalSpent, &u.Transactions); err != nil {
			return nil, fmt.Errorf("scan top user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top users: %w", err)
	}
	return users, nil
}
