package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
	"github.com/campusmess/mess-server/internal/web/middleware"
)

// TransactionStore is the transaction persistence surface the handlers need.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, trx *database.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*database.Transaction, error)
	ListTransactions(ctx context.Context, filter postgres.TransactionFilter) ([]*database.Transaction, error)
	CountTransactions(ctx context.Context, filter postgres.TransactionFilter) (int, error)
}

// TransactionHandler handles transaction endpoints.
type TransactionHandler struct {
	trx TransactionStore
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(trx TransactionStore) *TransactionHandler {
	return &TransactionHandler{trx: trx}
}

type transactionItemRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type createTransactionRequest struct {
	UserID string                   `json:"user_id"`
	Items  []transactionItemRequest `json:"items"`
}

type transactionView struct {
	ID           string                     `json:"id"`
	UserID       string                     `json:"user_id"`
	Items        []database.TransactionItem `json:"items"`
	Total        float64                    `json:"total"`
	Status       string                     `json:"status"`
	FaceDistance *float64                   `json:"face_distance,omitempty"`
	CreatedAt    string                     `json:"created_at"`
}

func newTransactionView(trx *database.Transaction) transactionView {
	items := trx.Items
	if items == nil {
		items = []database.TransactionItem{}
	}
	return transactionView{
		ID:           trx.ID.String(),
		UserID:       trx.UserID.String(),
		Items:        items,
		Total:        trx.Total,
		Status:       trx.Status,
		FaceDistance: trx.FaceDistance,
		CreatedAt:    trx.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/transactions. Admins may create transactions for
// any user; regular users only for themselves. Prices come from the request
// so history stays frozen even if the menu changes later.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	userID := user.ID
	if req.UserID != "" {
		target, err := uuid.Parse(req.UserID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		if target != user.ID && !user.IsAdmin() {
			respondError(w, http.StatusForbidden, "cannot create transactions for other users")
			return
		}
		userID = target
	}

	trx := &database.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    database.StatusCompleted,
		CreatedAt: time.Now(),
	}
	for _, it := range req.Items {
		if it.Name == "" || it.Price < 0 {
			respondError(w, http.StatusBadRequest, "item name is required and price must not be negative")
			return
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		trx.Items = append(trx.Items, database.TransactionItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: qty,
		})
		trx.Total += it.Price * float64(qty)
	}

	if err := h.trx.CreateTransaction(r.Context(), trx); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	respondJSON(w, http.StatusCreated, newTransactionView(trx))
}

// Get handles GET /api/transactions/{id}. Users can only read their own
// transactions; admins can read any.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := urlParamUUID(w, r, "id")
	if !ok {
		return
	}

	trx, err := h.trx.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "transaction not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}

	if trx.UserID != user.ID && !user.IsAdmin() {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}

	respondJSON(w, http.StatusOK, newTransactionView(trx))
}

// parseTransactionFilter builds a filter from query parameters. Non-admins are
// always pinned to their own transactions.
func parseTransactionFilter(r *http.Request, user *database.User) (postgres.TransactionFilter, error) {
	filter := postgres.TransactionFilter{UserID: user.ID}
	q := r.URL.Query()

	if user.IsAdmin() {
		filter.UserID = uuid.Nil
		if v := q.Get("user_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return filter, errors.New("invalid user_id")
			}
			filter.UserID = id
		}
	}

	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errors.New("invalid start_date, expected YYYY-MM-DD")
		}
		filter.StartDate = t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errors.New("invalid end_date, expected YYYY-MM-DD")
		}
		// Make the end date inclusive.
		filter.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}

	filter.Limit = 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	return filter, nil
}

// List handles GET /api/transactions with date range and paging filters.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := parseTransactionFilter(r, user)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	trxs, err := h.trx.ListTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	total, err := h.trx.CountTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count transactions")
		return
	}

	views := make([]transactionView, 0, len(trxs))
	for _, trx := range trxs {
		views = append(views, newTransactionView(trx))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": views,
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}
