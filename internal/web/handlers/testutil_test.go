package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
	"github.com/campusmess/mess-server/internal/web/middleware"
)

// fakeUserStore is an in-memory UserStore for handler tests.
type fakeUserStore struct {
	users     map[uuid.UUID]*database.User
	updateErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uuid.UUID]*database.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, u *database.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return postgres.ErrDuplicate
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeUserStore) UpdateFaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return postgres.ErrNotFound
	}
	u.FaceEmbedding = embedding
	return nil
}

func (f *fakeUserStore) CountUsers(ctx context.Context, role string) (int, error) {
	if role == "" {
		return len(f.users), nil
	}
	var n int
	for _, u := range f.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// fakeMenuStore is an in-memory MenuStore for handler tests.
type fakeMenuStore struct {
	items map[uuid.UUID]*database.MenuItem
}

func newFakeMenuStore() *fakeMenuStore {
	return &fakeMenuStore{items: make(map[uuid.UUID]*database.MenuItem)}
}

func (f *fakeMenuStore) CreateMenuItem(ctx context.Context, item *database.MenuItem) error {
	for _, existing := range f.items {
		if existing.Name == item.Name {
			return postgres.ErrDuplicate
		}
	}
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeMenuStore) GetMenuItem(ctx context.Context, id uuid.UUID) (*database.MenuItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return item, nil
}

func (f *fakeMenuStore) UpdateMenuItem(ctx context.Context, item *database.MenuItem) error {
	if _, ok := f.items[item.ID]; !ok {
		return postgres.ErrNotFound
	}
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeMenuStore) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return postgres.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeMenuStore) ListMenuItems(ctx context.Context, filter postgres.MenuFilter) ([]database.MenuItem, error) {
	var out []database.MenuItem
	for _, item := range f.items {
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.IsAvailable != nil && item.IsAvailable != *filter.IsAvailable {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

// fakeTrxStore is an in-memory TransactionStore for handler tests.
type fakeTrxStore struct {
	trxs      []*database.Transaction
	createErr error
}

func (f *fakeTrxStore) CreateTransaction(ctx context.Context, trx *database.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.trxs = append(f.trxs, trx)
	return nil
}

func (f *fakeTrxStore) GetTransaction(ctx context.Context, id uuid.UUID) (*database.Transaction, error) {
	for _, trx := range f.trxs {
		if trx.ID == id {
			return trx, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeTrxStore) ListTransactions(ctx context.Context, filter postgres.TransactionFilter) ([]*database.Transaction, error) {
	var out []*database.Transaction
	for _, trx := range f.trxs {
		if filter.UserID != uuid.Nil && trx.UserID != filter.UserID {
			continue
		}
		out = append(out, trx)
	}
	return out, nil
}

func (f *fakeTrxStore) CountTransactions(ctx context.Context, filter postgres.TransactionFilter) (int, error) {
	list, _ := f.ListTransactions(ctx, filter)
	return len(list), nil
}

// testUser creates a user and stores it in the fake store.
func testUser(t *testing.T, store *fakeUserStore, role string) *database.User {
	t.Helper()
	user := &database.User{
		ID:        uuid.New(),
		Name:      "Test User",
		Email:     uuid.NewString() + "@example.com",
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return store.users[user.ID]
}

// authedRequest creates a request carrying an authenticated user, bypassing
// the middleware the way RequireAuth would populate the context.
func authedRequest(t *testing.T, method, path string, body io.Reader, user *database.User) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	session := &middleware.Session{ID: "test-session", UserID: user.ID}
	return req.WithContext(middleware.SetSessionInContext(req.Context(), session, user))
}

// authedMultipartRequest creates an authenticated POST request carrying a
// multipart form with the given file fields.
func authedMultipartRequest(t *testing.T, path string, files map[string][]byte, user *database.User) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", contentType)
	session := &middleware.Session{ID: "test-session", UserID: user.ID}
	return req.WithContext(middleware.SetSessionInContext(req.Context(), session, user))
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonBody marshals a value into a request body reader.
func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

// multipartBody builds a multipart form with the given file fields.
func multipartBody(t *testing.T, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	return multipartForm(t, nil, files)
}

// multipartForm builds a multipart form with value and file fields.
func multipartForm(t *testing.T, values map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, value := range values {
		if err := writer.WriteField(field, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	for field, data := range files {
		part, err := writer.CreateFormFile(field, field+".jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error containing the
// expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if !strings.Contains(result["error"], expectedMessage) {
		t.Errorf("expected error containing %q, got %q", expectedMessage, result["error"])
	}
}
