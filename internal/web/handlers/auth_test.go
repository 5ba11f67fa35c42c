package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusmess/mess-server/internal/web/middleware"
)

type fakeEmbedder struct {
	embedding []float32
	err       error
}

func (f *fakeEmbedder) FaceEmbedding(ctx context.Context, imageData []byte, filename string) ([]float32, error) {
	return f.embedding, f.err
}

func newAuthHandler(users *fakeUserStore, embedder *fakeEmbedder) *AuthHandler {
	sm := middleware.NewSessionManager("test-secret", nil)
	if embedder == nil {
		return NewAuthHandler(users, sm, nil)
	}
	return NewAuthHandler(users, sm, embedder)
}

func TestSignupFirstUserBecomesAdmin(t *testing.T) {
	users := newFakeUserStore()
	handler := newAuthHandler(users, nil)

	req := httptest.NewRequest("POST", "/api/v1/auth/signup", jsonBody(t, map[string]string{
		"name":     "Priya",
		"email":    "priya@example.com",
		"password": "supersecret",
	}))
	recorder := httptest.NewRecorder()

	handler.Signup(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var resp struct {
		User      userView `json:"user"`
		SessionID string   `json:"session_id"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.User.Role != "admin" {
		t.Errorf("first user must be admin, got %q", resp.User.Role)
	}
	if resp.SessionID == "" {
		t.Error("signup must create a session")
	}
}

func TestSignupSecondUserIsRegular(t *testing.T) {
	users := newFakeUserStore()
	testUser(t, users, "admin")
	handler := newAuthHandler(users, nil)

	req := httptest.NewRequest("POST", "/api/v1/auth/signup", jsonBody(t, map[string]string{
		"name":     "Rahul",
		"email":    "rahul@example.com",
		"password": "supersecret",
	}))
	recorder := httptest.NewRecorder()

	handler.Signup(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp struct {
		User userView `json:"user"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.User.Role != "user" {
		t.Errorf("expected role user, got %q", resp.User.Role)
	}
}

func TestSignupValidation(t *testing.T) {
	handler := newAuthHandler(newFakeUserStore(), nil)

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"missing fields", map[string]string{"name": "X"}, "required"},
		{"bad email", map[string]string{"name": "X", "email": "not-an-email", "password": "supersecret"}, "invalid email"},
		{"short password", map[string]string{"name": "X", "email": "x@example.com", "password": "short"}, "at least 8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/auth/signup", jsonBody(t, tt.body))
			recorder := httptest.NewRecorder()
			handler.Signup(recorder, req)
			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tt.want)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	users := newFakeUserStore()
	handler := newAuthHandler(users, nil)

	body := map[string]string{"name": "A", "email": "dup@example.com", "password": "supersecret"}
	first := httptest.NewRecorder()
	handler.Signup(first, httptest.NewRequest("POST", "/api/v1/auth/signup", jsonBody(t, body)))
	assertStatusCode(t, first, http.StatusCreated)

	second := httptest.NewRecorder()
	handler.Signup(second, httptest.NewRequest("POST", "/api/v1/auth/signup", jsonBody(t, body)))
	assertStatusCode(t, second, http.StatusConflict)
}

func signupForm(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	body, contentType := multipartForm(t, map[string]string{
		"name":     "Priya",
		"email":    "priya@example.com",
		"password": "supersecret",
	}, files)
	req := httptest.NewRequest("POST", "/api/v1/auth/signup", body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestSignupWithFaceImage(t *testing.T) {
	users := newFakeUserStore()
	handler := newAuthHandler(users, &fakeEmbedder{embedding: []float32{0.1, 0.2, 0.3}})

	recorder := httptest.NewRecorder()
	handler.Signup(recorder, signupForm(t, map[string][]byte{"face_image": []byte("jpegdata")}))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp struct {
		User userView `json:"user"`
	}
	parseJSONResponse(t, recorder, &resp)
	if !resp.User.HasFace {
		t.Error("signup with a face image must register the embedding")
	}

	created, err := users.GetUserByEmail(context.Background(), "priya@example.com")
	if err != nil {
		t.Fatalf("user was not created: %v", err)
	}
	if len(created.FaceEmbedding) != 3 {
		t.Errorf("embedding not stored: %v", created.FaceEmbedding)
	}
}

func TestSignupWithFaceEmbeddingFailure(t *testing.T) {
	users := newFakeUserStore()
	handler := newAuthHandler(users, &fakeEmbedder{err: errors.New("no face detected")})

	recorder := httptest.NewRecorder()
	handler.Signup(recorder, signupForm(t, map[string][]byte{"face_image": []byte("jpegdata")}))

	assertStatusCode(t, recorder, http.StatusBadGateway)
	if _, err := users.GetUserByEmail(context.Background(), "priya@example.com"); err == nil {
		t.Error("a failed embedding must abort the signup entirely")
	}
}

func TestSignupMultipartWithoutFace(t *testing.T) {
	users := newFakeUserStore()
	handler := newAuthHandler(users, nil)

	recorder := httptest.NewRecorder()
	handler.Signup(recorder, signupForm(t, nil))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp struct {
		User userView `json:"user"`
	}
	parseJSONResponse(t, recorder, &resp)
	if resp.User.HasFace {
		t.Error("signup without a face image must not claim a registered face")
	}
}

func TestLoginSuccess(t *testing.T) {
	users := newFakeUserStore()
	handler := newAuthHandler(users, nil)

	signup := httptest.NewRecorder()
	handler.Signup(signup, httptest.NewRequest("POST", "/api/v1/auth/signup", jsonBody(t, map[string]string{
		"name": "Priya", "email": "priya@example.com", "password": "supersecret",
	})))
	assertStatusCode(t, signup, http.StatusCreated)

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest("POST", "/api/v1/auth/login", jsonBody(t, map[string]string{
		"email": "priya@example.com", "password": "supersecret",
	})))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp LoginResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Success || resp.SessionID == "" {
		t.Errorf("unexpected login response: %+v", resp)
	}
	if resp.User == nil || resp.User.Email != "priya@example.com" {
		t.Error("login response must include the user")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	users := newFakeUserStore()
	handler := newAuthHandler(users, nil)

	signup := httptest.NewRecorder()
	handler.Signup(signup, httptest.NewRequest("POST", "/api/v1/auth/signup", jsonBody(t, map[string]string{
		"name": "Priya", "email": "priya@example.com", "password": "supersecret",
	})))

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest("POST", "/api/v1/auth/login", jsonBody(t, map[string]string{
		"email": "priya@example.com", "password": "wrong-password",
	})))

	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestLoginUnknownUser(t *testing.T) {
	handler := newAuthHandler(newFakeUserStore(), nil)

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest("POST", "/api/v1/auth/login", jsonBody(t, map[string]string{
		"email": "ghost@example.com", "password": "supersecret",
	})))

	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestMe(t *testing.T) {
	users := newFakeUserStore()
	user := testUser(t, users, "user")
	handler := newAuthHandler(users, nil)

	recorder := httptest.NewRecorder()
	handler.Me(recorder, authedRequest(t, "GET", "/api/v1/auth/me", nil, user))

	assertStatusCode(t, recorder, http.StatusOK)
	var view userView
	parseJSONResponse(t, recorder, &view)
	if view.ID != user.ID.String() {
		t.Errorf("unexpected user in response: %+v", view)
	}
	if view.HasFace {
		t.Error("user without an embedding must report has_face=false")
	}
}

func TestRegisterFace(t *testing.T) {
	users := newFakeUserStore()
	user := testUser(t, users, "user")
	handler := newAuthHandler(users, &fakeEmbedder{embedding: []float32{0.1, 0.2}})

	req := authedMultipartRequest(t, "/api/v1/auth/face", map[string][]byte{"face_image": []byte("jpegdata")}, user)
	recorder := httptest.NewRecorder()
	handler.RegisterFace(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if len(users.users[user.ID].FaceEmbedding) != 2 {
		t.Error("embedding was not stored")
	}
}

func TestRegisterFaceEmbeddingFailure(t *testing.T) {
	users := newFakeUserStore()
	user := testUser(t, users, "user")
	handler := newAuthHandler(users, &fakeEmbedder{err: errors.New("no face detected")})

	req := authedMultipartRequest(t, "/api/v1/auth/face", map[string][]byte{"face_image": []byte("jpegdata")}, user)
	recorder := httptest.NewRecorder()
	handler.RegisterFace(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadGateway)
}

func TestRegisterFaceMissingImage(t *testing.T) {
	users := newFakeUserStore()
	user := testUser(t, users, "user")
	handler := newAuthHandler(users, &fakeEmbedder{embedding: []float32{1}})

	req := authedMultipartRequest(t, "/api/v1/auth/face", map[string][]byte{"other_field": []byte("data")}, user)
	recorder := httptest.NewRecorder()
	handler.RegisterFace(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
