package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/database/postgres"
	"github.com/campusmess/mess-server/internal/ml"
	"github.com/campusmess/mess-server/internal/web/middleware"
)

// UserStore is the user persistence surface auth handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u *database.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*database.User, error)
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	UpdateFaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	CountUsers(ctx context.Context, role string) (int, error)
}

// AuthHandler handles signup, login and face registration.
type AuthHandler struct {
	users          UserStore
	sessionManager *middleware.SessionManager
	embedder       ml.EmbeddingClient
}

// NewAuthHandler creates a new auth handler. embedder may be nil when the face
// embedding service is not configured; face registration then returns 503.
func NewAuthHandler(users UserStore, sm *middleware.SessionManager, embedder ml.EmbeddingClient) *AuthHandler {
	return &AuthHandler{
		users:          users,
		sessionManager: sm,
		embedder:       embedder,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeSignupRequest reads the signup payload. JSON bodies carry the account
// fields only; multipart bodies may additionally carry a face_image file for
// immediate face registration. Writes an error response and returns ok=false
// on malformed input.
func decodeSignupRequest(w http.ResponseWriter, r *http.Request) (signupRequest, []byte, string, bool) {
	var req signupRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse multipart form")
			return req, nil, "", false
		}
		req.Name = r.FormValue("name")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")

		file, header, err := r.FormFile("face_image")
		if err != nil {
			// The face image is optional at signup.
			return req, nil, "", true
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil || len(data) == 0 {
			respondError(w, http.StatusBadRequest, "failed to read face_image")
			return req, nil, "", false
		}
		return req, data, header.Filename, true
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return req, nil, "", false
	}
	return req, nil, "", true
}

// Signup registers a new account. The very first account becomes an admin so
// a fresh deployment can be bootstrapped without touching the database. A
// multipart signup may include a face_image; the embedding is computed before
// the account is created, so an embedding failure aborts the whole signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, faceImage, faceFilename, ok := decodeSignupRequest(w, r)
	if !ok {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	var embedding []float32
	if len(faceImage) > 0 {
		if h.embedder == nil {
			respondError(w, http.StatusServiceUnavailable, "face embedding service not configured")
			return
		}
		embedding, err = h.embedder.FaceEmbedding(r.Context(), faceImage, faceFilename)
		if err != nil {
			log.Printf("signup face embedding failed for %s: %v", sanitizeForLog(req.Email), err)
			respondError(w, http.StatusBadGateway, "face embedding service failed")
			return
		}
		if len(embedding) == 0 {
			respondError(w, http.StatusUnprocessableEntity, "no face found in image")
			return
		}
	}

	role := "user"
	if count, err := h.users.CountUsers(r.Context(), ""); err == nil && count == 0 {
		role = "admin"
	}

	user := &database.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, postgres.ErrDuplicate) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("failed to create user: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if len(embedding) > 0 {
		if err := h.users.UpdateFaceEmbedding(r.Context(), user.ID, embedding); err != nil {
			log.Printf("failed to store face embedding for new user %s: %v", user.ID, err)
			respondError(w, http.StatusInternalServerError, "failed to store face embedding")
			return
		}
		user.FaceEmbedding = embedding
	}

	session, err := h.sessionManager.CreateSession(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, session)

	respondJSON(w, http.StatusCreated, map[string]any{
		"user":       newUserView(user),
		"session_id": session.ID,
		"expires_at": session.ExpiresAt.Format(time.RFC3339),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Success   bool      `json:"success"`
	User      *userView `json:"user,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	ExpiresAt string    `json:"expires_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Login handles user login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Success: false, Error: "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Success: false, Error: "invalid credentials"})
		return
	}

	session, err := h.sessionManager.CreateSession(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, session)

	view := newUserView(user)
	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		User:      &view,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session != nil {
		h.sessionManager.DeleteSession(r.Context(), session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, newUserView(user))
}

// RegisterFace stores a face embedding for the authenticated user. Expects a
// multipart form with a face_image field. Re-registration overwrites the
// previous embedding.
func (h *AuthHandler) RegisterFace(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.embedder == nil {
		respondError(w, http.StatusServiceUnavailable, "face embedding service not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	imageData, filename, ok := readFormImage(w, r, "face_image")
	if !ok {
		return
	}

	embedding, err := h.embedder.FaceEmbedding(r.Context(), imageData, filename)
	if err != nil {
		log.Printf("face embedding failed for user %s: %v", user.ID, err)
		respondError(w, http.StatusBadGateway, "face embedding service failed")
		return
	}
	if len(embedding) == 0 {
		respondError(w, http.StatusUnprocessableEntity, "no face found in image")
		return
	}

	if err := h.users.UpdateFaceEmbedding(r.Context(), user.ID, embedding); err != nil {
		log.Printf("failed to store face embedding for user %s: %v", user.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to store face embedding")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"dimension": len(embedding),
	})
}

// readFormImage reads a single uploaded image field. Writes an error response
// and returns ok=false when the field is missing or unreadable.
func readFormImage(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("%s is required", field))
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil || len(data) == 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s", field))
		return nil, "", false
	}
	return data, header.Filename, true
}
