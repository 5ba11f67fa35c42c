package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/campusmess/mess-server/internal/database"
	"github.com/campusmess/mess-server/internal/facematch"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint would be violated.
var ErrDuplicate = errors.New("already exists")

// UserRepository provides PostgreSQL-backed user storage and an optional
// in-memory HNSW index over registered face embeddings.
type UserRepository struct {
	pool *Pool

	hnswMu        sync.RWMutex
	hnswIndex     *facematch.Index
	hnswIndexPath string
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// embeddingValue converts an embedding slice into a driver value, mapping an
// empty slice to SQL NULL.
func embeddingValue(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// scanEmbedding parses a nullable vector column fetched as text.
func scanEmbedding(s sql.NullString) ([]float32, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var vec pgvector.Vector
	if err := vec.Scan(s.String); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	return vec.Slice(), nil
}

// CreateUser inserts a new user. Returns ErrDuplicate when the email is taken.
func (r *UserRepository) CreateUser(ctx context.Context, u *database.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, face_embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, embeddingValue(u.FaceEmbedding), u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create user rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*database.User, error) {
	var u database.User
	var emb sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &emb, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.FaceEmbedding, err = scanEmbedding(emb)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID fetches a user by ID. Returns ErrNotFound if missing.
func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, face_embedding::text, created_at
		FROM users WHERE id = $1
	`, id)
	return r.scanUser(row)
}

// GetUserByEmail fetches a user by email. Returns ErrNotFound if missing.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, role, face_embedding::text, created_at
		FROM users WHERE email = $1
	`, email)
	return r.scanUser(row)
}

// UpdateFaceEmbedding stores a new face embedding for a user.
func (r *UserRepository) UpdateFaceEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE users SET face_embedding = $2 WHERE id = $1", id, embeddingValue(embedding))
	if err != nil {
		return fmt.Errorf("update face embedding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update face embedding rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	// Keep the HNSW index in sync with new registrations.
	r.hnswMu.RLock()
	ix := r.hnswIndex
	r.hnswMu.RUnlock()
	if ix != nil {
		ix.Add(facematch.Candidate{UserID: id, Embedding: embedding})
	}
	return nil
}

// ListFaceCandidates returns all registered face embeddings, ordered by
// registration time then ID so distance ties resolve the same way on every
// scan.
func (r *UserRepository) ListFaceCandidates(ctx context.Context) ([]facematch.Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, face_embedding::text
		FROM users
		WHERE face_embedding IS NOT NULL
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query face candidates: %w", err)
	}
	defer rows.Close()

	var candidates []facematch.Candidate
	for rows.Next() {
		var c facematch.Candidate
		var emb sql.NullString
		if err := rows.Scan(&c.UserID, &emb); err != nil {
			return nil, fmt.Errorf("scan face candidate: %w", err)
		}
		c.Embedding, err = scanEmbedding(emb)
		if err != nil {
			return nil, err
		}
		if len(c.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face candidates: %w", err)
	}
	return candidates, nil
}

// EnableHNSW builds or loads an in-memory HNSW index over registered faces.
// If indexPath is set, a saved index is loaded when its count still matches
// the database; otherwise the index is rebuilt and saved. Call once at
// startup.
func (r *UserRepository) EnableHNSW(ctx context.Context, indexPath string, dim int) error {
	r.hnswMu.Lock()
	defer r.hnswMu.Unlock()

	r.hnswIndexPath = indexPath

	var dbFaceCount int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE face_embedding IS NOT NULL").Scan(&dbFaceCount)
	if err != nil {
		return fmt.Errorf("count registered faces: %w", err)
	}

	if indexPath != "" {
		if _, err := os.Stat(indexPath); err == nil {
			ix, err := facematch.LoadIndex(indexPath, dim)
			if err == nil && ix.Count() == dbFaceCount {
				r.hnswIndex = ix
				return nil
			}
			if err != nil {
				fmt.Printf("Warning: failed to load face index from %s: %v (will rebuild)\n", indexPath, err)
			}
		}
	}

	candidates, err := r.ListFaceCandidates(ctx)
	if err != nil {
		return fmt.Errorf("load face candidates: %w", err)
	}

	ix := facematch.NewIndex(candidates)
	if indexPath != "" && ix.Count() > 0 {
		if err := ix.Save(indexPath); err != nil {
			fmt.Printf("Warning: failed to save face index to %s: %v\n", indexPath, err)
		}
	}

	r.hnswIndex = ix
	return nil
}

// FaceIndex returns the HNSW index, or nil when EnableHNSW was never called.
func (r *UserRepository) FaceIndex() *facematch.Index {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	return r.hnswIndex
}

// HNSWCount returns the number of faces in the HNSW index.
func (r *UserRepository) HNSWCount() int {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()
	if r.hnswIndex == nil {
		return 0
	}
	return r.hnswIndex.Count()
}

// SaveHNSWIndex saves the current HNSW index to disk (if a path is set).
func (r *UserRepository) SaveHNSWIndex() error {
	r.hnswMu.RLock()
	defer r.hnswMu.RUnlock()

	if r.hnswIndexPath == "" || r.hnswIndex == nil {
		return nil
	}
	if err := r.hnswIndex.Save(r.hnswIndexPath); err != nil {
		return fmt.Errorf("saving face index: %w", err)
	}
	return nil
}

// CountUsers returns the number of users, optionally filtered by role.
func (r *UserRepository) CountUsers(ctx context.Context, role string) (int, error) {
	var count int
	var err error
	if role == "" {
		err = r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE role = $1", role).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
