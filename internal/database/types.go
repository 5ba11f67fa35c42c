package database

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. FaceEmbedding is nil until the user has
// registered a face; its length depends on the embedding service model.
type User struct {
	ID            uuid.UUID
	Name          string
	Email         string
	PasswordHash  string
	Role          string // "user" or "admin"
	FaceEmbedding []float32
	CreatedAt     time.Time
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// HasFace reports whether the user has a registered face embedding.
func (u *User) HasFace() bool {
	return len(u.FaceEmbedding) > 0
}

// MenuItem is one catalog entry. Aliases are alternate spellings accepted by
// the scan matcher; they are normalized at lookup time, not at rest.
type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Price       float64
	Category    string
	Description string
	IsAvailable bool
	Aliases     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TransactionItem is one purchased line of a transaction. Name and price are
// frozen at purchase time so later menu edits don't rewrite history.
type TransactionItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Transaction statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Transaction records a purchase. FaceDistance and RawDetections are only set
// for scan-produced transactions and exist for audit/debugging.
type Transaction struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Items         []TransactionItem
	Total         float64
	Status        string
	FaceDistance  *float64 // nil when the face fell back to the requesting user
	RawDetections []byte   // raw vision payload as JSON, nil for manual transactions
	CreatedAt     time.Time
}

// DailyMenu pins a set of catalog items to a calendar date.
type DailyMenu struct {
	ID        uuid.UUID
	MenuDate  time.Time
	ItemIDs   []uuid.UUID
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WeeklyMenu is the recurring menu for one day of the week. Each meal slot
// holds references into the catalog; at most one menu exists per weekday.
type WeeklyMenu struct {
	ID        uuid.UUID
	DayOfWeek int // 0 = Sunday through 6 = Saturday, matching time.Weekday
	Breakfast []uuid.UUID
	Lunch     []uuid.UUID
	Dinner    []uuid.UUID
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredSession is a persisted login session.
type StoredSession struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}
