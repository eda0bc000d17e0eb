package stores

import (
	"context"
	"errors"
	"time"

	"github.com/Desarso/datarex/models"
)

// ErrThreadNotFound is returned by GetThread, UpdateThread and AddMessage when
// no thread exists under the given id. It is never used for any other failure.
var ErrThreadNotFound = errors.New("thread not found")

// Thread is a persisted conversation with its full message history.
type Thread struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Provider  string           `json:"provider"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []models.Message `json:"messages"`
}

// Info returns the listing metadata of the thread.
func (t *Thread) Info() ThreadInfo {
	return ThreadInfo{
		ID:           t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Provider:     t.Provider,
		MessageCount: len(t.Messages),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// ThreadInfo holds thread metadata for listing, without messages.
type ThreadInfo struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Provider     string    `json:"provider"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ThreadUpdate is a partial metadata update. Nil fields are left untouched.
type ThreadUpdate struct {
	Title    *string `json:"title,omitempty"`
	Provider *string `json:"provider,omitempty"`
}

func (u ThreadUpdate) apply(t *Thread) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Provider != nil {
		t.Provider = *u.Provider
	}
}

// ThreadStore persists threads. Implementations must make AddMessage safe
// for concurrent appends to the same thread: no append is ever lost.
type ThreadStore interface {
	CreateThread(ctx context.Context, userID, title, provider string) (*Thread, error)
	// GetThread returns ErrThreadNotFound when id is unknown.
	GetThread(ctx context.Context, id string) (*Thread, error)
	// UpdateThread merges the non-nil fields of update and refreshes UpdatedAt.
	UpdateThread(ctx context.Context, id string, update ThreadUpdate) (*Thread, error)
	// AddMessage appends msg to the end of the thread's history.
	AddMessage(ctx context.Context, id string, msg models.Message) error
	// ListThreads returns the user's threads, most recently updated first.
	ListThreads(ctx context.Context, userID string) ([]ThreadInfo, error)
	// DeleteThread reports whether a thread was removed.
	DeleteThread(ctx context.Context, id string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// StoreConfig selects a backend and its connection string.
type StoreConfig struct {
	Type       string `json:"type"`       // "bolt", "sqlite" or "postgres"
	Connection string `json:"connection"` // file path or DSN
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
	}
}

func newThread(id, userID, title, provider string) *Thread {
	now := time.Now().UTC()
	return &Thread{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Provider:  provider,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
}
