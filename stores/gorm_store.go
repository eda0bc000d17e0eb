package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Desarso/datarex/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// threadRecord is the relational row of a thread. The message history lives
// in a single JSON column in conversation order.
type threadRecord struct {
	ID           string         `gorm:"primaryKey;size:36"`
	UserID       string         `gorm:"index;not null"`
	Title        string         `gorm:"type:text"`
	Provider     string         `gorm:"size:64"`
	MessageCount int            `gorm:"default:0"`
	Messages     datatypes.JSON `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"index"`
}

func (threadRecord) TableName() string { return "threads" }

func (r *threadRecord) toThread() (*Thread, error) {
	msgs, err := decodeMessages(r.Messages)
	if err != nil {
		return nil, fmt.Errorf("thread %s: %w", r.ID, err)
	}
	return &Thread{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Provider:  r.Provider,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Messages:  msgs,
	}, nil
}

func decodeMessages(raw datatypes.JSON) ([]models.Message, error) {
	msgs := []models.Message{}
	if len(raw) == 0 {
		return msgs, nil
	}
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}

// GormStore implements ThreadStore on a relational database through gorm.
// Read-modify-write operations hold a per-thread lock and run in a
// transaction; dialects with row locks also take SELECT ... FOR UPDATE so
// several processes can share one database.
type GormStore struct {
	db       *gorm.DB
	locks    *keyedMutex
	rowLocks bool
}

var _ ThreadStore = (*GormStore)(nil)

// NewGormStore migrates the schema and returns a store over db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&threadRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return &GormStore{
		db:       db,
		locks:    newKeyedMutex(),
		rowLocks: db.Dialector.Name() == "postgres",
	}, nil
}

func (s *GormStore) CreateThread(ctx context.Context, userID, title, provider string) (*Thread, error) {
	t := newThread(uuid.NewString(), userID, title, provider)
	rec := threadRecord{
		ID:        t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Provider:  t.Provider,
		Messages:  datatypes.JSON("[]"),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to create thread record: %w", err)
	}
	return t, nil
}

func (s *GormStore) GetThread(ctx context.Context, id string) (*Thread, error) {
	rec, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return rec.toThread()
}

// find uses Find rather than First so a missing row is not logged as an error.
func (s *GormStore) find(tx *gorm.DB, id string) (*threadRecord, error) {
	var rec threadRecord
	res := tx.Where("id = ?", id).Limit(1).Find(&rec)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to fetch thread: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrThreadNotFound
	}
	return &rec, nil
}

// modify runs fn on the locked thread inside a transaction and saves the
// columns fn returns.
func (s *GormStore) modify(ctx context.Context, id string, fn func(rec *threadRecord) (map[string]interface{}, error)) (*threadRecord, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var out *threadRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if s.rowLocks {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		rec, err := s.find(q, id)
		if err != nil {
			return err
		}
		changes, err := fn(rec)
		if err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC()
		changes["updated_at"] = rec.UpdatedAt
		if err := tx.Model(&threadRecord{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return fmt.Errorf("failed to update thread: %w", err)
		}
		out = rec
		return nil
	})
	return out, err
}

func (s *GormStore) UpdateThread(ctx context.Context, id string, update ThreadUpdate) (*Thread, error) {
	rec, err := s.modify(ctx, id, func(rec *threadRecord) (map[string]interface{}, error) {
		changes := map[string]interface{}{}
		if update.Title != nil {
			rec.Title = *update.Title
			changes["title"] = rec.Title
		}
		if update.Provider != nil {
			rec.Provider = *update.Provider
			changes["provider"] = rec.Provider
		}
		return changes, nil
	})
	if err != nil {
		return nil, err
	}
	return rec.toThread()
}

func (s *GormStore) AddMessage(ctx context.Context, id string, msg models.Message) error {
	_, err := s.modify(ctx, id, func(rec *threadRecord) (map[string]interface{}, error) {
		msgs, err := decodeMessages(rec.Messages)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		raw, err := json.Marshal(msgs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal messages: %w", err)
		}
		rec.Messages = raw
		rec.MessageCount = len(msgs)
		return map[string]interface{}{
			"messages":      datatypes.JSON(raw),
			"message_count": rec.MessageCount,
		}, nil
	})
	return err
}

func (s *GormStore) ListThreads(ctx context.Context, userID string) ([]ThreadInfo, error) {
	var recs []threadRecord
	err := s.db.WithContext(ctx).
		Select("id", "user_id", "title", "provider", "message_count", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch threads: %w", err)
	}

	result := make([]ThreadInfo, len(recs))
	for i, r := range recs {
		result[i] = ThreadInfo{
			ID:           r.ID,
			UserID:       r.UserID,
			Title:        r.Title,
			Provider:     r.Provider,
			MessageCount: r.MessageCount,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		}
	}
	return result, nil
}

func (s *GormStore) DeleteThread(ctx context.Context, id string) (bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&threadRecord{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete thread: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Ping checks if the database connection is alive
func (s *GormStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *GormStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
