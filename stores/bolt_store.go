package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Desarso/datarex/models"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	threadsBucket = []byte("threads")
	// user_threads keys are userID + 0x00 + threadID; values are the
	// thread's ThreadInfo so listings never decode message histories.
	userThreadsBucket = []byte("user_threads")
)

// BoltStore implements ThreadStore on a bbolt file. Each thread is one JSON
// document keyed by its id. bbolt serializes write transactions, so every
// read-modify-write runs inside a single Update and is atomic.
type BoltStore struct {
	db *bolt.DB
}

var _ ThreadStore = (*BoltStore)(nil)

// NewBoltStore opens (creating if needed) the bbolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{threadsBucket, userThreadsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func userKey(userID, threadID string) []byte {
	k := make([]byte, 0, len(userID)+1+len(threadID))
	k = append(k, userID...)
	k = append(k, 0)
	return append(k, threadID...)
}

func getThread(tx *bolt.Tx, id string) (*Thread, error) {
	v := tx.Bucket(threadsBucket).Get([]byte(id))
	if v == nil {
		return nil, ErrThreadNotFound
	}
	var t Thread
	if err := json.Unmarshal(v, &t); err != nil {
		return nil, fmt.Errorf("failed to decode thread %s: %w", id, err)
	}
	if t.Messages == nil {
		t.Messages = []models.Message{}
	}
	return &t, nil
}

func putThread(tx *bolt.Tx, t *Thread) error {
	enc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode thread: %w", err)
	}
	if err := tx.Bucket(threadsBucket).Put([]byte(t.ID), enc); err != nil {
		return err
	}
	info, err := json.Marshal(t.Info())
	if err != nil {
		return fmt.Errorf("failed to encode thread info: %w", err)
	}
	return tx.Bucket(userThreadsBucket).Put(userKey(t.UserID, t.ID), info)
}

func (s *BoltStore) CreateThread(ctx context.Context, userID, title, provider string) (*Thread, error) {
	t := newThread(uuid.NewString(), userID, title, provider)
	if err := s.db.Update(func(tx *bolt.Tx) error { return putThread(tx, t) }); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return t, nil
}

func (s *BoltStore) GetThread(ctx context.Context, id string) (*Thread, error) {
	var t *Thread
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		t, err = getThread(tx, id)
		return err
	})
	return t, err
}

func (s *BoltStore) modify(id string, fn func(t *Thread)) (*Thread, error) {
	var t *Thread
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		if t, err = getThread(tx, id); err != nil {
			return err
		}
		fn(t)
		t.UpdatedAt = time.Now().UTC()
		return putThread(tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *BoltStore) UpdateThread(ctx context.Context, id string, update ThreadUpdate) (*Thread, error) {
	return s.modify(id, update.apply)
}

func (s *BoltStore) AddMessage(ctx context.Context, id string, msg models.Message) error {
	_, err := s.modify(id, func(t *Thread) {
		t.Messages = append(t.Messages, msg)
	})
	return err
}

func (s *BoltStore) ListThreads(ctx context.Context, userID string) ([]ThreadInfo, error) {
	result := []ThreadInfo{}
	prefix := userKey(userID, "")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(userThreadsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var info ThreadInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return fmt.Errorf("failed to decode thread info: %w", err)
			}
			result = append(result, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *BoltStore) DeleteThread(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		t, err := getThread(tx, id)
		if err == ErrThreadNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Bucket(userThreadsBucket).Delete(userKey(t.UserID, t.ID)); err != nil {
			return err
		}
		deleted = true
		return tx.Bucket(threadsBucket).Delete([]byte(id))
	})
	return deleted, err
}

// Ping checks that the database file is still open and readable.
func (s *BoltStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(threadsBucket) == nil {
			return fmt.Errorf("bucket %s missing", threadsBucket)
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
