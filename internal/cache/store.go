package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

// Store persists extracted text keyed by media identity.
type Store interface {
	// Get returns the stored text and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, kind, text string) error
	// Delete drops key and reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
}

// SQLiteStore keeps entries in the transcripts table of the informe
// database.
type SQLiteStore struct {
	db *store.DB
}

func NewSQLiteStore(db *store.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(_ context.Context, key string) (string, bool, error) {
	t, err := s.db.GetTranscript(key)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return t.Text, true, nil
}

func (s *SQLiteStore) Put(_ context.Context, key, kind, text string) error {
	return s.db.PutTranscript(store.Transcript{Key: key, Kind: kind, Text: text})
}

func (s *SQLiteStore) Delete(_ context.Context, key string) (bool, error) {
	err := s.db.DeleteTranscript(key)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// RedisStore keeps one hash per media identity under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// ConnectRedis dials addr and pings it.
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("testing connection: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	text, err := s.client.HGet(ctx, s.prefix+key, "text").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key, kind, text string) error {
	return s.client.HSet(ctx, s.prefix+key,
		"text", text,
		"kind", kind,
		"created_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryStore is a process-local store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.entries[key]
	return text, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key, _ string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = text
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
