package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore keeps session snapshots for the lifetime of a page session.
type SnapshotStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
	// Claim marks key as taken for ttl. Only the first caller across all instances gets true.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// sweepEvery controls how often MemoryStore drops expired entries on write.
const sweepEvery = 256

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a process-local SnapshotStore. Snapshots are stored encoded so callers never share state.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	items  map[string]memoryEntry
	claims map[string]time.Time
	writes int
}

// NewMemoryStore returns a MemoryStore whose entries expire ttl after their last write.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, items: map[string]memoryEntry{}, claims: map[string]time.Time{}}
}

// Load returns a copy of the snapshot or ErrSessionNotFound.
func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	entry, ok := m.items[id]
	if ok && m.expired(entry) {
		delete(m.items, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(entry.data)
}

// Save stores a copy of the snapshot.
func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{data: data}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.items[sess.ID] = entry
	m.writes++
	if m.writes%sweepEvery == 0 {
		for k, v := range m.items {
			if m.expired(v) {
				delete(m.items, k)
			}
		}
		now := m.now()
		for k, until := range m.claims {
			if !now.Before(until) {
				delete(m.claims, k)
			}
		}
	}
	return nil
}

// Claim reports whether key was free and takes it until ttl passes.
func (m *MemoryStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if until, ok := m.claims[key]; ok && now.Before(until) {
		return false, nil
	}
	m.claims[key] = now.Add(ttl)
	return true, nil
}

// Delete removes a snapshot.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored snapshots, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

// Key prefixes for session snapshots and one-shot claims.
const (
	redisKeyPrefix   = "prizewheel:session:"
	redisClaimPrefix = "prizewheel:claim:"
)

// RedisStore shares snapshots between instances through Redis.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore whose keys expire ttl after their last write.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load fetches and decodes a snapshot.
func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	return decodeSession(data)
}

// Save encodes and stores a snapshot, refreshing its TTL.
func (r *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	if errSet := r.client.Set(ctx, redisKey(sess.ID), data, r.ttl).Err(); errSet != nil {
		return fmt.Errorf("session: redis set: %w", errSet)
	}
	return nil
}

// Delete removes a snapshot.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if errDel := r.client.Del(ctx, redisKey(id)).Err(); errDel != nil {
		return fmt.Errorf("session: redis del: %w", errDel)
	}
	return nil
}

// Claim takes key with SET NX so concurrent instances cannot both win it.
func (r *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisClaimPrefix+strings.TrimSpace(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("session: redis setnx: %w", err)
	}
	return ok, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + strings.TrimSpace(id)
}

func encodeSession(sess *Session) ([]byte, error) {
	if sess == nil || strings.TrimSpace(sess.ID) == "" {
		return nil, errors.New("session: missing id")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	return &sess, nil
}
