// Package session keeps issued access tokens so a later request can look
// up who the token belongs to.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

const keyPrefix = "session:"

// Session is what gets stored per access token.
type Session struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email,omitempty"`
	Roles        []string  `json:"roles,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// Store saves sessions keyed by access token.
type Store interface {
	Save(ctx context.Context, token string, s Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
}

// RedisStore keeps sessions as JSON strings with an expiry.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisStore) Save(ctx context.Context, token string, s Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	raw, err := r.client.Get(ctx, keyPrefix+token).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// sweepInterval bounds how often Save scans for expired sessions.
const sweepInterval = time.Minute

// MemoryStore is an in-process Store honoring TTLs. Expired entries are
// dropped on read and swept from Save.
type MemoryStore struct {
	mu        sync.Mutex
	data      map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

type memoryEntry struct {
	s       Session
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, token string, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	m.data[token] = memoryEntry{s: s, expires: exp}
	return nil
}

// sweep must be called with mu held.
func (m *MemoryStore) sweep(now time.Time) {
	for token, e := range m.data {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.data, token)
		}
	}
	m.lastSweep = now
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.data, token)
		return nil, ErrSessionNotFound
	}
	s := e.s
	return &s, nil
}
