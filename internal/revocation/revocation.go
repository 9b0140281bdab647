// Package revocation tracks access tokens that were invalidated before expiry.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/academictracker/api/internal/cache"
	"github.com/redis/go-redis/v9"
)

// Store records revoked token IDs until their natural expiry.
type Store interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// New returns a Redis-backed store, or an in-process store when client is nil.
func New(client *redis.Client, namespace string) Store {
	if client == nil {
		return NewMemory()
	}
	return &redisStore{client: client, namespace: namespace}
}

type redisStore struct {
	client    *redis.Client
	namespace string
}

func (s *redisStore) key(tokenID string) string {
	return cache.Key(s.namespace, "revoked", tokenID)
}

func (s *redisStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *redisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.client.Get(ctx, s.key(tokenID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("check revocation: %w", err)
	}
}

// Memory is a single-process Store used when Redis is not configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	if until.After(now) {
		m.entries[tokenID] = until
	}
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(m.now()) {
		delete(m.entries, tokenID)
		return false, nil
	}
	return true, nil
}
