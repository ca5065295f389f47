package cache

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// StateTTL bounds the lifetime of an OAuth state token: a callback arriving
// later than this is rejected even if the flow was never abandoned.
const StateTTL = 5 * time.Minute

// StateStore issues and consumes single-use anti-CSRF tokens for the OAuth
// start -> callback hop. Consume is at-most-once: two concurrent calls with
// the same token must not both succeed.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, token string) bool
	Close()
}

// NewStateToken generates a cryptographically random, URL-safe token.
func NewStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// MemoryStateStore implements StateStore using ttlcache. Entries expire via
// the cache's background cleanup goroutine; a mutex makes Consume atomic
// with respect to itself and the sweep.
type MemoryStateStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, time.Time]
	ttl   time.Duration
}

// NewMemoryStateStore creates an in-memory state store with automatic cleanup.
func NewMemoryStateStore() *MemoryStateStore {
	return NewMemoryStateStoreWithTTL(StateTTL)
}

// NewMemoryStateStoreWithTTL creates a state store with a custom token
// lifetime. Tests use this to exercise the expiry path.
func NewMemoryStateStoreWithTTL(ttl time.Duration) *MemoryStateStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, time.Time](ttl),
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)
	go cache.Start()

	return &MemoryStateStore{cache: cache, ttl: ttl}
}

// Issue implements StateStore.Issue.
func (s *MemoryStateStore) Issue(_ context.Context) (string, error) {
	token, err := NewStateToken()
	if err != nil {
		return "", err
	}
	s.cache.Set(token, time.Now(), s.ttl)
	return token, nil
}

// Consume deletes the token and reports whether it was present and within
// its TTL. Expired-but-not-yet-swept tokens are reported absent by the cache.
func (s *MemoryStateStore) Consume(_ context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(token) == nil {
		return false
	}
	s.cache.Delete(token)
	return true
}

// Close stops the cleanup goroutine.
func (s *MemoryStateStore) Close() {
	s.cache.Stop()
}

var _ StateStore = (*MemoryStateStore)(nil)
