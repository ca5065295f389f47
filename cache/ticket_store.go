package cache

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/SanVenturas/Tavern-Register/domain"
)

// TicketTTL bounds how long a verified identity claim may wait between the
// OAuth callback and the registration submission.
const TicketTTL = 5 * time.Minute

// TicketStore holds authorization tickets: server-side, single-use carriers
// of a verified third-party identity claim. Every read re-validates absence,
// use, and expiry atomically.
type TicketStore interface {
	// Create stores a fresh claim and returns its unguessable ticket ID.
	Create(ctx context.Context, provider domain.Provider, providerID, displayName string) (string, error)

	// Peek returns the claim iff the ticket exists, is unused, and is not
	// expired. It never mutates state, so confirmation pages can call it
	// repeatedly.
	Peek(ctx context.Context, id string) (*domain.Ticket, bool)

	// Finalize marks the ticket used and removes it. Finalizing an absent
	// ticket is a no-op.
	Finalize(ctx context.Context, id string)

	// Cancel removes the ticket and reports whether a live one was removed.
	Cancel(ctx context.Context, id string) bool

	Close()
}

// NewTicketID generates an unguessable ticket identifier (256 bits).
func NewTicketID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemoryTicketStore implements TicketStore using ttlcache, the same backing
// the state store uses. Used tickets are removed immediately on Finalize;
// abandoned ones are swept by the cache once past their TTL.
type MemoryTicketStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *domain.Ticket]
	ttl   time.Duration
}

// NewMemoryTicketStore creates an in-memory ticket store with automatic cleanup.
func NewMemoryTicketStore() *MemoryTicketStore {
	return NewMemoryTicketStoreWithTTL(TicketTTL)
}

// NewMemoryTicketStoreWithTTL creates a ticket store with a custom ticket
// lifetime. Tests use this to exercise the expiry path.
func NewMemoryTicketStoreWithTTL(ttl time.Duration) *MemoryTicketStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.Ticket](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.Ticket](),
	)
	go cache.Start()

	return &MemoryTicketStore{cache: cache, ttl: ttl}
}

// Create implements TicketStore.Create.
func (s *MemoryTicketStore) Create(_ context.Context, provider domain.Provider, providerID, displayName string) (string, error) {
	id, err := NewTicketID()
	if err != nil {
		return "", err
	}

	now := time.Now()
	ticket := &domain.Ticket{
		ID:          id,
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: displayName,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(id, ticket, s.ttl)

	return id, nil
}

// Peek implements TicketStore.Peek.
func (s *MemoryTicketStore) Peek(_ context.Context, id string) (*domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return nil, false
	}
	ticket := item.Value()
	if !ticket.Live(time.Now()) {
		return nil, false
	}

	claim := *ticket
	return &claim, true
}

// Finalize implements TicketStore.Finalize.
func (s *MemoryTicketStore) Finalize(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return
	}
	item.Value().Used = true
	s.cache.Delete(id)
}

// Cancel implements TicketStore.Cancel.
func (s *MemoryTicketStore) Cancel(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil || !item.Value().Live(time.Now()) {
		return false
	}
	s.cache.Delete(id)
	return true
}

// Close stops the cleanup goroutine.
func (s *MemoryTicketStore) Close() {
	s.cache.Stop()
}

var _ TicketStore = (*MemoryTicketStore)(nil)
