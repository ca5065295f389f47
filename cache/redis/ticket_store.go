package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/SanVenturas/Tavern-Register/cache"
	"github.com/SanVenturas/Tavern-Register/domain"
)

// TicketStore implements cache.TicketStore on Redis. Tickets are stored as
// JSON under a key whose TTL matches the ticket's expiry, so expired tickets
// vanish without a sweep goroutine.
type TicketStore struct {
	client *redis.Client
	prefix string
}

// NewTicketStore creates a Redis-backed ticket store.
func NewTicketStore(client *redis.Client, prefix string) *TicketStore {
	return &TicketStore{client: client, prefix: prefix}
}

func (s *TicketStore) redisKey(id string) string {
	return fmt.Sprintf("%s:ticket:%s", s.prefix, id)
}

// Create implements cache.TicketStore.Create.
func (s *TicketStore) Create(ctx context.Context, provider domain.Provider, providerID, displayName string) (string, error) {
	id, err := cache.NewTicketID()
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
		ExpiresAt:   now.Add(cache.TicketTTL),
	}

	payload, err := json.Marshal(ticket)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ticket: %w", err)
	}
	if err := s.client.Set(ctx, s.redisKey(id), payload, cache.TicketTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store ticket in Redis: %w", err)
	}

	return id, nil
}

// Peek implements cache.TicketStore.Peek.
func (s *TicketStore) Peek(ctx context.Context, id string) (*domain.Ticket, bool) {
	payload, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Msg("Redis ticket lookup failed")
		}
		return nil, false
	}

	var ticket domain.Ticket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal ticket from Redis")
		return nil, false
	}
	if !ticket.Live(time.Now()) {
		return nil, false
	}
	return &ticket, true
}

// Finalize implements cache.TicketStore.Finalize. GETDEL removes the ticket
// atomically; a second Finalize finds nothing and is a no-op.
func (s *TicketStore) Finalize(ctx context.Context, id string) {
	if _, err := s.client.GetDel(ctx, s.redisKey(id)).Result(); err != nil && !errors.Is(err, redis.Nil) {
		log.Error().Err(err).Msg("Redis ticket finalize failed")
	}
}

// Cancel implements cache.TicketStore.Cancel.
func (s *TicketStore) Cancel(ctx context.Context, id string) bool {
	payload, err := s.client.GetDel(ctx, s.redisKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Msg("Redis ticket cancel failed")
		}
		return false
	}

	var ticket domain.Ticket
	if err := json.Unmarshal(payload, &ticket); err != nil {
		return false
	}
	return ticket.Live(time.Now())
}

// Close is a no-op; the Redis client is shared and closed by the caller.
func (s *TicketStore) Close() {}

var _ cache.TicketStore = (*TicketStore)(nil)
