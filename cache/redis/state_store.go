package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/SanVenturas/Tavern-Register/cache"
)

// StateStore implements cache.StateStore on Redis so multiple broker
// instances can share one state-token domain. Expiry is delegated to Redis
// key TTLs; consumption uses GETDEL for at-most-once semantics.
type StateStore struct {
	client *redis.Client
	prefix string
}

// NewStateStore creates a Redis-backed state store.
func NewStateStore(client *redis.Client, prefix string) *StateStore {
	return &StateStore{client: client, prefix: prefix}
}

func (s *StateStore) redisKey(token string) string {
	return fmt.Sprintf("%s:state:%s", s.prefix, token)
}

// Issue implements cache.StateStore.Issue.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	token, err := cache.NewStateToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.redisKey(token), "1", cache.StateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store state token in Redis: %w", err)
	}
	return token, nil
}

// Consume implements cache.StateStore.Consume. GETDEL makes the read and the
// delete a single atomic operation on the Redis side.
func (s *StateStore) Consume(ctx context.Context, token string) bool {
	_, err := s.client.GetDel(ctx, s.redisKey(token)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Msg("Redis state token consume failed")
		}
		return false
	}
	return true
}

// Close is a no-op; the Redis client is shared and closed by the caller.
func (s *StateStore) Close() {}

var _ cache.StateStore = (*StateStore)(nil)
