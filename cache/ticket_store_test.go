package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanVenturas/Tavern-Register/cache"
	"github.com/SanVenturas/Tavern-Register/domain"
)

func TestTicketStoreCreatePeek(t *testing.T) {
	store := cache.NewMemoryTicketStore()
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, domain.ProviderGitHub, "42", "alice")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	claim, ok := store.Peek(ctx, id)
	require.True(t, ok)
	assert.Equal(t, domain.ProviderGitHub, claim.Provider)
	assert.Equal(t, "42", claim.ProviderID)
	assert.Equal(t, "alice", claim.DisplayName)
	assert.False(t, claim.Used)
	assert.WithinDuration(t, claim.CreatedAt.Add(cache.TicketTTL), claim.ExpiresAt, time.Second)

	// Peek is read-only: repeated reads keep succeeding.
	_, ok = store.Peek(ctx, id)
	assert.True(t, ok)
}

func TestTicketStoreFinalize(t *testing.T) {
	store := cache.NewMemoryTicketStore()
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, domain.ProviderGitHub, "42", "alice")
	require.NoError(t, err)

	store.Finalize(ctx, id)
	_, ok := store.Peek(ctx, id)
	assert.False(t, ok)

	// Finalizing again is a no-op.
	store.Finalize(ctx, id)
}

func TestTicketStoreCancel(t *testing.T) {
	store := cache.NewMemoryTicketStore()
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, domain.ProviderGoogle, "7", "bob")
	require.NoError(t, err)

	assert.True(t, store.Cancel(ctx, id))
	_, ok := store.Peek(ctx, id)
	assert.False(t, ok)
	assert.False(t, store.Cancel(ctx, id), "second cancel finds no live ticket")
}

func TestTicketStoreUnknownID(t *testing.T) {
	store := cache.NewMemoryTicketStore()
	defer store.Close()
	ctx := context.Background()

	_, ok := store.Peek(ctx, "no-such-ticket")
	assert.False(t, ok)
	assert.False(t, store.Cancel(ctx, "no-such-ticket"))
}

func TestTicketStoreExpiredTicketAbsent(t *testing.T) {
	store := cache.NewMemoryTicketStoreWithTTL(20 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, domain.ProviderGitHub, "42", "alice")
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	_, ok := store.Peek(ctx, id)
	assert.False(t, ok, "ticket past its TTL must read as absent")
	assert.False(t, store.Cancel(ctx, id))
}

func TestTicketStorePeekReturnsCopy(t *testing.T) {
	store := cache.NewMemoryTicketStore()
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, domain.ProviderGitHub, "42", "alice")
	require.NoError(t, err)

	claim, ok := store.Peek(ctx, id)
	require.True(t, ok)
	claim.Used = true // Mutating the copy must not poison the stored ticket.

	_, ok = store.Peek(ctx, id)
	assert.True(t, ok)
}

func TestNewTicketIDUnguessable(t *testing.T) {
	a, err := cache.NewTicketID()
	require.NoError(t, err)
	b, err := cache.NewTicketID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 43, "at least 256 bits of entropy")
}
