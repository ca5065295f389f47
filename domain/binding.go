package domain

import (
	"context"
	"time"
)

// Provider identifies a third-party identity provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// IdentityBinding is the durable association between a third-party identity
// and a handle on the remote account service. It is the only durable entity
// owned by the broker; tickets and state tokens live in transient stores.
type IdentityBinding struct {
	ID           string    `bson:"_id,omitempty"`
	Provider     Provider  `bson:"provider"`
	ProviderID   string    `bson:"provider_id"`
	RemoteHandle string    `bson:"remote_handle,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

// BindingRepository stores identity bindings. Implementations must enforce
// uniqueness of (provider, provider_id) and of remote_handle at the storage
// layer; application code relies on that constraint as the backstop against
// concurrent registrations racing past the early FindBinding check.
type BindingRepository interface {
	// FindBinding returns the binding for a third-party identity, or
	// (nil, nil) if none exists.
	FindBinding(ctx context.Context, provider Provider, providerID string) (*IdentityBinding, error)

	// UpsertBinding atomically associates a remote handle with a third-party
	// identity. It returns ErrBindingConflict if the identity is already bound
	// to a different handle, or if the handle is already claimed by a
	// different identity.
	UpsertBinding(ctx context.Context, provider Provider, providerID, remoteHandle string) error
}
