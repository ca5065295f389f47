package domain

import "errors"

var (
	// ErrStateTokenInvalid means the OAuth state parameter was absent,
	// already consumed, or older than its TTL.
	ErrStateTokenInvalid = errors.New("state token is invalid or expired")

	// ErrTicketInvalid covers absent, used, and expired tickets. The three
	// cases are deliberately collapsed so callers cannot distinguish them.
	ErrTicketInvalid = errors.New("ticket is invalid or expired")

	// ErrAlreadyBound means the third-party identity already claimed a
	// remote handle.
	ErrAlreadyBound = errors.New("identity is already bound to a remote handle")

	// ErrBindingConflict means the storage-level uniqueness constraint
	// rejected a binding; a concurrent registration won the race. The user
	// can retry by restarting the OAuth flow.
	ErrBindingConflict = errors.New("binding conflicts with an existing one")
)
