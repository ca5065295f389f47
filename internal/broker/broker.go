package broker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/SanVenturas/Tavern-Register/cache"
	"github.com/SanVenturas/Tavern-Register/domain"
	"github.com/SanVenturas/Tavern-Register/internal/federation"
	"github.com/SanVenturas/Tavern-Register/internal/tavern"
)

// Provisioner creates accounts on the remote service.
type Provisioner interface {
	CreateAccount(ctx context.Context, account tavern.NewAccount) (string, error)
}

// CallbackResult is the outcome of an OAuth callback: either a ticket for a
// fresh registration, or the handle the identity is already bound to.
type CallbackResult struct {
	TicketID    string
	BoundHandle string
}

// Service is the OAuth ticket broker. It drives the whole flow between the
// web layer, the OAuth providers, the transient token stores, the durable
// binding store, and the remote provisioning client.
type Service struct {
	providers   *federation.Registry
	states      cache.StateStore
	tickets     cache.TicketStore
	bindings    domain.BindingRepository
	provisioner Provisioner
}

// NewService wires the broker's collaborators together.
func NewService(
	providers *federation.Registry,
	states cache.StateStore,
	tickets cache.TicketStore,
	bindings domain.BindingRepository,
	provisioner Provisioner,
) *Service {
	return &Service{
		providers:   providers,
		states:      states,
		tickets:     tickets,
		bindings:    bindings,
		provisioner: provisioner,
	}
}

// StartAuthorization issues a state token and returns the provider's
// authorization URL to redirect the user to.
func (s *Service) StartAuthorization(ctx context.Context, provider domain.Provider) (string, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return "", err
	}

	state, err := s.states.Issue(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to issue state token: %w", err)
	}

	return p.AuthCodeURL(state), nil
}

// HandleCallback processes the provider's redirect. The state token is
// single use and is consumed before the code exchange. A fresh identity gets
// a ticket; one already bound to a handle short-circuits to that handle.
func (s *Service) HandleCallback(ctx context.Context, provider domain.Provider, code, state string) (*CallbackResult, error) {
	// The registry lookup has no side effects, so a mangled provider path
	// does not burn an otherwise valid state token. The token is still
	// consumed before any network call.
	p, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	if state == "" || !s.states.Consume(ctx, state) {
		return nil, domain.ErrStateTokenInvalid
	}

	token, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", federation.ErrExchangeCodeFailed, err)
	}

	identity, err := p.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", federation.ErrFetchUserInfoFailed, err)
	}

	binding, err := s.bindings.FindBinding(ctx, provider, identity.ProviderUserID)
	if err != nil {
		return nil, err
	}
	if binding != nil && binding.RemoteHandle != "" {
		log.Info().Str("provider", string(provider)).Str("providerID", identity.ProviderUserID).
			Msg("Identity already bound, short-circuiting callback")
		return &CallbackResult{BoundHandle: binding.RemoteHandle}, nil
	}

	ticketID, err := s.tickets.Create(ctx, provider, identity.ProviderUserID, identity.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization ticket: %w", err)
	}

	return &CallbackResult{TicketID: ticketID}, nil
}

// PeekTicket returns the claim behind a live ticket without consuming it.
func (s *Service) PeekTicket(ctx context.Context, ticketID string) (*domain.Ticket, bool) {
	return s.tickets.Peek(ctx, ticketID)
}

// CancelTicket invalidates a pending flow; it reports whether a live ticket
// was actually removed. In-flight network calls are unaffected.
func (s *Service) CancelTicket(ctx context.Context, ticketID string) bool {
	return s.tickets.Cancel(ctx, ticketID)
}

// RegisterWithTicket drives the provisioning client and the binding store
// for one registration attempt. The early FindBinding check rejects bound
// identities before any remote side effect; the storage-level uniqueness
// constraint behind UpsertBinding is the backstop when two attempts race
// past that check. The ticket is finalized only after the binding is durable.
func (s *Service) RegisterWithTicket(ctx context.Context, ticketID, handle, displayName, password string) (string, error) {
	claim, ok := s.tickets.Peek(ctx, ticketID)
	if !ok {
		return "", domain.ErrTicketInvalid
	}

	binding, err := s.bindings.FindBinding(ctx, claim.Provider, claim.ProviderID)
	if err != nil {
		return "", err
	}
	if binding != nil && binding.RemoteHandle != "" {
		return "", domain.ErrAlreadyBound
	}

	if displayName == "" {
		displayName = claim.DisplayName
	}

	remoteHandle, err := s.provisioner.CreateAccount(ctx, tavern.NewAccount{
		Handle:      handle,
		DisplayName: displayName,
		Password:    password,
	})
	if err != nil {
		return "", err
	}

	if err := s.bindings.UpsertBinding(ctx, claim.Provider, claim.ProviderID, remoteHandle); err != nil {
		log.Warn().Err(err).Str("provider", string(claim.Provider)).Str("providerID", claim.ProviderID).
			Str("handle", remoteHandle).Msg("Binding rejected after remote account creation")
		return "", err
	}

	s.tickets.Finalize(ctx, ticketID)

	log.Info().Str("provider", string(claim.Provider)).Str("providerID", claim.ProviderID).
		Str("handle", remoteHandle).Msg("Registration completed")

	return remoteHandle, nil
}
