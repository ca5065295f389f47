package federation

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/SanVenturas/Tavern-Register/domain"
)

// ExternalIdentity holds the standardized identity claim retrieved from an
// external OAuth2 provider. ProviderUserID is the stable identifier the
// binding invariant keys on; everything else is advisory.
type ExternalIdentity struct {
	ProviderUserID string
	DisplayName    string
	Username       string
	Email          string
	RawData        map[string]any
}

// Provider is an external OAuth2 identity provider.
type Provider interface {
	// Name returns the provider identifier ("github", "google").
	Name() domain.Provider

	// AuthCodeURL builds the authorization URL the user is redirected to,
	// carrying the anti-CSRF state parameter.
	AuthCodeURL(state string) string

	// ExchangeCode exchanges an authorization code for a token.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// FetchUserInfo retrieves the user's identity with the given token.
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalIdentity, error)
}

// Config is the per-provider OAuth2 client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// BaseProvider holds the oauth2.Config shared by provider implementations.
type BaseProvider struct {
	name domain.Provider
	conf *oauth2.Config
}

func newBaseProvider(name domain.Provider, conf *oauth2.Config) *BaseProvider {
	return &BaseProvider{name: name, conf: conf}
}

func (b *BaseProvider) Name() domain.Provider {
	return b.name
}

func (b *BaseProvider) AuthCodeURL(state string) string {
	return b.conf.AuthCodeURL(state)
}

func (b *BaseProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return b.conf.Exchange(ctx, code)
}

// httpClient returns a client authenticated with the token for calls to the
// provider's API.
func (b *BaseProvider) httpClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return b.conf.Client(ctx, token)
}

// Registry maps provider names to configured providers.
type Registry struct {
	providers map[domain.Provider]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[domain.Provider]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider by name, or ErrProviderNotFound.
func (r *Registry) Get(name domain.Provider) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}
