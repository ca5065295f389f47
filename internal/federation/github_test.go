package federation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/SanVenturas/Tavern-Register/domain"
	"github.com/SanVenturas/Tavern-Register/internal/federation"
)

func newGitHubProvider(t *testing.T) *federation.GitHubProvider {
	t.Helper()
	p, err := federation.NewGitHubProvider(federation.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://broker.example/auth/github/callback",
	})
	require.NoError(t, err)
	return p
}

func TestNewGitHubProviderRequiresCredentials(t *testing.T) {
	_, err := federation.NewGitHubProvider(federation.Config{ClientID: "only-id"})
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)
}

func TestGitHubAuthCodeURL(t *testing.T) {
	p := newGitHubProvider(t)

	authURL := p.AuthCodeURL("state-123")
	assert.Contains(t, authURL, "github.com")
	assert.Contains(t, authURL, "state=state-123")
	assert.Contains(t, authURL, "client_id=client-id")
	assert.Contains(t, authURL, "read%3Auser")
}

func TestGitHubFetchUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":12345,"login":"alice","name":"Alice L.","email":"alice@example.com"}`))
	}))
	defer server.Close()

	orig := federation.GithubUserInfoEndpoint
	federation.GithubUserInfoEndpoint = server.URL
	defer func() { federation.GithubUserInfoEndpoint = orig }()

	p := newGitHubProvider(t)
	identity, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
	require.NoError(t, err)

	assert.Equal(t, "12345", identity.ProviderUserID)
	assert.Equal(t, "Alice L.", identity.DisplayName)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "alice", identity.RawData["login"])
}

func TestGitHubFetchUserInfoNameFallsBackToLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":12345,"login":"alice","name":null}`))
	}))
	defer server.Close()

	orig := federation.GithubUserInfoEndpoint
	federation.GithubUserInfoEndpoint = server.URL
	defer func() { federation.GithubUserInfoEndpoint = orig }()

	p := newGitHubProvider(t)
	identity, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.DisplayName)
}

func TestGitHubFetchUserInfoRejectsMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"login":"alice"}`))
	}))
	defer server.Close()

	orig := federation.GithubUserInfoEndpoint
	federation.GithubUserInfoEndpoint = server.URL
	defer func() { federation.GithubUserInfoEndpoint = orig }()

	p := newGitHubProvider(t)
	_, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.ErrorContains(t, err, "no account id")
}

func TestGitHubFetchUserInfoUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer server.Close()

	orig := federation.GithubUserInfoEndpoint
	federation.GithubUserInfoEndpoint = server.URL
	defer func() { federation.GithubUserInfoEndpoint = orig }()

	p := newGitHubProvider(t)
	_, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.ErrorContains(t, err, "status 403")
}

func TestRegistryLookup(t *testing.T) {
	registry := federation.NewRegistry()
	registry.Register(newGitHubProvider(t))

	p, err := registry.Get(domain.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGitHub, p.Name())

	_, err = registry.Get(domain.ProviderGoogle)
	assert.ErrorIs(t, err, federation.ErrProviderNotFound)
}
