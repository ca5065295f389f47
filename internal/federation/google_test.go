package federation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/SanVenturas/Tavern-Register/internal/federation"
)

func newGoogleProvider(t *testing.T) *federation.GoogleProvider {
	t.Helper()
	p, err := federation.NewGoogleProvider(federation.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://broker.example/auth/google/callback",
	})
	require.NoError(t, err)
	return p
}

func TestNewGoogleProviderRequiresCredentials(t *testing.T) {
	_, err := federation.NewGoogleProvider(federation.Config{ClientSecret: "only-secret"})
	assert.ErrorIs(t, err, federation.ErrProviderMisconfigured)
}

func TestGoogleAuthCodeURL(t *testing.T) {
	p := newGoogleProvider(t)

	authURL := p.AuthCodeURL("state-456")
	assert.Contains(t, authURL, "accounts.google.com")
	assert.Contains(t, authURL, "state=state-456")
	assert.Contains(t, authURL, "openid")
}

func TestGoogleFetchUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"sub":"108400000001","name":"Bob","email":"bob@example.com","picture":"https://img.example/p.png"}`))
	}))
	defer server.Close()

	orig := federation.GoogleUserInfoEndpoint
	federation.GoogleUserInfoEndpoint = server.URL
	defer func() { federation.GoogleUserInfoEndpoint = orig }()

	p := newGoogleProvider(t)
	identity, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "access-token"})
	require.NoError(t, err)

	assert.Equal(t, "108400000001", identity.ProviderUserID)
	assert.Equal(t, "Bob", identity.DisplayName)
	assert.Equal(t, "bob@example.com", identity.Email)
	assert.Equal(t, "https://img.example/p.png", identity.RawData["picture"])
}

func TestGoogleFetchUserInfoRejectsMissingSub(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Bob"}`))
	}))
	defer server.Close()

	orig := federation.GoogleUserInfoEndpoint
	federation.GoogleUserInfoEndpoint = server.URL
	defer func() { federation.GoogleUserInfoEndpoint = orig }()

	p := newGoogleProvider(t)
	_, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.ErrorContains(t, err, "no sub claim")
}

func TestGoogleFetchUserInfoUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "expired token", http.StatusUnauthorized)
	}))
	defer server.Close()

	orig := federation.GoogleUserInfoEndpoint
	federation.GoogleUserInfoEndpoint = server.URL
	defer func() { federation.GoogleUserInfoEndpoint = orig }()

	p := newGoogleProvider(t)
	_, err := p.FetchUserInfo(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.ErrorContains(t, err, "status 401")
}
