package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"

	"github.com/SanVenturas/Tavern-Register/domain"
)

// GoogleUserInfoEndpoint is a variable so tests can point it at a stub server.
var GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider implements Provider for Google.
type GoogleProvider struct {
	*BaseProvider
}

// NewGoogleProvider creates a GoogleProvider with openid and profile scopes.
func NewGoogleProvider(cfg Config) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: googleOAuth2.Endpoint,
	}
	return &GoogleProvider{BaseProvider: newBaseProvider(domain.ProviderGoogle, conf)}, nil
}

// FetchUserInfo retrieves the Google userinfo document. The OIDC "sub" claim
// is the stable identity.
func (g *GoogleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalIdentity, error) {
	client := g.httpClient(ctx, token)

	resp, err := client.Get(GoogleUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("google: failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google: failed to fetch user info: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("google: failed to read user info response body: %w", err)
	}

	var rawUserInfo struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &rawUserInfo); err != nil {
		return nil, fmt.Errorf("google: failed to unmarshal user info: %w", err)
	}
	if rawUserInfo.Sub == "" {
		return nil, fmt.Errorf("google: user info response carried no sub claim")
	}

	var rawDataMap map[string]any
	_ = json.Unmarshal(body, &rawDataMap)

	return &ExternalIdentity{
		ProviderUserID: rawUserInfo.Sub,
		DisplayName:    rawUserInfo.Name,
		Email:          rawUserInfo.Email,
		RawData:        rawDataMap,
	}, nil
}

var _ Provider = (*GoogleProvider)(nil)
