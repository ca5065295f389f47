package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	githubOAuth2 "golang.org/x/oauth2/github"

	"github.com/SanVenturas/Tavern-Register/domain"
)

// GithubUserInfoEndpoint is a variable so tests can point it at a stub server.
var GithubUserInfoEndpoint = "https://api.github.com/user"

// GitHubProvider implements Provider for GitHub.
type GitHubProvider struct {
	*BaseProvider
}

// NewGitHubProvider creates a GitHubProvider with the read:user scope.
func NewGitHubProvider(cfg Config) (*GitHubProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrProviderMisconfigured
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"read:user"},
		Endpoint:     githubOAuth2.Endpoint,
	}
	return &GitHubProvider{BaseProvider: newBaseProvider(domain.ProviderGitHub, conf)}, nil
}

// FetchUserInfo retrieves the GitHub user profile. The numeric account ID is
// the stable identity; the display name falls back to the login when the
// profile name is unset.
func (g *GitHubProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*ExternalIdentity, error) {
	client := g.httpClient(ctx, token)

	resp, err := client.Get(GithubUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("github: failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github: failed to fetch user info: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("github: failed to read user info response body: %w", err)
	}

	var rawUserInfo struct {
		ID    json.Number `json:"id"`
		Login string      `json:"login"`
		Name  string      `json:"name"`
		Email string      `json:"email"`
	}
	if err := json.Unmarshal(body, &rawUserInfo); err != nil {
		return nil, fmt.Errorf("github: failed to unmarshal user info: %w", err)
	}
	if rawUserInfo.ID.String() == "" {
		return nil, fmt.Errorf("github: user info response carried no account id")
	}

	var rawDataMap map[string]any
	_ = json.Unmarshal(body, &rawDataMap)

	displayName := rawUserInfo.Name
	if displayName == "" {
		displayName = rawUserInfo.Login
	}

	return &ExternalIdentity{
		ProviderUserID: rawUserInfo.ID.String(),
		DisplayName:    displayName,
		Username:       rawUserInfo.Login,
		Email:          rawUserInfo.Email,
		RawData:        rawDataMap,
	}, nil
}

var _ Provider = (*GitHubProvider)(nil)
