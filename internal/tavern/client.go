package tavern

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Remote service endpoints, relative to the base URL.
const (
	csrfTokenPath = "/csrf-token"
	loginPath     = "/users/login"
	mePath        = "/users/me"
	createPath    = "/users/create"
)

// csrfDisabledToken is what the remote service returns for the anti-forgery
// token when it has CSRF protection switched off.
const csrfDisabledToken = "disabled"

// maxErrorBodyBytes bounds how much of a remote error body is retained.
const maxErrorBodyBytes = 2048

// AdminSession is the outcome of a successful admin login: an opaque session
// credential plus the anti-forgery token the login was performed with. It is
// owned by one in-flight provisioning call and never persisted.
type AdminSession struct {
	Credential string
	CSRFToken  string
}

// Client talks to the remote account service. It holds no session state:
// every provisioning call re-authenticates, so there is never a long-lived
// admin session to invalidate.
type Client struct {
	baseURL       string
	adminHandle   string
	adminPassword string
	httpc         *http.Client
}

// NewClient creates a remote service client. The HTTP client must carry an
// explicit timeout; a nil client gets a 15-second default.
func NewClient(baseURL, adminHandle, adminPassword string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		adminHandle:   adminHandle,
		adminPassword: adminPassword,
		httpc:         httpc,
	}
}

// FetchCSRFToken obtains a fresh anti-forgery token, forwarding an existing
// session credential when one is held. The returned credential is the one
// extracted from the response's cookie-setting headers, falling back to the
// forwarded credential when the response sets none. No credential at all,
// with CSRF protection enabled, is a hard failure.
func (c *Client) FetchCSRFToken(ctx context.Context, existingCredential string) (credential, token string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+csrfTokenPath, nil)
	if err != nil {
		return "", "", err
	}
	if existingCredential != "" {
		req.Header.Set("Cookie", existingCredential)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("failed to decode csrf token response: %w", err)
	}

	credential = ExtractSessionCredential(resp.Header.Values("Set-Cookie"))
	if credential == "" {
		credential = existingCredential
	}
	if credential == "" && payload.Token != csrfDisabledToken {
		return "", "", ErrMissingSessionCredential
	}

	return credential, payload.Token, nil
}

// LoginAsAdmin performs the login leg of the credential exchange: token
// fetch, then authentication with the administrator handle and password.
// The credential extracted from the login response always replaces the one
// from the token fetch; a login response with no fresh credential fails.
func (c *Client) LoginAsAdmin(ctx context.Context) (*AdminSession, error) {
	credential, token, err := c.FetchCSRFToken(ctx, "")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{
		"handle":   c.adminHandle,
		"password": c.adminPassword,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", token)
	if credential != "" {
		req.Header.Set("Cookie", credential)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AdminLoginError{Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	newCredential := ExtractSessionCredential(resp.Header.Values("Set-Cookie"))
	if newCredential == "" {
		return nil, ErrMissingSessionCredential
	}

	log.Debug().Str("handle", c.adminHandle).Msg("Authenticated against remote account service")

	return &AdminSession{Credential: newCredential, CSRFToken: token}, nil
}

// AssertAdmin confirms the credential belongs to an administrator by asking
// the remote service who the session is.
func (c *Client) AssertAdmin(ctx context.Context, credential string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mePath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cookie", credential)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &AdminSessionError{Status: resp.StatusCode}
	}

	var profile struct {
		Admin bool `json:"admin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return fmt.Errorf("failed to decode remote profile: %w", err)
	}
	if !profile.Admin {
		return ErrNotAnAdministrator
	}
	return nil
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return string(body)
}
