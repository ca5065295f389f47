package tavern

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// NewAccount is a request to create one account on the remote service.
type NewAccount struct {
	Handle      string
	DisplayName string
	Password    string
}

// CreateAccount provisions one remote account with a freshly obtained admin
// session. The exchange is strictly sequential: token, login, identity
// check, then a second token minted after the session exists — the remote
// rejects create calls made with the pre-login token.
//
// Returns the handle as reported by the remote service, which is
// authoritative and not necessarily byte-identical to the normalized input.
// No step is retried: the remote create endpoint is not idempotency-aware,
// so a retry could duplicate the side effect.
func (c *Client) CreateAccount(ctx context.Context, account NewAccount) (string, error) {
	normalized := NormalizeHandle(account.Handle)
	if normalized == "" {
		return "", ErrInvalidHandle
	}

	session, err := c.LoginAsAdmin(ctx)
	if err != nil {
		return "", err
	}
	if err := c.AssertAdmin(ctx, session.Credential); err != nil {
		return "", err
	}

	credential, token, err := c.FetchCSRFToken(ctx, session.Credential)
	if err != nil {
		return "", err
	}

	displayName := account.DisplayName
	if displayName == "" {
		displayName = normalized
	}
	body, err := json.Marshal(map[string]string{
		"handle":   normalized,
		"name":     displayName,
		"password": account.Password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", token)
	req.Header.Set("Cookie", credential)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return "", ErrHandleExists
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &CreateAccountError{Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var created struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode create account response: %w", err)
	}
	if created.Handle == "" {
		created.Handle = normalized
	}

	log.Info().Str("handle", created.Handle).Msg("Remote account created")

	return created.Handle, nil
}
