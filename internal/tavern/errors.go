package tavern

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle means the requested handle normalized to nothing.
	ErrInvalidHandle = errors.New("handle is empty after normalization")

	// ErrHandleExists maps the remote service's 409 on account creation.
	ErrHandleExists = errors.New("handle already exists on the remote service")

	// ErrMissingSessionCredential means a response that should have carried a
	// session-setting header carried none, with CSRF protection enabled.
	ErrMissingSessionCredential = errors.New("remote service response carried no session credential")

	// ErrNotAnAdministrator means the authenticated identity lacks admin
	// rights on the remote service.
	ErrNotAnAdministrator = errors.New("remote identity is not an administrator")

	// ErrRemoteUnreachable wraps transport-level failures and timeouts.
	ErrRemoteUnreachable = errors.New("remote account service is unreachable")
)

// AdminLoginError reports a non-2xx response to the admin login call.
type AdminLoginError struct {
	Status int
	Body   string
}

func (e *AdminLoginError) Error() string {
	return fmt.Sprintf("admin login failed: status %d, body: %s", e.Status, e.Body)
}

// AdminSessionError reports a non-2xx response to the admin identity check.
type AdminSessionError struct {
	Status int
}

func (e *AdminSessionError) Error() string {
	return fmt.Sprintf("admin session rejected: status %d", e.Status)
}

// CreateAccountError reports a non-2xx, non-409 response to account creation.
type CreateAccountError struct {
	Status int
	Body   string
}

func (e *CreateAccountError) Error() string {
	return fmt.Sprintf("account creation failed: status %d, body: %s", e.Status, e.Body)
}
