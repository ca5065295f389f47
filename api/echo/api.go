package echo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/SanVenturas/Tavern-Register/domain"
	"github.com/SanVenturas/Tavern-Register/internal/broker"
	"github.com/SanVenturas/Tavern-Register/internal/federation"
	"github.com/SanVenturas/Tavern-Register/internal/tavern"
)

// RegistrationAPI exposes the broker's flow to the surrounding web layer.
type RegistrationAPI struct {
	broker *broker.Service
	ping   func(ctx context.Context) error
}

// NewRegistrationAPI initializes the registration API. ping checks the
// durable store for the health endpoint and may be nil.
func NewRegistrationAPI(b *broker.Service, ping func(ctx context.Context) error) *RegistrationAPI {
	return &RegistrationAPI{broker: b, ping: ping}
}

// RegisterRoutes registers the broker routes.
func (a *RegistrationAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/auth/:provider/start", a.StartHandler)
	e.GET("/auth/:provider/callback", a.CallbackHandler)
	e.GET("/register/:ticket", a.PeekTicketHandler)
	e.DELETE("/register/:ticket", a.CancelTicketHandler)
	e.POST("/register/:ticket", a.RegisterHandler)
	e.GET("/healthz", a.HealthHandler)
}

type errorResponse struct {
	Error string `json:"error"`
}

// StartHandler begins an OAuth flow: issues a state token and redirects the
// user to the provider.
func (a *RegistrationAPI) StartHandler(c echo.Context) error {
	redirectURL, err := a.broker.StartAuthorization(c.Request().Context(), domain.Provider(c.Param("provider")))
	if err != nil {
		return a.writeError(c, err)
	}
	return c.Redirect(http.StatusFound, redirectURL)
}

// CallbackHandler processes the provider's redirect back to us. It answers
// with a registration ticket for fresh identities, or the bound handle when
// the identity already registered.
func (a *RegistrationAPI) CallbackHandler(c echo.Context) error {
	result, err := a.broker.HandleCallback(
		c.Request().Context(),
		domain.Provider(c.Param("provider")),
		c.QueryParam("code"),
		c.QueryParam("state"),
	)
	if err != nil {
		return a.writeError(c, err)
	}

	if result.BoundHandle != "" {
		return c.JSON(http.StatusOK, echo.Map{"handle": result.BoundHandle})
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket_id": result.TicketID})
}

// PeekTicketHandler returns the claim behind a live ticket so a confirmation
// page can render it. Reading never consumes the ticket.
func (a *RegistrationAPI) PeekTicketHandler(c echo.Context) error {
	claim, ok := a.broker.PeekTicket(c.Request().Context(), c.Param("ticket"))
	if !ok {
		return a.writeError(c, domain.ErrTicketInvalid)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"provider":     claim.Provider,
		"provider_id":  claim.ProviderID,
		"display_name": claim.DisplayName,
		"expires_at":   claim.ExpiresAt.Format(time.RFC3339),
	})
}

// CancelTicketHandler invalidates a pending flow at the user's request.
func (a *RegistrationAPI) CancelTicketHandler(c echo.Context) error {
	if !a.broker.CancelTicket(c.Request().Context(), c.Param("ticket")) {
		return a.writeError(c, domain.ErrTicketInvalid)
	}
	return c.NoContent(http.StatusNoContent)
}

type registerRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// RegisterHandler submits the registration form for a ticket and creates the
// remote account.
func (a *RegistrationAPI) RegisterHandler(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	handle, err := a.broker.RegisterWithTicket(
		c.Request().Context(),
		c.Param("ticket"),
		req.Handle,
		req.DisplayName,
		req.Password,
	)
	if err != nil {
		return a.writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"handle": handle})
}

// HealthHandler reports liveness, including the durable store when wired.
func (a *RegistrationAPI) HealthHandler(c echo.Context) error {
	if a.ping != nil {
		if err := a.ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// writeError maps domain errors onto HTTP responses. User-facing kinds get a
// 4xx with a safe message; operator-facing kinds get a generic 5xx while the
// full detail goes to the log only.
func (a *RegistrationAPI) writeError(c echo.Context, err error) error {
	var (
		loginErr   *tavern.AdminLoginError
		sessionErr *tavern.AdminSessionError
		createErr  *tavern.CreateAccountError
	)

	switch {
	case errors.Is(err, federation.ErrProviderNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown identity provider"})
	case errors.Is(err, domain.ErrStateTokenInvalid):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "sign-in attempt expired or is invalid, please start over"})
	case errors.Is(err, domain.ErrTicketInvalid):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "registration ticket is invalid or expired"})
	case errors.Is(err, domain.ErrAlreadyBound):
		return c.JSON(http.StatusConflict, errorResponse{Error: "this identity has already registered an account"})
	case errors.Is(err, domain.ErrBindingConflict):
		// A race caught by the storage layer: retryable by the user, not a
		// server fault.
		return c.JSON(http.StatusConflict, errorResponse{Error: "another registration just claimed this identity or handle, please restart the sign-in flow"})
	case errors.Is(err, tavern.ErrInvalidHandle):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "handle contains no usable characters"})
	case errors.Is(err, tavern.ErrHandleExists):
		return c.JSON(http.StatusConflict, errorResponse{Error: "this handle is already taken, please choose another"})
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Registration request failed")

	switch {
	case errors.Is(err, tavern.ErrRemoteUnreachable),
		errors.Is(err, federation.ErrExchangeCodeFailed),
		errors.Is(err, federation.ErrFetchUserInfoFailed):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "an upstream service is unavailable, please try again later"})
	case errors.As(err, &loginErr),
		errors.As(err, &sessionErr),
		errors.As(err, &createErr),
		errors.Is(err, tavern.ErrMissingSessionCredential),
		errors.Is(err, tavern.ErrNotAnAdministrator):
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "registration is temporarily unavailable"})
	}

	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
