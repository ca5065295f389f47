package domain

import "time"

// Ticket carries a verified third-party identity claim from the OAuth
// callback to the registration submission, across a browser redirect. The ID
// is the only thing the client ever sees; the claim itself stays server-side
// so request parameters cannot forge an identity.
type Ticket struct {
	ID          string    `json:"id"`
	Provider    Provider  `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Used        bool      `json:"used"`
}

// Live reports whether the ticket is still valid at the given instant.
// A ticket that is used or past its expiry must be treated as absent.
func (t *Ticket) Live(now time.Time) bool {
	return t != nil && !t.Used && !now.After(t.ExpiresAt)
}
