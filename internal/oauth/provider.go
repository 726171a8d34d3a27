// Package oauth talks to the external identity provider.
package oauth

import "context"

// Identity is the provider's answer to "who just logged in".
// Subject is the provider's stable account identifier; it never changes
// even when the email does.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// Provider abstracts the identity provider for the auth bridge.
// Implementations must be safe for concurrent use.
type Provider interface {
	// AuthURL returns the provider authorization URL carrying the given
	// opaque state value.
	AuthURL(state string) string

	// Exchange trades an authorization code for the authenticated identity.
	// Any transport or provider failure is returned as-is; callers decide
	// how much of it to surface.
	Exchange(ctx context.Context, code string) (*Identity, error)
}
