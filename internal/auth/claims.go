package auth

import (
	"time"
)

// SessionClaims represents the claims stored in a PASETO session token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
//
// Role flags ride in the claims: verification never consults the user
// directory, so a token keeps the capabilities it was issued with until it
// expires.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	IsRoot    bool   `json:"is_root"`
	CanInvite bool   `json:"can_invite"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
