package domain

import "time"

// Invite represents a single-use invitation to register an account.
// Invites are issued by users holding the can_invite grant and redeemed
// exactly once during registration.
type Invite struct {
	Syncable
	Code       string     `json:"code"`      // Unique, URL-safe invite code
	IssuedBy   string     `json:"issued_by"` // User ID of the issuer
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	RedeemedBy string     `json:"redeemed_by,omitempty"` // User ID created from this invite
}

// IsRedeemed returns true if the invite has been used.
func (i *Invite) IsRedeemed() bool {
	return i.RedeemedAt != nil
}

// IsExpired returns true if the invite has passed its expiration time.
// Invites without an expiration never expire.
func (i *Invite) IsExpired() bool {
	return i.ExpiresAt != nil && time.Now().After(*i.ExpiresAt)
}

// IsValid returns true if the invite can still be redeemed.
func (i *Invite) IsValid() bool {
	return !i.IsRedeemed() && !i.IsExpired() && !i.IsDeleted()
}

// Status returns a human-readable status string for the invite.
func (i *Invite) Status() string {
	if i.IsDeleted() {
		return "revoked"
	}
	if i.IsRedeemed() {
		return "redeemed"
	}
	if i.IsExpired() {
		return "expired"
	}
	return "pending"
}
