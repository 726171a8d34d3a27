package domain

import "time"

// User represents a registered account in the system.
// Identity comes from the external provider; there are no local passwords.
type User struct {
	Syncable
	FederatedID string     `json:"federated_id"` // Stable subject identifier from the identity provider
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	IsRoot      bool       `json:"is_root"`
	CanInvite   bool       `json:"can_invite"`
	InvitedBy   string     `json:"invited_by,omitempty"` // User ID who issued the redeemed invite
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Name returns the best available name to display for the user.
// Prefers DisplayName, falls back to email.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// TouchLogin records a successful login at the current time.
func (u *User) TouchLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// Summary is the compact user shape embedded in token grant responses.
type Summary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsRoot      bool   `json:"is_root"`
	CanInvite   bool   `json:"can_invite"`
}

// Summarize returns the compact response shape for the user.
func (u *User) Summarize() Summary {
	return Summary{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		IsRoot:      u.IsRoot,
		CanInvite:   u.CanInvite,
	}
}
