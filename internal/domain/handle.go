package domain

import "time"

// HandleStatus represents the lifecycle state of an out-of-band auth handle.
type HandleStatus string

const (
	// HandleStatusPending indicates the browser flow has not finished yet.
	HandleStatusPending HandleStatus = "pending"
	// HandleStatusCompleted indicates a session token is ready to collect.
	HandleStatusCompleted HandleStatus = "completed"
	// HandleStatusError indicates the flow failed; ErrorCode carries the reason.
	HandleStatusError HandleStatus = "error"
)

// AuthHandle is the polling record handed to non-browser clients while the
// user finishes authentication in a browser. Handles live in memory only.
type AuthHandle struct {
	Handle    string       `json:"handle"`
	Status    HandleStatus `json:"status"`
	Token     string       `json:"token,omitempty"` // Session token, set when completed
	User      *Summary     `json:"user,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// IsExpired returns true if the handle has passed its expiration time.
func (h *AuthHandle) IsExpired() bool {
	return time.Now().After(h.ExpiresAt)
}

// IsTerminal returns true once the handle has reached a final state.
func (h *AuthHandle) IsTerminal() bool {
	return h.Status == HandleStatusCompleted || h.Status == HandleStatusError
}
