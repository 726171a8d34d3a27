package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvite_Status(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		invite Invite
		status string
		valid  bool
	}{
		{"fresh invite", Invite{}, "pending", true},
		{"future expiry", Invite{ExpiresAt: &future}, "pending", true},
		{"expired", Invite{ExpiresAt: &past}, "expired", false},
		{"redeemed", Invite{RedeemedAt: &past, RedeemedBy: "user-1"}, "redeemed", false},
		{"revoked", Invite{Syncable: Syncable{DeletedAt: &past}}, "revoked", false},
		{"redeemed wins over expired", Invite{ExpiresAt: &past, RedeemedAt: &past}, "redeemed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.invite.Status())
			assert.Equal(t, tt.valid, tt.invite.IsValid())
		})
	}
}

func TestUser_Name(t *testing.T) {
	u := &User{Email: "alice@example.com"}
	assert.Equal(t, "alice@example.com", u.Name(), "falls back to email")

	u.DisplayName = "Alice"
	assert.Equal(t, "Alice", u.Name())
}

func TestUser_TouchLogin(t *testing.T) {
	u := &User{}
	u.InitTimestamps()

	u.TouchLogin()
	assert.NotNil(t, u.LastLoginAt)
	assert.False(t, u.UpdatedAt.Before(u.CreatedAt))
}
