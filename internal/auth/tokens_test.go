package auth

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
)

func newTestTokenService(t *testing.T, duration time.Duration) *TokenService {
	t.Helper()
	key := strings.Repeat("ab", 32) // 64 hex chars
	svc, err := NewTokenService(key, duration)
	require.NoError(t, err)
	return svc
}

func testUser() *domain.User {
	return &domain.User{
		Syncable: domain.Syncable{
			ID: "user-123",
		},
		FederatedID: "google-sub-123",
		Email:       "alice@example.com",
		IsRoot:      true,
		CanInvite:   true,
	}
}

func TestNewTokenService_KeyValidation(t *testing.T) {
	_, err := NewTokenService("tooshort", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(strings.Repeat("zz", 32), time.Hour)
	assert.Error(t, err, "non-hex key should be rejected")

	_, err = NewTokenService(strings.Repeat("ab", 32), time.Hour)
	assert.NoError(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	token, err := svc.Issue(testUser())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.True(t, claims.IsRoot)
	assert.True(t, claims.CanInvite)
}

func TestVerify_Expired(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute)

	token, err := svc.Issue(testUser())
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.Error(t, err)

	var derr *domainerrors.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domainerrors.CodeTokenExpired, derr.Code)
}

func TestVerify_WrongKey(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	token, err := svc.Issue(testUser())
	require.NoError(t, err)

	otherKey := strings.Repeat("cd", 32)
	other, err := NewTokenService(otherKey, time.Hour)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.Error(t, err)

	var derr *domainerrors.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domainerrors.CodeTokenBadSignature, derr.Code)
}

func TestVerify_Tampered(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	token, err := svc.Issue(testUser())
	require.NoError(t, err)

	// Flip a character in the payload.
	raw := []byte(token)
	i := len(raw) - 10
	if raw[i] == 'A' {
		raw[i] = 'B'
	} else {
		raw[i] = 'A'
	}

	_, err = svc.Verify(string(raw))
	require.Error(t, err)

	var derr *domainerrors.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domainerrors.CodeTokenBadSignature, derr.Code)
}

func TestVerify_Malformed(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	cases := []string{
		"",
		"garbage",
		"v2.local.something",
		"v4.public.something",
		"not.a.token.at.all.really",
	}
	for _, tc := range cases {
		_, err := svc.Verify(tc)
		require.Error(t, err, "input %q", tc)

		var derr *domainerrors.Error
		require.True(t, errors.As(err, &derr), "input %q", tc)
		assert.Equal(t, domainerrors.CodeTokenMalformed, derr.Code, "input %q", tc)
	}
}

func TestVerify_UniqueTokenIDs(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	a, err := svc.Issue(testUser())
	require.NoError(t, err)
	b, err := svc.Issue(testUser())
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "tokens must carry unique jti claims")
}

func TestTokenDuration(t *testing.T) {
	svc := newTestTokenService(t, 42*time.Minute)
	assert.Equal(t, 42*time.Minute, svc.TokenDuration())
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// Second load returns the same key.
	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(key), hex.EncodeToString(again))
}
