package auth

import (
	"encoding/hex"
	"encoding/json/v2"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
	"github.com/patchouli-app/patchouli-server/internal/id"
)

const (
	tokenIssuer   = "patchouli-server"
	tokenAudience = "patchouli-client"

	// PASETO v4 symmetric key requirements.
	keyBytesSize = 32 // 256 bits
	keyHexSize   = 64 // 32 bytes as hex string
)

// TokenService handles PASETO session token issuance and verification.
type TokenService struct {
	symmetricKey  paseto.V4SymmetricKey
	tokenDuration time.Duration
}

// NewTokenService creates a new token service with the given configuration.
func NewTokenService(keyHex string, tokenDuration time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexSize, keyBytesSize, len(keyHex))
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}

	if len(keyBytes) != keyBytesSize {
		return nil, fmt.Errorf("decoded key must be exactly %d bytes, got %d", keyBytesSize, len(keyBytes))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey:  key,
		tokenDuration: tokenDuration,
	}, nil
}

// Issue creates a new PASETO v4.local session token for the user.
// The token is encrypted and carries the user's identity and role flags.
func (s *TokenService) Issue(user *domain.User) (string, error) {
	now := time.Now()

	token := paseto.NewToken()

	// Add the standard claims
	token.SetIssuer(tokenIssuer)
	token.SetSubject(user.ID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.tokenDuration))

	// Generate unique token ID
	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	// Our custom claims
	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("user_id", user.ID)
	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("email", user.Email)
	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("is_root", user.IsRoot)
	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("can_invite", user.CanInvite)

	// Let's encrypt.
	encrypted := token.V4Encrypt(s.symmetricKey, nil)
	return encrypted, nil
}

// Verify verifies and parses a PASETO session token.
// Returns the claims if valid. Failures are classified: a token that does
// not look like a v4.local token is malformed, a token that fails
// decryption has a bad signature, and a structurally valid token past its
// expiration is expired.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	parts := strings.Split(tokenString, ".")
	if (len(parts) != 3 && len(parts) != 4) || parts[0] != "v4" || parts[1] != "local" {
		return nil, domainerrors.TokenMalformed("not a v4.local token")
	}

	// Decrypt first without expiry rules so an expired-but-authentic token
	// can be reported as expired rather than invalid.
	parser := paseto.NewParserWithoutExpiryCheck()
	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, domainerrors.TokenBadSignature("token decryption failed").WithCause(err)
	}

	exp, err := token.GetExpiration()
	if err != nil {
		return nil, domainerrors.TokenMalformed("token has no expiration").WithCause(err)
	}
	if time.Now().After(exp) {
		return nil, domainerrors.TokenExpired("token expired")
	}

	if iss, err := token.GetIssuer(); err != nil || iss != tokenIssuer {
		return nil, domainerrors.TokenMalformed("unexpected token issuer")
	}
	if aud, err := token.GetAudience(); err != nil || aud != tokenAudience {
		return nil, domainerrors.TokenMalformed("unexpected token audience")
	}

	var claims SessionClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, domainerrors.TokenMalformed("unreadable token claims").WithCause(err)
	}
	if claims.UserID == "" {
		return nil, domainerrors.TokenMalformed("token missing subject")
	}

	return &claims, nil
}

// TokenDuration returns the configured session token lifetime.
func (s *TokenService) TokenDuration() time.Duration {
	return s.tokenDuration
}
