package api

import (
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/patchouli-app/patchouli-server/internal/auth"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
)

// AuthenticatedInput carries the Authorization header for protected routes.
type AuthenticatedInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
}

// authenticateRequest validates the Authorization header and returns the
// session claims. Validation is purely cryptographic; deleted users keep
// working until their token expires.
func (s *Server) authenticateRequest(authHeader string) (*auth.SessionClaims, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	claims, err := s.services.Auth.VerifyToken(parts[1])
	if err != nil {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return nil, domainErr
		}
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}

	return claims, nil
}
