package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
	"github.com/patchouli-app/patchouli-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "grantToken",
		Method:      http.MethodPost,
		Path:        "/auth/tokens",
		Summary:     "Request a session token",
		Description: "Starts an out-of-band handshake (client_credentials) or exchanges a provider authorization code for a session token (authorization_code).",
		Tags:        []string{"Authentication"},
	}, s.handleGrantToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "pollToken",
		Method:      http.MethodGet,
		Path:        "/auth/tokens/{handle}",
		Summary:     "Poll a pending handshake",
		Description: "Returns the state of an out-of-band handshake. Terminal results are delivered exactly once.",
		Tags:        []string{"Authentication"},
	}, s.handlePollToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodDelete,
		Path:        "/auth/tokens",
		Summary:     "Logout",
		Description: "Acknowledges a logout. Session tokens are stateless; the client discards its copy.",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLogout)
}

// === DTOs ===

// TokenGrantRequest is the request body for POST /auth/tokens.
// The grant type selects which of the remaining fields apply.
type TokenGrantRequest struct {
	GrantType string `json:"grant_type" validate:"required" enum:"client_credentials,authorization_code" doc:"Grant type"`

	// client_credentials fields.
	Registration bool   `json:"registration,omitempty" doc:"Register a new account instead of logging in"`
	InviteCode   string `json:"invite_code,omitempty" doc:"Invite code for registration"`

	// authorization_code fields.
	Code  string `json:"code,omitempty" doc:"Authorization code returned by the identity provider"`
	State string `json:"state,omitempty" doc:"State value bound to the handshake"`
}

// TokenGrantInput wraps the token grant request for Huma.
type TokenGrantInput struct {
	Body TokenGrantRequest
}

// TokenGrantResponse is the result of POST /auth/tokens. The populated
// fields depend on the grant type: client_credentials returns a handle to
// poll plus the provider URL; authorization_code returns the session token.
type TokenGrantResponse struct {
	// client_credentials grant.
	Token   string `json:"token,omitempty" doc:"Opaque handle to poll for the handshake result"`
	AuthURL string `json:"auth_url,omitempty" doc:"Provider authorization URL to open in a browser"`
	State   string `json:"state,omitempty" doc:"State value bound to this handshake"`

	// authorization_code grant.
	AccessToken string          `json:"access_token,omitempty" doc:"PASETO session token"`
	TokenType   string          `json:"token_type,omitempty" doc:"Token type (Bearer)"`
	User        *domain.Summary `json:"user,omitempty" doc:"Authenticated user"`

	ExpiresIn int64 `json:"expires_in,omitempty" doc:"Lifetime in seconds of the handle or token"`
}

// TokenGrantOutput wraps the token grant response for Huma.
type TokenGrantOutput struct {
	Body TokenGrantResponse
}

// PollResponse is the state of an out-of-band handshake.
type PollResponse struct {
	Status string `json:"status" doc:"Handshake status: pending, completed, or error"`

	// Populated when status is completed.
	AccessToken string          `json:"access_token,omitempty" doc:"PASETO session token"`
	TokenType   string          `json:"token_type,omitempty" doc:"Token type (Bearer)"`
	ExpiresIn   int64           `json:"expires_in,omitempty" doc:"Token lifetime in seconds"`
	User        *domain.Summary `json:"user,omitempty" doc:"Authenticated user"`

	// Populated when status is error.
	Error string `json:"error,omitempty" doc:"Machine-readable failure code"`
}

// PollOutput wraps the poll response for Huma.
type PollOutput struct {
	Body PollResponse
}

// PollInput carries the handle path parameter.
type PollInput struct {
	Handle string `path:"handle" doc:"Handshake handle returned by the client_credentials grant"`
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleGrantToken(ctx context.Context, input *TokenGrantInput) (*TokenGrantOutput, error) {
	switch input.Body.GrantType {
	case "client_credentials":
		resp, err := s.services.Auth.Start(ctx, service.StartRequest{
			Registration: input.Body.Registration,
			InviteCode:   input.Body.InviteCode,
			WithHandle:   true,
		})
		if err != nil {
			return nil, err
		}
		return &TokenGrantOutput{
			Body: TokenGrantResponse{
				Token:     resp.Handle,
				AuthURL:   resp.AuthURL,
				State:     resp.State,
				ExpiresIn: resp.ExpiresIn,
			},
		}, nil

	case "authorization_code":
		if input.Body.Code == "" || input.Body.State == "" {
			return nil, domainerrors.Validation("code and state are required for the authorization_code grant")
		}
		grant, err := s.services.Auth.CompleteCallback(ctx, input.Body.Code, input.Body.State)
		if err != nil {
			return nil, err
		}
		return &TokenGrantOutput{
			Body: TokenGrantResponse{
				AccessToken: grant.AccessToken,
				TokenType:   grant.TokenType,
				ExpiresIn:   grant.ExpiresIn,
				User:        &grant.User,
			},
		}, nil

	default:
		return nil, domainerrors.Validationf("unsupported grant type %q", input.Body.GrantType)
	}
}

func (s *Server) handlePollToken(ctx context.Context, input *PollInput) (*PollOutput, error) {
	handle, err := s.services.Auth.Poll(ctx, input.Handle)
	if err != nil {
		return nil, err
	}

	resp := PollResponse{Status: string(handle.Status)}
	switch handle.Status {
	case domain.HandleStatusCompleted:
		resp.AccessToken = handle.Token
		resp.TokenType = "Bearer"
		resp.ExpiresIn = int64(s.services.Auth.TokenDuration().Seconds())
		resp.User = handle.User
	case domain.HandleStatusError:
		resp.Error = handle.ErrorCode
	}

	return &PollOutput{Body: resp}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *AuthenticatedInput) (*MessageOutput, error) {
	claims, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	s.services.Auth.Logout(ctx, claims)

	return &MessageOutput{
		Body: MessageResponse{Message: "Logged out successfully"},
	}, nil
}
