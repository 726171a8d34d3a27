package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/patchouli-app/patchouli-server/internal/auth"
	"github.com/patchouli-app/patchouli-server/internal/broker"
	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
	"github.com/patchouli-app/patchouli-server/internal/id"
	"github.com/patchouli-app/patchouli-server/internal/oauth"
	"github.com/patchouli-app/patchouli-server/internal/store"
	"github.com/patchouli-app/patchouli-server/internal/store/sqlite"
)

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove any options (like omitempty, -)
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})
	return v
}()

// AuthService bridges the external identity provider to local accounts:
// it starts handshakes, completes provider callbacks, and issues session
// tokens.
type AuthService struct {
	store    *sqlite.Store
	tokens   *auth.TokenService
	provider oauth.Provider
	broker   *broker.Broker
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store *sqlite.Store,
	tokens *auth.TokenService,
	provider oauth.Provider,
	brk *broker.Broker,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		provider: provider,
		broker:   brk,
		logger:   logger,
	}
}

// StartRequest describes a new handshake.
type StartRequest struct {
	Registration bool   `json:"registration"`
	InviteCode   string `json:"invite_code" validate:"omitempty,max=64"`
	// WithHandle requests a poll handle for non-browser clients.
	WithHandle bool `json:"-"`
}

// StartResponse carries the provider URL and, for non-browser clients,
// the handle to poll.
type StartResponse struct {
	AuthURL   string `json:"auth_url"`
	State     string `json:"state"`
	Handle    string `json:"token,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"` // Handle lifetime in seconds
}

// GrantResponse is the result of a completed handshake.
type GrantResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"` // Token lifetime in seconds
	User        domain.Summary `json:"user"`
}

// Start begins a handshake: it binds the caller's intent to a one-time
// state value and returns the provider authorization URL. When WithHandle
// is set, a pending poll handle is created and bound to the state.
func (s *AuthService) Start(_ context.Context, req StartRequest) (*StartResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	data := broker.StateData{
		Registration: req.Registration,
		InviteCode:   req.InviteCode,
	}

	resp := &StartResponse{}
	if req.WithHandle {
		handle, err := s.broker.NewHandle()
		if err != nil {
			return nil, fmt.Errorf("create auth handle: %w", err)
		}
		data.Handle = handle.Handle
		resp.Handle = handle.Handle
		resp.ExpiresIn = int64(time.Until(handle.ExpiresAt).Seconds())
	}

	state, err := s.broker.NewState(data)
	if err != nil {
		return nil, fmt.Errorf("create state: %w", err)
	}

	resp.State = state
	resp.AuthURL = s.provider.AuthURL(state)

	if s.logger != nil {
		s.logger.Info("Auth handshake started",
			"registration", req.Registration,
			"has_invite", req.InviteCode != "",
			"has_handle", resp.Handle != "",
		)
	}

	return resp, nil
}

// CompleteCallback finishes a handshake after the provider redirects back.
// The state is consumed exactly once; any outcome, success or failure, is
// forwarded to the bound poll handle if one exists.
func (s *AuthService) CompleteCallback(ctx context.Context, code, state string) (*GrantResponse, error) {
	data, err := s.broker.ConsumeState(state)
	if err != nil {
		// Unknown state means no handle to notify.
		return nil, err
	}

	resp, err := s.exchange(ctx, code, data)
	if data.Handle != "" {
		if err != nil {
			s.broker.Fail(data.Handle, errorCode(err))
		} else {
			s.broker.Complete(data.Handle, resp.AccessToken, resp.User)
		}
	}
	return resp, err
}

// exchange runs the provider exchange and resolves the identity to a local
// account, registering one when the handshake asked for it.
func (s *AuthService) exchange(ctx context.Context, code string, data *broker.StateData) (*GrantResponse, error) {
	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Identity provider exchange failed", "error", err)
		}
		return nil, domainerrors.ProviderError("identity provider exchange failed")
	}

	user, err := s.store.GetUserByFederatedID(ctx, identity.Subject)
	switch {
	case err == nil:
		// Known identity always resolves to login, even when the
		// handshake asked for registration.
		return s.login(ctx, user)

	case errors.Is(err, store.ErrUserNotFound):
		if !data.Registration {
			return nil, domainerrors.NotRegistered("no account for this identity")
		}
		return s.register(ctx, identity, data.InviteCode)

	default:
		return nil, fmt.Errorf("look up identity: %w", err)
	}
}

// login records the login and issues a session token for the user.
func (s *AuthService) login(ctx context.Context, user *domain.User) (*GrantResponse, error) {
	now := time.Now()
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		// Login still succeeds; the timestamp is advisory.
		if s.logger != nil {
			s.logger.Warn("Failed to record login time", "user_id", user.ID, "error", err)
		}
	}
	user.LastLoginAt = &now

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User logged in", "user_id", user.ID, "email", user.Email)
	}

	return &GrantResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TokenDuration().Seconds()),
		User:        user.Summarize(),
	}, nil
}

// register creates an account for a new identity. Without an invite code
// the registration is a root bootstrap attempt; losing that race falls
// through to the invite-required answer.
func (s *AuthService) register(ctx context.Context, identity *oauth.Identity, inviteCode string) (*GrantResponse, error) {
	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		Syncable: domain.Syncable{
			ID: userID,
		},
		FederatedID: identity.Subject,
		Email:       identity.Email,
		DisplayName: identity.Name,
		LastLoginAt: &now,
	}
	user.InitTimestamps()

	if inviteCode != "" {
		// Redeem and create run in one store transaction, so a failed
		// create never burns the invite.
		if _, err := s.store.RegisterInvitedUser(ctx, user, inviteCode, now); err != nil {
			switch {
			case errors.Is(err, store.ErrInviteNotFound):
				return nil, domainerrors.InviteNotFound("invite code not found")
			case errors.Is(err, store.ErrInviteExpired):
				return nil, domainerrors.InviteExpired("invite code has expired")
			case errors.Is(err, store.ErrInviteAlreadyUsed):
				return nil, domainerrors.InviteAlreadyUsed("invite code has already been used")
			case errors.Is(err, store.ErrFederatedIDExists):
				return s.resolveRegistrationRace(ctx, identity)
			}
			return nil, fmt.Errorf("register invited user: %w", err)
		}
	} else {
		// First registration claims the root account. The store decides
		// the race; everyone else needs an invite.
		user.IsRoot = true
		user.CanInvite = true

		if err := s.store.CreateUser(ctx, user); err != nil {
			switch {
			case errors.Is(err, store.ErrRootExists):
				return nil, domainerrors.RegistrationNeedsInvite("registration requires an invite code")
			case errors.Is(err, store.ErrFederatedIDExists):
				return s.resolveRegistrationRace(ctx, identity)
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User registered",
			"user_id", user.ID,
			"email", user.Email,
			"is_root", user.IsRoot,
			"invited_by", user.InvitedBy,
		)
	}

	return &GrantResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TokenDuration().Seconds()),
		User:        user.Summarize(),
	}, nil
}

// resolveRegistrationRace handles a lost create race: between the lookup
// and the insert, another callback registered the same identity. The loser
// resolves as a login of the account that won.
func (s *AuthService) resolveRegistrationRace(ctx context.Context, identity *oauth.Identity) (*GrantResponse, error) {
	existing, err := s.store.GetUserByFederatedID(ctx, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve concurrent registration: %w", err)
	}
	return s.login(ctx, existing)
}

// Poll returns the current state of an auth handle. Terminal states are
// delivered at most once.
func (s *AuthService) Poll(_ context.Context, handleID string) (*domain.AuthHandle, error) {
	return s.broker.Poll(handleID)
}

// Logout acknowledges a logout. Session tokens are stateless and cannot be
// revoked; clients discard the token and it ages out on its own.
func (s *AuthService) Logout(_ context.Context, claims *auth.SessionClaims) {
	if s.logger != nil {
		s.logger.Info("User logged out", "user_id", claims.UserID)
	}
}

// TokenDuration returns the lifetime of issued session tokens.
func (s *AuthService) TokenDuration() time.Duration {
	return s.tokens.TokenDuration()
}

// VerifyToken validates a session token and returns its claims.
// Validation is purely cryptographic; the user directory is not consulted.
func (s *AuthService) VerifyToken(tokenString string) (*auth.SessionClaims, error) {
	return s.tokens.Verify(tokenString)
}

// errorCode extracts the machine-readable code from a domain error,
// defaulting to INTERNAL for anything unclassified.
func errorCode(err error) string {
	var derr *domainerrors.Error
	if errors.As(err, &derr) {
		return string(derr.Code)
	}
	return string(domainerrors.CodeInternal)
}

// formatValidationError converts validator errors to user-friendly domain errors.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		// Return first validation error as a domain error
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				return domainerrors.Validationf("%s is required", field)
			case "email":
				return domainerrors.Validationf("%s must be a valid email address", field)
			case "min":
				return domainerrors.Validationf("%s must be at least %s characters", field, e.Param())
			case "max":
				return domainerrors.Validationf("%s exceeds maximum length of %s characters", field, e.Param())
			default:
				return domainerrors.Validationf("%s is invalid", field)
			}
		}
	}
	return err
}
