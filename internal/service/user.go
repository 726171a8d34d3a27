package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/patchouli-app/patchouli-server/internal/auth"
	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
	"github.com/patchouli-app/patchouli-server/internal/id"
	"github.com/patchouli-app/patchouli-server/internal/store"
	"github.com/patchouli-app/patchouli-server/internal/store/sqlite"
)

// UserService handles directory operations on registered users.
type UserService struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store *sqlite.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// CreateUserRequest contains the data for direct user creation by root.
// This bypasses the OAuth registration path; the account becomes usable
// the first time its federated identity logs in.
type CreateUserRequest struct {
	FederatedID string `json:"federated_id" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"max=100"`
	CanInvite   bool   `json:"can_invite"`
}

// UpdateUserRequest contains optional fields for updating a user.
// Only non-nil fields are applied.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	CanInvite   *bool   `json:"can_invite"`
}

// GetUser returns a user. Users may fetch themselves; root may fetch anyone.
func (s *UserService) GetUser(ctx context.Context, actor *auth.SessionClaims, userID string) (*domain.User, error) {
	if actor.UserID != userID && !actor.IsRoot {
		return nil, domainerrors.Forbidden("you may only view your own account")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users. Root only.
func (s *UserService) ListUsers(ctx context.Context, actor *auth.SessionClaims) ([]*domain.User, error) {
	if !actor.IsRoot {
		return nil, domainerrors.Forbidden("only the root user may list users")
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateUser registers an account directly, without the OAuth path. Root only.
func (s *UserService) CreateUser(ctx context.Context, actor *auth.SessionClaims, req CreateUserRequest) (*domain.User, error) {
	if !actor.IsRoot {
		return nil, domainerrors.Forbidden("only the root user may create users directly")
	}

	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Syncable: domain.Syncable{
			ID: userID,
		},
		FederatedID: req.FederatedID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		CanInvite:   req.CanInvite,
		InvitedBy:   actor.UserID,
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrFederatedIDExists) {
			return nil, domainerrors.Conflict("an account already exists for this identity")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User created directly",
			"user_id", user.ID,
			"email", user.Email,
			"created_by", actor.UserID,
		)
	}

	return user, nil
}

// UpdateUser applies profile changes to a user. Users may edit their own
// display name; the can_invite grant is root-only.
func (s *UserService) UpdateUser(ctx context.Context, actor *auth.SessionClaims, userID string, req UpdateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	if actor.UserID != userID && !actor.IsRoot {
		return nil, domainerrors.Forbidden("you may only update your own account")
	}
	if req.CanInvite != nil && !actor.IsRoot {
		return nil, domainerrors.Forbidden("only the root user may change invite permissions")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.CanInvite != nil {
		user.CanInvite = *req.CanInvite
	}
	user.Touch()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User updated",
			"user_id", user.ID,
			"updated_by", actor.UserID,
		)
	}

	return user, nil
}

// DeleteUser soft-deletes a user. Root only; the root account and the
// actor's own account are protected.
func (s *UserService) DeleteUser(ctx context.Context, actor *auth.SessionClaims, userID string) error {
	if !actor.IsRoot {
		return domainerrors.Forbidden("only the root user may delete users")
	}
	if actor.UserID == userID {
		return domainerrors.Forbidden("you may not delete your own account")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	if user.IsRoot {
		return domainerrors.Forbidden("the root user cannot be deleted")
	}

	// Invites issued by this user keep their invited_by back-references;
	// they are informational, not owning.
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User deleted",
			"user_id", userID,
			"deleted_by", actor.UserID,
		)
	}

	return nil
}
