package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patchouli-app/patchouli-server/internal/auth"
	"github.com/patchouli-app/patchouli-server/internal/domain"
	domainerrors "github.com/patchouli-app/patchouli-server/internal/errors"
	"github.com/patchouli-app/patchouli-server/internal/id"
	"github.com/patchouli-app/patchouli-server/internal/store"
	"github.com/patchouli-app/patchouli-server/internal/store/sqlite"
)

const (
	// inviteCodeSize is the number of bytes for invite codes (16 bytes = 128 bits of entropy).
	inviteCodeSize = 16
	// defaultInviteExpiry is the default time until an invite expires.
	defaultInviteExpiry = 7 * 24 * time.Hour // 7 days
)

// InviteService handles invite creation, listing, and revocation.
// Redemption happens inside the auth bridge during registration.
type InviteService struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// NewInviteService creates a new invite service.
func NewInviteService(store *sqlite.Store, logger *slog.Logger) *InviteService {
	return &InviteService{
		store:  store,
		logger: logger,
	}
}

// CreateInviteRequest contains the data needed to create an invite.
type CreateInviteRequest struct {
	// ExpiresInDays overrides the default 7-day lifetime. 0 uses the
	// default; -1 creates an invite that never expires.
	ExpiresInDays int `json:"expires_in_days" validate:"omitempty,min=-1,max=365"`
}

// CreateInvite creates a new single-use invite issued by the actor.
// Requires the can_invite grant.
func (s *InviteService) CreateInvite(ctx context.Context, actor *auth.SessionClaims, req CreateInviteRequest) (*domain.Invite, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	if !actor.CanInvite {
		return nil, domainerrors.Forbidden("you are not allowed to issue invites")
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generate invite code: %w", err)
	}

	inviteID, err := id.Generate("invite")
	if err != nil {
		return nil, fmt.Errorf("generate invite ID: %w", err)
	}

	invite := &domain.Invite{
		Syncable: domain.Syncable{
			ID: inviteID,
		},
		Code:     code,
		IssuedBy: actor.UserID,
	}
	invite.InitTimestamps()

	switch {
	case req.ExpiresInDays > 0:
		expires := time.Now().Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour)
		invite.ExpiresAt = &expires
	case req.ExpiresInDays == 0:
		expires := time.Now().Add(defaultInviteExpiry)
		invite.ExpiresAt = &expires
	}

	if err := s.store.CreateInvite(ctx, invite); err != nil {
		if errors.Is(err, store.ErrInviteCodeExists) {
			// Extremely unlikely with 128-bit entropy, but handle it
			return nil, domainerrors.Conflict("invite code collision, please try again")
		}
		return nil, fmt.Errorf("create invite: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Invite created",
			"invite_id", invite.ID,
			"issued_by", actor.UserID,
			"expires_at", invite.ExpiresAt,
		)
	}

	return invite, nil
}

// ListInvites returns the actor's own invites, newest first.
func (s *InviteService) ListInvites(ctx context.Context, actor *auth.SessionClaims) ([]*domain.Invite, error) {
	if !actor.CanInvite && !actor.IsRoot {
		return nil, domainerrors.Forbidden("you are not allowed to view invites")
	}

	invites, err := s.store.ListInvitesByIssuer(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}

// DeleteInvite revokes an unredeemed invite.
// Only the issuer or the root user may revoke an invite.
func (s *InviteService) DeleteInvite(ctx context.Context, actor *auth.SessionClaims, inviteID string) error {
	invite, err := s.store.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrInviteNotFound) {
			return domainerrors.InviteNotFound("invite not found")
		}
		return fmt.Errorf("get invite: %w", err)
	}

	if invite.IssuedBy != actor.UserID && !actor.IsRoot {
		return domainerrors.Forbidden("you may only revoke your own invites")
	}

	if invite.IsRedeemed() {
		return domainerrors.Conflict("cannot revoke a redeemed invite")
	}

	if err := s.store.DeleteInvite(ctx, inviteID); err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Invite revoked",
			"invite_id", inviteID,
			"revoked_by", actor.UserID,
		)
	}

	return nil
}

// generateInviteCode generates a cryptographically random, URL-safe invite code.
func generateInviteCode() (string, error) {
	b := make([]byte, inviteCodeSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
