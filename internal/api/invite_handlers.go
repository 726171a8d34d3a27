package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/patchouli-app/patchouli-server/internal/domain"
	"github.com/patchouli-app/patchouli-server/internal/service"
)

func (s *Server) registerInviteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createInvite",
		Method:      http.MethodPost,
		Path:        "/invites",
		Summary:     "Create invite",
		Description: "Issues a single-use invite code. Requires the can_invite grant.",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateInvite)

	huma.Register(s.api, huma.Operation{
		OperationID: "listInvites",
		Method:      http.MethodGet,
		Path:        "/invites",
		Summary:     "List invites",
		Description: "Returns the caller's issued invites, newest first.",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListInvites)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteInvite",
		Method:      http.MethodDelete,
		Path:        "/invites/{id}",
		Summary:     "Revoke invite",
		Description: "Revokes an unredeemed invite. Only the issuer or root may revoke.",
		Tags:        []string{"Invites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteInvite)
}

// === DTOs ===

// InviteResponse contains invite information in API responses.
type InviteResponse struct {
	ID         string     `json:"id" doc:"Invite ID"`
	Code       string     `json:"code" doc:"Single-use invite code"`
	Status     string     `json:"status" doc:"Invite status: pending, redeemed, expired, or revoked"`
	IssuedBy   string     `json:"issued_by" doc:"ID of the issuing user"`
	CreatedAt  time.Time  `json:"created_at" doc:"Creation timestamp"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" doc:"Expiry timestamp; absent when the invite never expires"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty" doc:"Redemption timestamp"`
	RedeemedBy string     `json:"redeemed_by,omitempty" doc:"ID of the redeeming user"`
}

// InviteOutput wraps a single invite for Huma.
type InviteOutput struct {
	Body InviteResponse
}

// InviteListOutput wraps an invite list for Huma.
type InviteListOutput struct {
	Body struct {
		Invites []InviteResponse `json:"invites" doc:"Issued invites"`
	}
}

// CreateInviteInput wraps the creation request for Huma.
type CreateInviteInput struct {
	AuthenticatedInput
	Body service.CreateInviteRequest
}

// InvitePathInput addresses an invite by ID on protected routes.
type InvitePathInput struct {
	AuthenticatedInput
	ID string `path:"id" doc:"Invite ID"`
}

// === Handlers ===

func (s *Server) handleCreateInvite(ctx context.Context, input *CreateInviteInput) (*InviteOutput, error) {
	claims, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	invite, err := s.services.Invite.CreateInvite(ctx, claims, input.Body)
	if err != nil {
		return nil, err
	}

	return &InviteOutput{Body: mapInvite(invite)}, nil
}

func (s *Server) handleListInvites(ctx context.Context, input *AuthenticatedInput) (*InviteListOutput, error) {
	claims, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	invites, err := s.services.Invite.ListInvites(ctx, claims)
	if err != nil {
		return nil, err
	}

	out := &InviteListOutput{}
	out.Body.Invites = make([]InviteResponse, 0, len(invites))
	for _, inv := range invites {
		out.Body.Invites = append(out.Body.Invites, mapInvite(inv))
	}
	return out, nil
}

func (s *Server) handleDeleteInvite(ctx context.Context, input *InvitePathInput) (*MessageOutput, error) {
	claims, err := s.authenticateRequest(input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Invite.DeleteInvite(ctx, claims, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{
		Body: MessageResponse{Message: "Invite revoked"},
	}, nil
}

// === Helpers ===

// mapInvite converts a domain invite to its API representation.
func mapInvite(inv *domain.Invite) InviteResponse {
	return InviteResponse{
		ID:         inv.ID,
		Code:       inv.Code,
		Status:     inv.Status(),
		IssuedBy:   inv.IssuedBy,
		CreatedAt:  inv.CreatedAt,
		ExpiresAt:  inv.ExpiresAt,
		RedeemedAt: inv.RedeemedAt,
		RedeemedBy: inv.RedeemedBy,
	}
}
