package api

import (
	"github.com/patchouli-app/patchouli-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth   *service.AuthService
	User   *service.UserService
	Invite *service.InviteService
	System *service.SystemService
}
