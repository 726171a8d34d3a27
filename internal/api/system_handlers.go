package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/patchouli-app/patchouli-server/internal/service"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSystemStatus",
		Method:      http.MethodGet,
		Path:        "/system/status",
		Summary:     "System status",
		Description: "Returns public server state, including whether the root account has been claimed. Clients use this to decide whether to offer bootstrap registration.",
		Tags:        []string{"System"},
	}, s.handleSystemStatus)
}

// SystemStatusOutput wraps the system status for Huma.
type SystemStatusOutput struct {
	Body service.SystemStatus
}

func (s *Server) handleSystemStatus(ctx context.Context, _ *struct{}) (*SystemStatusOutput, error) {
	status, err := s.services.System.Status(ctx)
	if err != nil {
		return nil, err
	}

	return &SystemStatusOutput{Body: *status}, nil
}
