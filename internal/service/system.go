package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/patchouli-app/patchouli-server/internal/config"
	"github.com/patchouli-app/patchouli-server/internal/store/sqlite"
)

// Version is the server version reported by the status endpoint.
const Version = "0.1.0"

// SystemService reports server-level status.
type SystemService struct {
	store  *sqlite.Store
	config *config.Config
	logger *slog.Logger
}

// NewSystemService creates a new system service.
func NewSystemService(store *sqlite.Store, cfg *config.Config, logger *slog.Logger) *SystemService {
	return &SystemService{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// SystemStatus describes the public state of the server.
type SystemStatus struct {
	RootUserExists  bool   `json:"root_user_exists"`
	UsersRegistered int    `json:"users_registered"`
	ServerName      string `json:"server_name"`
	Version         string `json:"version"`
}

// Status returns the current system status.
// Root existence is read fresh on every call, never cached.
func (s *SystemService) Status(ctx context.Context) (*SystemStatus, error) {
	rootExists, err := s.store.RootExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check root state: %w", err)
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return &SystemStatus{
		RootUserExists:  rootExists,
		UsersRegistered: count,
		ServerName:      s.config.Server.Name,
		Version:         Version,
	}, nil
}
