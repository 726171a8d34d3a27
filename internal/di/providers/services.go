package providers

import (
	"github.com/samber/do/v2"

	"github.com/patchouli-app/patchouli-server/internal/auth"
	"github.com/patchouli-app/patchouli-server/internal/broker"
	"github.com/patchouli-app/patchouli-server/internal/config"
	"github.com/patchouli-app/patchouli-server/internal/logger"
	"github.com/patchouli-app/patchouli-server/internal/oauth"
	"github.com/patchouli-app/patchouli-server/internal/service"
)

// ProvideAuthService provides the authentication bridge service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	provider := do.MustInvoke[oauth.Provider](i)
	brk := do.MustInvoke[*broker.Broker](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, provider, brk, log.Logger), nil
}

// ProvideUserService provides the user directory service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, log.Logger), nil
}

// ProvideInviteService provides the invite service.
func ProvideInviteService(i do.Injector) (*service.InviteService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInviteService(storeHandle.Store, log.Logger), nil
}

// ProvideSystemService provides the system status service.
func ProvideSystemService(i do.Injector) (*service.SystemService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSystemService(storeHandle.Store, cfg, log.Logger), nil
}
