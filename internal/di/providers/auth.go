package providers

import (
	"encoding/hex"

	"github.com/samber/do/v2"

	"github.com/patchouli-app/patchouli-server/internal/auth"
	"github.com/patchouli-app/patchouli-server/internal/broker"
	"github.com/patchouli-app/patchouli-server/internal/config"
	"github.com/patchouli-app/patchouli-server/internal/logger"
	"github.com/patchouli-app/patchouli-server/internal/oauth"
)

// AuthKey wraps the session token key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the session token key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.SessionTokenKey = key

	log.Info("Session token key loaded",
		"session_token_duration", cfg.Auth.SessionTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	keyHex := hex.EncodeToString([]byte(authKey))
	return auth.NewTokenService(keyHex, cfg.Auth.SessionTokenDuration)
}

// ProvideOAuthProvider provides the external identity provider client.
func ProvideOAuthProvider(i do.Injector) (oauth.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	provider := oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		UserInfoURL:  cfg.OAuth.UserInfoURL,
	})

	log.Info("Identity provider configured", "redirect_url", cfg.OAuth.RedirectURL)

	return provider, nil
}

// ProvideBroker provides the in-memory state and poll handle broker.
func ProvideBroker(i do.Injector) (*broker.Broker, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return broker.New(cfg.Auth.StateDuration, cfg.Auth.HandleDuration), nil
}
