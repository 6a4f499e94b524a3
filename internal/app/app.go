package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvcrn/authtoken-proxy/internal/auth"
	"github.com/dvcrn/authtoken-proxy/internal/config"
	"github.com/dvcrn/authtoken-proxy/internal/credentials"
	"github.com/dvcrn/authtoken-proxy/internal/server"
	"github.com/dvcrn/authtoken-proxy/internal/storage"
	"github.com/rs/zerolog"
)

// ErrRenewalNotConfigured is returned by the renew function when no token
// endpoint is configured.
var ErrRenewalNotConfigured = errors.New("token renewal is not configured (set oauth.token_url)")

// App holds the wired components shared by the CLI commands and the
// Workers entry point.
type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Store       *credentials.Store
	Coordinator *auth.Coordinator
	Renew       auth.RenewFunc

	closeStorage func() error
}

// New opens the configured storage backend and builds the coordinator and
// renew function on top of it.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	fudge, err := cfg.FudgeDuration()
	if err != nil {
		return nil, err
	}

	backend, closeFn, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	logger.Debug().
		Str("backend", cfg.Storage.Backend).
		Str("key", cfg.StorageKey()).
		Msg("📦 Storage opened")

	renew, err := newRenewFunc(cfg)
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	store := credentials.NewStore(backend, cfg.StorageKey())
	return &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Coordinator: auth.NewCoordinator(store,
			auth.WithFudge(fudge),
			auth.WithLogger(logger),
		),
		Renew:        renew,
		closeStorage: closeFn,
	}, nil
}

func newRenewFunc(cfg *config.Config) (auth.RenewFunc, error) {
	if cfg.OAuth.TokenURL == "" {
		return func(context.Context, string) (auth.Renewal, error) {
			return nil, ErrRenewalNotConfigured
		}, nil
	}
	renewer, err := auth.NewOAuthRenewer(cfg.OAuthRenewerConfig())
	if err != nil {
		return nil, err
	}
	return renewer.Renew, nil
}

// Seed stores the configured seed token pair when nothing is stored yet.
// It reports whether a pair was written.
func (a *App) Seed(ctx context.Context) (bool, error) {
	seed := a.Config.Seed
	if seed.AccessToken == "" && seed.RefreshToken == "" {
		return false, nil
	}
	if seed.AccessToken == "" || seed.RefreshToken == "" {
		return false, errors.New("seed requires both seed.access_token and seed.refresh_token")
	}

	loggedIn, err := a.Store.IsLoggedIn(ctx)
	if err != nil {
		return false, err
	}
	if loggedIn {
		a.Logger.Debug().Msg("Tokens already stored, ignoring seed")
		return false, nil
	}

	if err := a.Store.SetPair(ctx, credentials.Pair{AccessToken: seed.AccessToken, RefreshToken: seed.RefreshToken}); err != nil {
		return false, err
	}
	a.Logger.Info().Msg("🌱 Seeded auth tokens from configuration")
	return true, nil
}

// NewServer creates the proxy server on top of the app's coordinator
func (a *App) NewServer() (*server.Server, error) {
	return server.New(a.Logger, a.Coordinator, a.Renew, server.Options{
		Upstream:   a.Config.Server.Upstream,
		AdminKey:   a.Config.Server.AdminKey,
		AdminRate:  a.Config.Server.AdminRate,
		AdminBurst: a.Config.Server.AdminBurst,
		Header:     a.Config.AuthHeader(),
	})
}

// LogStartupStatus reports the state of the stored session.
func (a *App) LogStartupStatus(ctx context.Context) {
	st, err := a.Coordinator.Status(ctx)
	switch {
	case err != nil:
		a.Logger.Error().Err(err).Msg("⚠️  Failed to read stored auth tokens")
	case !st.LoggedIn:
		a.Logger.Warn().Msg("⚠️  No auth tokens stored, requests will be forwarded anonymously")
	case st.ExpiresAt.IsZero():
		a.Logger.Warn().Msg("⚠️  Access token has no readable expiry, will refresh on first request")
	case st.Expired:
		a.Logger.Warn().
			Dur("expired_for", -st.Remaining).
			Msg("⚠️  Token is already expired, will attempt refresh on first request")
	case st.NeedsRefresh:
		a.Logger.Warn().
			Dur("remaining", st.Remaining).
			Msg("⚠️  Token expires soon, will refresh shortly")
	default:
		a.Logger.Info().
			Dur("remaining", st.Remaining).
			Msg("✅ Token is valid and not expiring soon")
	}
}

func (a *App) Close() error {
	if a.closeStorage == nil {
		return nil
	}
	return a.closeStorage()
}
