package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvcrn/authtoken-proxy/internal/auth"
	"github.com/dvcrn/authtoken-proxy/internal/config"
	"github.com/dvcrn/authtoken-proxy/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("AUTHTOKEN_STORAGE_BACKEND", storage.BackendMemory)
	cfg, err := config.Load(config.New())
	require.NoError(t, err)
	return cfg
}

func TestNew_WithoutTokenEndpoint(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Renew(context.Background(), "rt")
	assert.ErrorIs(t, err, ErrRenewalNotConfigured)
	assert.Equal(t, "auth-tokens-development", a.Store.Key())
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Backend = "floppy"

	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "floppy")
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing configured", func(t *testing.T) {
		a, err := New(ctx, memoryConfig(t), zerolog.Nop())
		require.NoError(t, err)

		seeded, err := a.Seed(ctx)
		require.NoError(t, err)
		assert.False(t, seeded)
	})

	t.Run("partial seed", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.Seed.AccessToken = "A"
		a, err := New(ctx, cfg, zerolog.Nop())
		require.NoError(t, err)

		_, err = a.Seed(ctx)
		assert.Error(t, err)
	})

	t.Run("stores when empty", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.Seed.AccessToken = "A"
		cfg.Seed.RefreshToken = "R"
		a, err := New(ctx, cfg, zerolog.Nop())
		require.NoError(t, err)

		seeded, err := a.Seed(ctx)
		require.NoError(t, err)
		assert.True(t, seeded)

		rt, err := a.Store.RefreshToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "R", rt)

		cfg.Seed.RefreshToken = "R-other"
		seeded, err = a.Seed(ctx)
		require.NoError(t, err)
		assert.False(t, seeded, "existing tokens win over the seed")
	})
}

func TestNewServer(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer upstream.Close()

	cfg := memoryConfig(t)
	cfg.Server.Upstream = upstream.URL
	cfg.Seed.AccessToken = "opaque-but-stored"
	cfg.Seed.RefreshToken = "R"

	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	_, err = a.Seed(context.Background())
	require.NoError(t, err)

	a.Renew = func(context.Context, string) (auth.Renewal, error) {
		return auth.AccessToken("renewed"), nil
	}
	srv, err := a.NewServer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer renewed", rec.Body.String())
}
