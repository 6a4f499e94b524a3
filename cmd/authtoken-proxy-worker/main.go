//go:build js && wasm

package main

import (
	"context"
	"strings"

	"github.com/dvcrn/authtoken-proxy/internal/app"
	"github.com/dvcrn/authtoken-proxy/internal/config"
	"github.com/dvcrn/authtoken-proxy/internal/logger"
	"github.com/dvcrn/authtoken-proxy/internal/storage"
	"github.com/spf13/viper"
	"github.com/syumai/workers"
	"github.com/syumai/workers/cloudflare"
)

// bindWorkerEnv copies Worker vars and secrets (AUTHTOKEN_SERVER_UPSTREAM,
// ...) into v. They are not visible through os.Getenv.
func bindWorkerEnv(v *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range v.AllKeys() {
		name := config.EnvPrefix + "_" + strings.ToUpper(replacer.Replace(key))
		if value := cloudflare.Getenv(name); value != "" {
			v.Set(key, value)
		}
	}
}

func main() {
	v := config.New()
	bindWorkerEnv(v)
	// Workers have no filesystem or sockets to the other backends.
	v.Set("storage.backend", storage.BackendKV)

	cfg, err := config.Load(v)
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	log.Info().Str("binding", cfg.Storage.KVBinding).Msg("📦 Using Cloudflare KV token storage")

	if _, err := a.Seed(ctx); err != nil {
		log.Error().Err(err).Msg("⚠️  Failed to seed auth tokens")
	}

	srv, err := a.NewServer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Serve using workers - it handles all the HTTP server setup
	workers.Serve(srv)
}
