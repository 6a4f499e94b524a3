package main

import (
	"fmt"

	"github.com/dvcrn/authtoken-proxy/internal/app"
	"github.com/dvcrn/authtoken-proxy/internal/config"
	"github.com/dvcrn/authtoken-proxy/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries state shared by every command. app is built in the root's
// PersistentPreRunE once flags are parsed.
type cli struct {
	v       *viper.Viper
	cfgFile string
	app     *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	rootCmd := &cobra.Command{
		Use:           "authtoken-proxy",
		Short:         "Keep a bearer token fresh and attach it to proxied requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "Config file (default ./authtoken.yaml or $XDG_CONFIG_HOME/authtoken-proxy/authtoken.yaml)")
	flags.String("env", "", "Deployment environment; scopes the storage key")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("fudge", "", "Renew this long before expiry (e.g. 10s, 1m, 30)")
	flags.String("storage-backend", "", "Token storage backend (memory, file, keychain, redis, sqlite)")
	flags.String("storage-path", "", "Token file path for the file backend")
	flags.String("storage-sqlite-path", "", "Database path for the sqlite backend")
	flags.String("storage-redis-addr", "", "Redis address for the redis backend")
	flags.String("oauth-token-url", "", "OAuth token endpoint used for refresh grants")
	flags.String("oauth-client-id", "", "OAuth client ID")

	rootCmd.AddCommand(
		c.serveCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.statusCmd(),
		c.tokenCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	}
	if err := config.BindFlags(c.v, cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Env, cfg.LogLevel)
	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize")
		return err
	}
	c.app = a
	return nil
}
