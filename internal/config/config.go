package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvcrn/authtoken-proxy/internal/auth"
	"github.com/dvcrn/authtoken-proxy/internal/storage"
	"github.com/dvcrn/authtoken-proxy/internal/token"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "AUTHTOKEN"
	FileName  = "authtoken"
)

type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	// Fudge is parsed with token.ParseFudge; see FudgeDuration.
	Fudge   string        `mapstructure:"fudge"`
	Header  HeaderConfig  `mapstructure:"header"`
	Storage StorageConfig `mapstructure:"storage"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	Server  ServerConfig  `mapstructure:"server"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Seed    SeedConfig    `mapstructure:"seed"`
}

type HeaderConfig struct {
	Name   string `mapstructure:"name"`
	Prefix string `mapstructure:"prefix"`
}

type StorageConfig struct {
	Backend         string      `mapstructure:"backend"`
	Path            string      `mapstructure:"path"`
	KeychainService string      `mapstructure:"keychain_service"`
	SQLitePath      string      `mapstructure:"sqlite_path"`
	KVBinding       string      `mapstructure:"kv_binding"`
	Redis           RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type OAuthConfig struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Upstream string `mapstructure:"upstream"`
	AdminKey string `mapstructure:"admin_key"`
	// AdminRate is the sustained number of admin requests per second.
	AdminRate  float64 `mapstructure:"admin_rate"`
	AdminBurst int     `mapstructure:"admin_burst"`
}

type RefreshConfig struct {
	// Interval of zero disables background refresh.
	Interval time.Duration `mapstructure:"interval"`
}

type SeedConfig struct {
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// New returns a viper instance with defaults, environment binding and the
// optional config file search paths set up.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("fudge", "10s")
	v.SetDefault("header.name", auth.DefaultHeader.Name)
	v.SetDefault("header.prefix", auth.DefaultHeader.Prefix)
	v.SetDefault("storage.backend", storage.BackendFile)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.keychain_service", storage.DefaultKeychainService)
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.kv_binding", storage.DefaultKVBinding)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("oauth.token_url", "")
	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.scopes", []string{})
	v.SetDefault("server.port", "9879")
	v.SetDefault("server.upstream", "")
	v.SetDefault("server.admin_key", "")
	v.SetDefault("server.admin_rate", 1.0)
	v.SetDefault("server.admin_burst", 5)
	v.SetDefault("refresh.interval", time.Duration(0))
	v.SetDefault("seed.access_token", "")
	v.SetDefault("seed.refresh_token", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(storage.DefaultDir())

	return v
}

var flagName = strings.NewReplacer(".", "-", "_", "-")

// BindFlags binds every flag in fs whose name matches a config key with
// dots and underscores replaced by dashes, e.g. --storage-sqlite-path to
// storage.sqlite_path. Flags without a matching key are left alone.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	keys := make(map[string]string)
	for _, k := range v.AllKeys() {
		keys[flagName.Replace(k)] = k
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Load reads the optional config file and decodes v into a Config. A
// missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := cfg.FudgeDuration(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) FudgeDuration() (time.Duration, error) {
	d, err := token.ParseFudge(c.Fudge)
	if err != nil {
		return 0, fmt.Errorf("invalid fudge %q: %w", c.Fudge, err)
	}
	return d, nil
}

func (c *Config) StorageKey() string {
	return storage.Key(c.Env)
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:         c.Storage.Backend,
		Path:            c.Storage.Path,
		KeychainService: c.Storage.KeychainService,
		RedisAddr:       c.Storage.Redis.Addr,
		RedisPassword:   c.Storage.Redis.Password,
		RedisDB:         c.Storage.Redis.DB,
		SQLitePath:      c.Storage.SQLitePath,
		KVBinding:       c.Storage.KVBinding,
		Verbose:         strings.EqualFold(c.LogLevel, "debug") || strings.EqualFold(c.LogLevel, "trace"),
	}
}

func (c *Config) AuthHeader() auth.Header {
	return auth.Header{Name: c.Header.Name, Prefix: c.Header.Prefix}
}

func (c *Config) OAuthRenewerConfig() auth.OAuthConfig {
	return auth.OAuthConfig{
		TokenURL:     c.OAuth.TokenURL,
		ClientID:     c.OAuth.ClientID,
		ClientSecret: c.OAuth.ClientSecret,
		Scopes:       c.OAuth.Scopes,
	}
}
