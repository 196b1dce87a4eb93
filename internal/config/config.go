// Package config wraps Viper behind a small read-only interface and loads
// stampd configuration from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the read-only configuration view handed to plugins and servers.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	GetFloat64(key string) float64
	IsSet(key string) bool
	Sub(key string) Config
	Unmarshal(target any) error
}

// Compile-time interface guard.
var _ Config = (*ViperConfig)(nil)

// ViperConfig implements Config on top of a *viper.Viper. A nil Viper
// behaves as an empty configuration.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *ViperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *ViperConfig) Sub(key string) Config {
	sub := c.v.Sub(key)
	if sub == nil {
		sub = viper.New()
	}
	return &ViperConfig{v: sub}
}

func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

// BindPFlag makes an explicitly set command-line flag override key.
func (c *ViperConfig) BindPFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %q: flag not defined", key)
	}
	return c.v.BindPFlag(key, flag)
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.rps", 50.0)
	v.SetDefault("server.rate_limit.burst", 100)
	v.SetDefault("server.tracing", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "stampd.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("plugins.stamps.enabled", true)
	v.SetDefault("plugins.stamps.status_policy", "compat")
}

// Load reads configuration. path may be empty, in which case ./stampd.yaml
// and /etc/stampd/stampd.yaml are tried and a missing file is not an error.
// Environment variables prefixed STAMPD_ override file values, with dots
// replaced by underscores (STAMPD_DATABASE_DSN).
func Load(path string) (*ViperConfig, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("stampd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		return New(v), nil
	}

	v.SetConfigName("stampd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/stampd")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return New(v), nil
}
