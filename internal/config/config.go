// Package config loads cmd/u2fauthd's configuration from a file and
// flags; environment variables are not read. It uses the same cobra+viper+mapstructure stack
// kgiusti-go-fdo-server's cmd/root.go and cmd/config.go use for their own
// server configuration.
package config

import (
	"errors"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// LogConfig controls cmd/u2fauthd's structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig points at the sqlite-backed counter/key-material store
// (internal/store).
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PresenceConfig controls the CLI user-presence gate.
type PresenceConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ServeConfig controls cmd/u2fauthd's TCP APDU test harness.
type ServeConfig struct {
	Address string `mapstructure:"address"`
	// MetricsAddress, if set, also serves internal/metrics.Registry over
	// HTTP. Left empty, no metrics listener is started.
	MetricsAddress string `mapstructure:"metrics_address"`
}

// Config is the top-level configuration for cmd/u2fauthd.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Presence PresenceConfig `mapstructure:"presence"`
	Serve    ServeConfig    `mapstructure:"serve"`
}

// PresenceTimeout returns Presence.TimeoutSeconds as a time.Duration,
// defaulting to 10s when unset.
func (c Config) PresenceTimeout() time.Duration {
	if c.Presence.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Presence.TimeoutSeconds) * time.Second
}

func (c Config) validate() error {
	if c.Store.DSN == "" {
		return errors.New("config: store.dsn is required")
	}
	return nil
}

// Load decodes v's current settings (file + flags, already merged by the
// caller via viper.SetConfigFile/BindPFlag) into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
	}); err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
