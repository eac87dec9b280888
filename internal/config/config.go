// Package config loads relay configuration from file, environment, and
// defaults, in that order of increasing precedence for the environment.
//
// The file is optional: a missing relay.yaml means defaults plus any
// RELAY_* environment overrides. A present but unparseable file is an
// error.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name of the configuration file,
	// relay.yaml by convention.
	ConfigFileName = "relay"

	// EnvPrefix prefixes environment overrides, e.g. RELAY_SERVER_PORT.
	EnvPrefix = "RELAY"

	// DefaultPort is the default relay listen port.
	DefaultPort = 26543

	// DefaultAdminAddr is the default admin HTTP listen address.
	DefaultAdminAddr = "127.0.0.1:8743"
)

// Config is the full relayd configuration tree.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Input  InputConfig  `mapstructure:"input"`
	Admin  AdminConfig  `mapstructure:"admin"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the relay TCP server.
type ServerConfig struct {
	// Port is the TCP listen port. 0 selects an ephemeral port.
	Port int `mapstructure:"port"`

	// QueueCapacity is the per-session send queue capacity.
	QueueCapacity int `mapstructure:"queue_capacity"`

	// KeepAlivePeriod is the TCP keepalive probe interval.
	KeepAlivePeriod time.Duration `mapstructure:"keepalive_period"`
}

// InputConfig configures the input normalizer.
type InputConfig struct {
	// StickDeadzone is the stick deadzone fraction (0..1).
	StickDeadzone float64 `mapstructure:"stick_deadzone"`

	// TriggerDeadzone is the trigger deadzone fraction (0..1).
	TriggerDeadzone float64 `mapstructure:"trigger_deadzone"`

	// MaxRate is the emission ceiling in snapshots per second.
	MaxRate int `mapstructure:"max_rate"`

	// Synthetic enables the built-in sample generator instead of a real
	// capture backend, for development and soak testing.
	Synthetic bool `mapstructure:"synthetic"`
}

// AdminConfig configures the admin HTTP endpoint.
type AdminConfig struct {
	// Enabled controls whether the admin endpoint is served at all.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			QueueCapacity:   120,
			KeepAlivePeriod: 10 * time.Second,
		},
		Input: InputConfig{
			StickDeadzone:   0.08,
			TriggerDeadzone: 0.05,
			MaxRate:         120,
		},
		Admin: AdminConfig{
			Enabled: true,
			Addr:    DefaultAdminAddr,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the given file path, or from relay.yaml in
// the working directory when path is empty. The file may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.queue_capacity", def.Server.QueueCapacity)
	v.SetDefault("server.keepalive_period", def.Server.KeepAlivePeriod)
	v.SetDefault("input.stick_deadzone", def.Input.StickDeadzone)
	v.SetDefault("input.trigger_deadzone", def.Input.TriggerDeadzone)
	v.SetDefault("input.max_rate", def.Input.MaxRate)
	v.SetDefault("input.synthetic", def.Input.Synthetic)
	v.SetDefault("admin.enabled", def.Admin.Enabled)
	v.SetDefault("admin.addr", def.Admin.Addr)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Server.QueueCapacity <= 0 {
		return fmt.Errorf("config: server.queue_capacity must be positive, got %d", c.Server.QueueCapacity)
	}
	if c.Input.StickDeadzone < 0 || c.Input.StickDeadzone >= 1 {
		return fmt.Errorf("config: input.stick_deadzone %v out of range [0,1)", c.Input.StickDeadzone)
	}
	if c.Input.TriggerDeadzone < 0 || c.Input.TriggerDeadzone >= 1 {
		return fmt.Errorf("config: input.trigger_deadzone %v out of range [0,1)", c.Input.TriggerDeadzone)
	}
	if c.Input.MaxRate <= 0 || c.Input.MaxRate > 1000 {
		return fmt.Errorf("config: input.max_rate %d out of range (0,1000]", c.Input.MaxRate)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format %q not one of text, json", c.Log.Format)
	}
	if c.Admin.Enabled && c.Admin.Addr == "" {
		return fmt.Errorf("config: admin.addr required when admin.enabled")
	}
	return nil
}

// MinEmitInterval derives the snapshot spacing from the configured rate.
func (c *InputConfig) MinEmitInterval() time.Duration {
	if c.MaxRate <= 0 {
		return time.Second / 120
	}
	return time.Second / time.Duration(c.MaxRate)
}
