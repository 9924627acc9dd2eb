// Package config loads the top-level application configuration: the
// list of PLC engines to run, database pool tuning, the metrics bind
// address, and logging — from environment variables, a YAML file, and
// built-in defaults, in that precedence order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// PLCConfig is one engine's wiring: which node-registry file to load,
// how often to poll, and the publishing interval for its alarm
// subscription. Endpoint credentials are looked up from the
// credentials file by Key at startup, not stored here.
type PLCConfig struct {
	Key                string        `mapstructure:"key" validate:"required"`
	RegistryPath       string        `mapstructure:"registry_path" validate:"required"`
	EventCounterPath   string        `mapstructure:"event_counter_path" validate:"required"`
	PollPeriod         time.Duration `mapstructure:"poll_period" validate:"required"`
	PublishingInterval time.Duration `mapstructure:"publishing_interval" validate:"required"`
}

// DatabaseConfig holds connection pool tuning shared across all
// engines (the per-engine credentials come from the credentials file).
type DatabaseConfig struct {
	SSLMode        string        `mapstructure:"ssl_mode"`
	MaxConns       int32         `mapstructure:"max_conns" validate:"gt=0"`
	MinConns       int32         `mapstructure:"min_conns" validate:"gte=0"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LogConfig mirrors pkg/logger.Config's shape for YAML/env binding.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the ops HTTP server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the fully loaded application configuration.
type Config struct {
	CredentialsPath string         `mapstructure:"credentials_path" validate:"required"`
	SchemaPath      string         `mapstructure:"schema_path"`
	PLCs            []PLCConfig    `mapstructure:"plcs" validate:"required,min=1,dive"`
	Database        DatabaseConfig `mapstructure:"database"`
	Log             LogConfig      `mapstructure:"log"`
	Metrics         MetricsConfig  `mapstructure:"metrics"`
}

var validate = validator.New()

// Load reads configPath (if non-empty) over viper's defaults, applies
// automatic environment-variable overrides, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	if err := cfg.validateUniquePLCKeys(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema_path", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")
}

func (c *Config) validateUniquePLCKeys() error {
	seen := make(map[string]struct{}, len(c.PLCs))
	for _, p := range c.PLCs {
		if _, dup := seen[p.Key]; dup {
			return fmt.Errorf("config: duplicate plc key %q", p.Key)
		}
		seen[p.Key] = struct{}{}
	}
	return nil
}
