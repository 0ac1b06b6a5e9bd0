package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds settings shared by the CLI commands and the server
type Config struct {
	DB      string        `mapstructure:"db"`
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
	Stride  int           `mapstructure:"stride"`
	Server  ServerConfig  `mapstructure:"server"`
}

type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// DefaultDBPath returns ~/.kdindex/points.db
func DefaultDBPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".kdindex", "points.db")
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", DefaultDBPath())
	v.SetDefault("workers", 8)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("stride", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.idle_timeout", 5*time.Minute)
}

// Load reads configuration from defaults, an optional YAML file and
// KDINDEX_* environment variables, in increasing priority. Flags bound to v
// by the caller take precedence over all of them. When configFile is empty
// ~/.kdindex.yaml is used if present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(homeDir)
		v.SetConfigName(".kdindex")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("KDINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.Stride < 1 {
		return nil, fmt.Errorf("stride must be positive, got %d", cfg.Stride)
	}

	return cfg, nil
}
