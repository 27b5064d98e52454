// Package config resolves runtime configuration for swarmctl from flags,
// SWARM_* environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"swarmsettings/internal/db"
	"swarmsettings/internal/logger"
)

// EnvPrefix prefixes environment variables, e.g. SWARM_DB_PATH
const EnvPrefix = "SWARM"

// Config keys
const (
	KeyDBPath    = "db_path"
	KeyLogFormat = "log_format"
	KeyLogFile   = "log_file"
	KeyDebug     = "debug"
	KeySecrets   = "keyring"
	KeySeed      = "seed_defaults"
)

// Config is the resolved runtime configuration
type Config struct {
	DBPath       string `mapstructure:"db_path"`
	LogFormat    string `mapstructure:"log_format"`
	LogFile      string `mapstructure:"log_file"`
	Debug        bool   `mapstructure:"debug"`
	Keyring      bool   `mapstructure:"keyring"`
	SeedDefaults bool   `mapstructure:"seed_defaults"`
}

// New returns a viper instance with defaults and environment binding applied
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDBPath, "")
	v.SetDefault(KeyLogFormat, logger.FormatText)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeySecrets, true)
	v.SetDefault(KeySeed, true)
	return v
}

// Load reads cfgFile (if non-empty, or swarm.yaml in the project .swarm
// directory if present) and unmarshals the result
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("swarm")
		v.SetConfigType("yaml")
		if root, err := db.FindProjectRoot(); err == nil {
			v.AddConfigPath(filepath.Join(root, db.SwarmDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.LogFormat != logger.FormatText && cfg.LogFormat != logger.FormatJSON {
		return nil, fmt.Errorf("invalid log_format %q (want text or json)", cfg.LogFormat)
	}
	return &cfg, nil
}

// ResolveDBPath returns the configured database path or the project default
func (c *Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	return db.GetDefaultDBPath()
}
