// Package config provides configuration for the placemark data layer.
// Settings load in three layers, lowest precedence first: built-in defaults,
// an optional YAML file, environment variables with the PLACEMARK_ prefix.
// A .env file in the working directory is folded into the environment before
// reading it.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all settings of the data layer.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Remote  RemoteConfig  `yaml:"remote"`
	Legacy  LegacyConfig  `yaml:"legacy"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig configures the local record store.
type StorageConfig struct {
	// DataPath is the directory holding the SQLite database file.
	DataPath string `yaml:"data_path"`
}

// RemoteConfig configures the remote document store used by the sync engine.
type RemoteConfig struct {
	// PostgresDSN is the connection string of the document backend. Empty
	// disables all remote sync.
	PostgresDSN string `yaml:"postgres_dsn"`

	// Owner is the identity records sync under. Empty means anonymous:
	// incremental propagation is off and bulk sync is unavailable.
	Owner string `yaml:"owner"`
}

// LegacyConfig configures the one-shot legacy import.
type LegacyConfig struct {
	// ExportPath is the legacy flat-store export file. Empty or missing
	// means there is no legacy data to import.
	ExportPath string `yaml:"export_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DatabasePath returns the SQLite database file path.
func (c *Config) DatabasePath() string {
	return c.Storage.DataPath + "/placemark.db"
}

// Load builds the configuration. configFile may be empty; a named file that
// does not exist is an error, so a typo in -config fails loudly.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Storage: StorageConfig{DataPath: "./data"},
		Log:     LogConfig{Level: "info"},
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	applyEnv(cfg)

	if cfg.Storage.DataPath == "" {
		return nil, fmt.Errorf("storage data path must not be empty")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setEnvString(&cfg.Storage.DataPath, "PLACEMARK_DATA_PATH")
	setEnvString(&cfg.Remote.PostgresDSN, "PLACEMARK_REMOTE_DSN")
	setEnvString(&cfg.Remote.Owner, "PLACEMARK_OWNER")
	setEnvString(&cfg.Legacy.ExportPath, "PLACEMARK_LEGACY_EXPORT")
	setEnvString(&cfg.Log.Level, "PLACEMARK_LOG_LEVEL")
}

func setEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
