// Package config loads and validates the CollectiveFS configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete CollectiveFS configuration.
//
// This structure captures all configurable aspects of the server:
//   - Logging behavior
//   - The process-wide instance identifier
//   - Root storage backend selection and backend-specific options
//   - Metadata cache backend selection and backend-specific options
//   - Collective-level settings (fallback owner, skeleton manifest,
//     static membership table)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (COLLECTIVEFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Backend Configuration Pattern:
// Each backend defines its own option struct and factory function
// (factories.go). The Config struct carries type-specific sections as raw
// maps and only the section matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Instance carries the process-wide instance identifier
	Instance InstanceConfig `mapstructure:"instance"`

	// Storage selects the root storage backend
	Storage StorageConfig `mapstructure:"storage"`

	// Cache selects the metadata cache backend
	Cache CacheConfig `mapstructure:"cache"`

	// Collectives carries collective-level settings
	Collectives CollectivesConfig `mapstructure:"collectives"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written: stdout, stderr, or a file
	// path
	Output string `mapstructure:"output" validate:"required"`
}

// InstanceConfig carries the deployment-wide instance identifier.
//
// The id is deliberately NOT validated as required at load time: its
// absence is a fatal error at first root-path resolution, surfaced by the
// resolver with a non-retryable error, matching when the value is actually
// needed.
type InstanceConfig struct {
	// ID is the process-wide instance identifier, e.g. "abc123"
	ID string `mapstructure:"id"`
}

// StorageConfig selects the root storage backend.
//
// The Type field determines which backend is used; only the corresponding
// type-specific section is decoded.
type StorageConfig struct {
	// Type specifies which storage backend to use
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific options
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3-specific options
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// CacheConfig selects the metadata cache backend.
type CacheConfig struct {
	// Type specifies which cache backend to use
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Badger contains BadgerDB-specific options
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// MembershipEntry is one collective in the static membership table.
type MembershipEntry struct {
	// ID is the collective's numeric id
	ID int64 `mapstructure:"id" validate:"required,gt=0"`

	// DisplayName is the mount's visible name
	DisplayName string `mapstructure:"display_name" validate:"required"`
}

// CollectivesConfig carries collective-level settings.
type CollectivesConfig struct {
	// DefaultOwner is the fallback owner used when a request has no
	// principal; "" disables the fallback
	DefaultOwner string `mapstructure:"default_owner"`

	// SkeletonManifest is an optional path to a YAML manifest describing
	// the skeleton template tree; "" provisions empty containers
	SkeletonManifest string `mapstructure:"skeleton_manifest"`

	// Memberships is the static principal -> collectives table used by
	// the built-in membership service
	Memberships map[string][]MembershipEntry `mapstructure:"memberships"`
}

// InstanceID exposes the instance identifier; *Config satisfies the
// collective package's InstanceIDSource.
func (c *Config) InstanceID() string {
	return c.Instance.ID
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses the default
//     location)
//
// Returns the loaded and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the COLLECTIVEFS_ prefix with underscores,
	// e.g. COLLECTIVEFS_INSTANCE_ID=abc123.
	v.SetEnvPrefix("COLLECTIVEFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists; a missing file
// is acceptable and falls back to defaults.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory: XDG_CONFIG_HOME if
// set, otherwise ~/.config, or the current directory as a last resort.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "collectivefs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "collectivefs")
}
