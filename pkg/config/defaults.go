package config

import "strings"

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// Called after loading from file and environment, before validation.
// Zero values are replaced with defaults; explicit values are preserved.
// Backend-specific defaults live with the backends, not here.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStorageDefaults(&cfg.Storage)
	applyCacheDefaults(&cfg.Cache)
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStorageDefaults sets root storage defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}
}

// applyCacheDefaults sets metadata cache defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
}
