package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// Environment > config file > defaults precedence; CLI flags are applied
// by the caller on top.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	d := DefaultServiceConfig()
	defaults := map[string]any{
		"host":            d.Host,
		"port":            d.Port,
		"request_timeout": d.RequestTimeout.String(),
		"data_dir":        d.DataDir,
		"default_event":   d.DefaultEvent,
		"metrics_addr":    d.MetricsAddr,
		"cache_size":      d.CacheSize,
		"settings_dir":    "",
		"db_url":          "",
	}
	// det.port <- DET_PORT, det.data_dir <- DET_DATA_DIR, ...
	for key, value := range defaults {
		v.SetDefault("det."+key, value)
		if err := v.BindEnv("det."+key, "DET_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind environment: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Host:           v.GetString("det.host"),
		Port:           v.GetInt("det.port"),
		RequestTimeout: v.GetDuration("det.request_timeout"),
		DataDir:        v.GetString("det.data_dir"),
		DefaultEvent:   v.GetString("det.default_event"),
		MetricsAddr:    v.GetString("det.metrics_addr"),
		CacheSize:      v.GetInt("det.cache_size"),
		SettingsDir:    v.GetString("det.settings_dir"),
		DBURL:          v.GetString("det.db_url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive sizes.
func validateConfig(cfg *ServiceConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", cfg.CacheSize)
	}
	if strings.TrimSpace(cfg.DefaultEvent) == "" {
		return fmt.Errorf("default_event must not be empty")
	}
	return nil
}

// validateNoSecretsInConfig keeps database passwords out of config files.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if !v.InConfig("det.db_url") {
		return nil
	}
	u, err := url.Parse(v.GetString("det.db_url"))
	if err != nil {
		return fmt.Errorf("invalid db_url in config file: %w", err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database passwords not allowed in config files (use %s environment variable)", DBURLEnv)
	}
	return nil
}
