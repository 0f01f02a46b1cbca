// Package config provides configuration management for detbuilder services.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DBURLEnv names the environment variable holding the database URL.
const DBURLEnv = "DET_DB_URL"

// ServiceConfig holds configuration for the DET service and CLI.
type ServiceConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	DataDir        string
	DefaultEvent   string
	MetricsAddr    string
	CacheSize      int
	SettingsDir    string
	DBURL          string
}

// DefaultServiceConfig returns configuration with default values.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Host:           "0.0.0.0",
		Port:           50051,
		RequestTimeout: 30 * time.Second,
		DataDir:        "./data",
		DefaultEvent:   "event_1_arm_1",
		MetricsAddr:    ":9464",
		CacheSize:      256,
	}
}

// Addr returns the gRPC listen address.
func (c *ServiceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseURL resolves the database URL: flag, then DET_DB_URL, then the
// config file, then a SQLite file under DataDir.
func (c *ServiceConfig) DatabaseURL(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(DBURLEnv); env != "" {
		return env
	}
	if c.DBURL != "" {
		return c.DBURL
	}
	abs, err := filepath.Abs(filepath.Join(c.DataDir, "detbuilder.db"))
	if err != nil {
		abs = filepath.Join(c.DataDir, "detbuilder.db")
	}
	return "sqlite://" + filepath.ToSlash(abs)
}
