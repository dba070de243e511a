// Package config provides configuration for the tutoring service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hmkang/maieut/internal/llm"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Database
	DBPath string `yaml:"db_path"`

	// Model providers
	LLM llm.Config `yaml:"-"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load builds configuration in priority order: defaults, then the YAML
// file named by MAIEUT_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            8000,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}

	if path := os.Getenv("MAIEUT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = getEnvInt("MAIEUT_PORT", cfg.Port)
	cfg.DBPath = getEnv("MAIEUT_DB", cfg.DBPath)
	cfg.LogLevel = getEnv("MAIEUT_LOG_LEVEL", cfg.LogLevel)

	cfg.LLM = llm.ConfigFromEnv()

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
