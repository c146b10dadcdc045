// Package config provides configuration for slidebank.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-project settings file.
const FileName = "slidebank.yaml"

// Config holds runtime settings.
type Config struct {
	// Workers is the conversion worker pool size.
	Workers int
	// ThumbHeight is the fixed thumbnail height in pixels.
	ThumbHeight int
	// CacheBudget is the asset cache budget in decoded bytes.
	CacheBudget int64
	// Debug enables verbose logging.
	Debug bool
}

// FromEnv creates a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		Workers:     getEnvInt("SLIDEBANK_WORKERS", 4),
		ThumbHeight: getEnvInt("SLIDEBANK_THUMB_HEIGHT", 160),
		CacheBudget: getEnvInt64("SLIDEBANK_CACHE_BUDGET", 64*1024*1024), // 64MB default
		Debug:       getEnvBool("SLIDEBANK_DEBUG", false),
	}
}

// fileConfig mirrors the YAML settings file; nil fields keep env defaults.
type fileConfig struct {
	Workers       *int   `yaml:"workers"`
	ThumbHeight   *int   `yaml:"thumb_height"`
	CacheBudgetMB *int64 `yaml:"cache_budget_mb"`
	Debug         *bool  `yaml:"debug"`
}

// Load builds a Config from the environment, overlaid with the project's
// slidebank.yaml when present.
func Load(projectRoot string) (*Config, error) {
	cfg := FromEnv()

	path := filepath.Join(projectRoot, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.ThumbHeight != nil {
		cfg.ThumbHeight = *fc.ThumbHeight
	}
	if fc.CacheBudgetMB != nil {
		cfg.CacheBudget = *fc.CacheBudgetMB * 1024 * 1024
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	return cfg, nil
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
