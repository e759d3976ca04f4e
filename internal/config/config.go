// Package config loads and validates the application configuration from
// environment variables and prepares the on-disk layout the core needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Config holds all application configuration.
type Config struct {
	DataDir        string
	Port           string
	MetricsEnabled bool

	// Derived paths
	DatabasePath string
	ThumbnailDir string

	// Thumbnails are disabled when their directory cannot be prepared.
	ThumbnailsEnabled bool
}

// Load reads configuration from the environment, resolves paths and ensures
// the data directory exists and is writable.
func Load() (*Config, error) {
	applyLogLevel(getEnv("LOG_LEVEL", "info"))

	dataDir := getEnv("DATA_DIR", "./data")
	port := getEnv("PORT", "8080")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	thumbnailsEnabled := getEnvBool("THUMBNAILS_ENABLED", true)

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:        dataDir,
		Port:           port,
		MetricsEnabled: metricsEnabled,
		DatabasePath:   filepath.Join(dataDir, "tagdex.db"),
		ThumbnailDir:   filepath.Join(dataDir, "Thumbnails"),
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data directory %s: %w", dataDir, err)
	}
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable: %w", err)
	}

	cfg.ThumbnailsEnabled = thumbnailsEnabled && setupOptionalDir(cfg.ThumbnailDir, "thumbnails")

	log.Infof("config: data=%s port=%s thumbnails=%v metrics=%v",
		cfg.DataDir, cfg.Port, cfg.ThumbnailsEnabled, cfg.MetricsEnabled)
	return cfg, nil
}

func applyLogLevel(level string) {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q, using info", level)
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func setupOptionalDir(path, name string) bool {
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.Warnf("failed to create %s directory, %s disabled: %v", name, name, err)
		return false
	}
	if err := testWriteAccess(path); err != nil {
		log.Warnf("%s directory is not writable, %s disabled: %v", name, name, err)
		return false
	}
	return true
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	return os.Remove(testFile)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warnf("invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
