// Package config loads the transaction manager's on-disk YAML
// configuration with gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/txmgr/pkg/log"
	"gopkg.in/yaml.v3"
)

// Config is the top-level on-disk configuration for a txmgrd instance.
type Config struct {
	// SysDir holds the status file and log segments.
	SysDir string `yaml:"sysDir"`

	// MaxLogSize is the rotation threshold in bytes.
	MaxLogSize int64 `yaml:"maxLogSize"`

	// ObjectStoreDataDir is where bbolt-backed object stores keep their
	// underlying database files.
	ObjectStoreDataDir string `yaml:"objectStoreDataDir"`

	// ClientPoolSize is the number of system Client workers available to
	// run validate/rectify/distribute triggers concurrently.
	ClientPoolSize int `yaml:"clientPoolSize"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig mirrors pkg/log.Config in YAML-serializable form.
type LoggingConfig struct {
	Level      log.Level `yaml:"level"`
	JSONOutput bool      `yaml:"jsonOutput"`
}

// Default returns a Config suitable for local development: a 4 MiB rotation
// threshold and four client workers.
func Default(sysDir string) Config {
	return Config{
		SysDir:             sysDir,
		MaxLogSize:         4 << 20,
		ObjectStoreDataDir: sysDir,
		ClientPoolSize:     4,
		Logging: LoggingConfig{
			Level:      log.InfoLevel,
			JSONOutput: false,
		},
	}
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.MaxLogSize <= 0 {
		return Config{}, fmt.Errorf("config: maxLogSize must be positive, got %d", cfg.MaxLogSize)
	}
	if cfg.SysDir == "" {
		return Config{}, fmt.Errorf("config: sysDir is required")
	}
	if cfg.ClientPoolSize <= 0 {
		cfg.ClientPoolSize = 1
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
