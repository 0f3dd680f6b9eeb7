package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Audit    AuditConfig    `toml:"audit"`
	Workflow WorkflowConfig `toml:"workflow"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // debug | info | warn | error
}

type AuditConfig struct {
	// Limit caps how many trail entries a lookup returns. Zero means
	// unlimited.
	Limit int `toml:"limit"`
}

type WorkflowConfig struct {
	// DefaultEstimatedEffort is applied, in hours, to new tasks created
	// without an estimate.
	DefaultEstimatedEffort float64 `toml:"default_estimated_effort"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Audit: AuditConfig{
			Limit: 50,
		},
		Workflow: WorkflowConfig{
			DefaultEstimatedEffort: 0,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	level := strings.TrimSpace(strings.ToLower(c.Logging.Level))
	if level != "" && !slices.Contains([]string{"debug", "info", "warn", "error"}, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.Audit.Limit < 0 {
		return errors.New("audit.limit must be >= 0")
	}
	if c.Workflow.DefaultEstimatedEffort < 0 {
		return errors.New("workflow.default_estimated_effort must be >= 0")
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
