// Package config loads the YAML configuration of a mapexporter session.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
)

// Config represents the application configuration
type Config struct {
	Version    string           `yaml:"version"`
	Source     SourceConfig     `yaml:"source"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
	Messages   MessagesConfig   `yaml:"messages"`
}

// SourceConfig locates the region description files fed to generation.
type SourceConfig struct {
	Directory string `yaml:"directory"`
	Pattern   string `yaml:"pattern,omitempty"` // glob relative to Directory
}

// GenerationConfig controls how generation work is sliced across host ticks.
type GenerationConfig struct {
	TickInterval    time.Duration      `yaml:"tick_interval"`
	StepBudget      time.Duration      `yaml:"step_budget"`             // wall-clock budget per advance
	RoomsPerAdvance int                `yaml:"rooms_per_advance"`       // layout chunk size
	StageWeights    map[string]float64 `yaml:"stage_weights,omitempty"` // keyed by stage id (load, layout, publish)
}

// ServerConfig configures the loopback artifact server.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	LiveReload     bool   `yaml:"live_reload"`
	Metrics        bool   `yaml:"metrics"`
}

// ExportConfig configures export jobs.
type ExportConfig struct {
	Directory   string        `yaml:"directory"`
	Name        string        `yaml:"name"`
	Kind        string        `yaml:"kind"` // static|server
	Cooldown    time.Duration `yaml:"cooldown"`
	Concurrency int           `yaml:"concurrency"`
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MessagesConfig configures persistence and forwarding of status messages.
type MessagesConfig struct {
	StorePath   string `yaml:"store_path,omitempty"` // sqlite file; empty disables persistence
	NATSURL     string `yaml:"nats_url,omitempty"`   // empty disables forwarding
	NATSSubject string `yaml:"nats_subject,omitempty"`
	Buffer      int    `yaml:"buffer"` // undisplayed messages kept by the host
}

// Export kinds accepted in configuration.
const (
	ExportKindStatic = "static"
	ExportKindServer = "server"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	return cfg
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, merrors.ConfigNotFound(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault loads configPath when it exists and falls back to Default otherwise.
func LoadOrDefault(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if errors.Is(err, merrors.ErrConfigNotFound) {
		slog.Info("Configuration file not found, using defaults", "path", configPath)
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes YAML (after environment expansion), applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Source.Directory = "./regions"
	example.Generation.StageWeights = map[string]float64{"load": 1, "layout": 3, "publish": 2}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// loadEnvFile loads environment variables from the first readable .env file.
// Existing process environment variables are not overwritten.
func loadEnvFile() error {
	for _, envPath := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envPath); err == nil {
			slog.Debug("Loaded environment variables", "path", envPath)
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}
