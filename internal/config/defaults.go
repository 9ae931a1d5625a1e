package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values referenced by the CLI help text and tests.
const (
	DefaultTickInterval    = 16 * time.Millisecond
	DefaultStepBudget      = 4 * time.Millisecond
	DefaultRoomsPerAdvance = 8
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8000
	DefaultMaxConnections  = 32
	DefaultExportName      = "mapexport"
	DefaultExportCooldown  = 2 * time.Second
	DefaultConcurrency     = 4
	DefaultMessageBuffer   = 256
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

func applyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		&sourceDefaultApplier{},
		&generationDefaultApplier{},
		&serverDefaultApplier{},
		&exportDefaultApplier{},
		&loggingDefaultApplier{},
		&messagesDefaultApplier{},
	}
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

type sourceDefaultApplier struct{}

func (sourceDefaultApplier) Domain() string { return "source" }

func (sourceDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Source.Directory == "" {
		cfg.Source.Directory = "./regions"
	}
	if cfg.Source.Pattern == "" {
		cfg.Source.Pattern = "*.yaml"
	}
	return nil
}

type generationDefaultApplier struct{}

func (generationDefaultApplier) Domain() string { return "generation" }

func (generationDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Generation.TickInterval == 0 {
		cfg.Generation.TickInterval = DefaultTickInterval
	}
	if cfg.Generation.StepBudget == 0 {
		cfg.Generation.StepBudget = DefaultStepBudget
	}
	if cfg.Generation.RoomsPerAdvance == 0 {
		cfg.Generation.RoomsPerAdvance = DefaultRoomsPerAdvance
	}
	return nil
}

type serverDefaultApplier struct{}

func (serverDefaultApplier) Domain() string { return "server" }

func (serverDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.MaxConnections == 0 {
		cfg.Server.MaxConnections = DefaultMaxConnections
	}
	return nil
}

type exportDefaultApplier struct{}

func (exportDefaultApplier) Domain() string { return "export" }

func (exportDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Export.Directory == "" {
		cfg.Export.Directory = defaultExportDir()
	}
	if cfg.Export.Name == "" {
		cfg.Export.Name = DefaultExportName
	}
	if cfg.Export.Kind == "" {
		cfg.Export.Kind = ExportKindServer
	}
	if cfg.Export.Cooldown == 0 {
		cfg.Export.Cooldown = DefaultExportCooldown
	}
	if cfg.Export.Concurrency == 0 {
		cfg.Export.Concurrency = DefaultConcurrency
	}
	return nil
}

// defaultExportDir prefers the desktop, then the home directory, then the working directory.
func defaultExportDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	desktop := filepath.Join(home, "Desktop")
	if st, err := os.Stat(desktop); err == nil && st.IsDir() {
		return desktop
	}
	return home
}

type loggingDefaultApplier struct{}

func (loggingDefaultApplier) Domain() string { return "logging" }

func (loggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return nil
}

type messagesDefaultApplier struct{}

func (messagesDefaultApplier) Domain() string { return "messages" }

func (messagesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Messages.Buffer == 0 {
		cfg.Messages.Buffer = DefaultMessageBuffer
	}
	return nil
}
