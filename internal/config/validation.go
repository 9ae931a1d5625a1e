package config

import (
	"fmt"
	"net"
	"strings"

	merrors "git.home.luguber.info/inful/mapexporter/internal/errors"
)

// Stage ids accepted as stage weight keys.
var knownStageIDs = map[string]bool{"load": true, "layout": true, "publish": true}

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateSource(); err != nil {
		return err
	}
	if err := cv.validateGeneration(); err != nil {
		return err
	}
	if err := cv.validateServer(); err != nil {
		return err
	}
	if err := cv.validateExport(); err != nil {
		return err
	}
	return cv.validateLogging()
}

func (cv *configurationValidator) validateSource() error {
	if strings.TrimSpace(cv.config.Source.Directory) == "" {
		return merrors.ValidationFailed("source.directory", "must not be empty")
	}
	return nil
}

func (cv *configurationValidator) validateGeneration() error {
	g := cv.config.Generation
	if g.TickInterval <= 0 {
		return merrors.ValidationFailed("generation.tick_interval", "must be positive")
	}
	if g.StepBudget <= 0 {
		return merrors.ValidationFailed("generation.step_budget", "must be positive")
	}
	if g.StepBudget > g.TickInterval {
		return merrors.ValidationFailed("generation.step_budget", "must not exceed tick_interval")
	}
	if g.RoomsPerAdvance < 1 {
		return merrors.ValidationFailed("generation.rooms_per_advance", "must be at least 1")
	}
	sum := 0.0
	for id, w := range g.StageWeights {
		if !knownStageIDs[id] {
			return merrors.ValidationFailed("generation.stage_weights", fmt.Sprintf("unknown stage %q", id))
		}
		if w < 0 {
			return merrors.ValidationFailed("generation.stage_weights", fmt.Sprintf("negative weight for %q", id))
		}
		sum += w
	}
	if len(g.StageWeights) > 0 && sum == 0 {
		return merrors.ValidationFailed("generation.stage_weights", "weights must not all be zero")
	}
	return nil
}

func (cv *configurationValidator) validateServer() error {
	s := cv.config.Server
	ip := net.ParseIP(s.Host)
	if s.Host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return merrors.ValidationFailed("server.host", "must be a loopback address")
	}
	if s.Port < 1 || s.Port > 65535 {
		return merrors.ValidationFailed("server.port", "must be between 1 and 65535")
	}
	if s.MaxConnections < 1 {
		return merrors.ValidationFailed("server.max_connections", "must be at least 1")
	}
	return nil
}

func (cv *configurationValidator) validateExport() error {
	e := cv.config.Export
	switch e.Kind {
	case ExportKindStatic, ExportKindServer:
	default:
		return merrors.ValidationFailed("export.kind", fmt.Sprintf("unsupported value %q", e.Kind))
	}
	if e.Cooldown < 0 {
		return merrors.ValidationFailed("export.cooldown", "must not be negative")
	}
	if e.Concurrency < 1 {
		return merrors.ValidationFailed("export.concurrency", "must be at least 1")
	}
	return nil
}

func (cv *configurationValidator) validateLogging() error {
	switch strings.ToLower(cv.config.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return merrors.ValidationFailed("logging.level", fmt.Sprintf("unsupported value %q", cv.config.Logging.Level))
	}
	switch cv.config.Logging.Format {
	case "text", "json":
	default:
		return merrors.ValidationFailed("logging.format", fmt.Sprintf("unsupported value %q", cv.config.Logging.Format))
	}
	return nil
}
