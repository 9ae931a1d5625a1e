package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
		exit:    os.Exit,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		return a.exitCodeFromMapExport(mee)
	}

	return 1
}

// exitCodeFromMapExport maps MapExportError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromMapExport(err *MapExportError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryServer:
		return 8 // Listener error
	case CategoryExport, CategoryFileSystem:
		return 9 // Export error
	case CategoryStage:
		return 11 // Generation error
	case CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		return a.formatMapExport(mee)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatMapExport formats a MapExportError for display.
func (a *CLIErrorAdapter) formatMapExport(err *MapExportError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryValidation:
		return err.Message
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	_, _ = fmt.Fprintf(a.out, "%s\n", message)
	a.exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		return mee.Category == CategoryInternal ||
			mee.Category == CategoryRuntime ||
			mee.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	var mee *MapExportError
	if stdErrors.As(err, &mee) {
		level := slogLevelFromSeverity(mee.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(mee.Category)),
		}
		if mee.Kind != "" {
			attrs = append(attrs, slog.String("kind", string(mee.Kind)))
		}
		if mee.Cause != nil {
			attrs = append(attrs, slog.String("cause", mee.Cause.Error()))
		}
		a.logger.LogAttrs(context.Background(), level, mee.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts MapExportError severity to slog level.
func slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
