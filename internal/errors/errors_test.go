package errors

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestMapExportError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *MapExportError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
		{
			name:     "bare sentinel",
			err:      ErrPermissionDenied,
			expected: "permission_denied",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestMapExportError_WithContext(t *testing.T) {
	err := New(CategoryExport, SeverityError, "write failed").
		WithContext("destination", "/tmp/out").
		WithContext("kind", "static")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}
	if err.Context["destination"] != "/tmp/out" {
		t.Errorf("Context[destination] = %v, want /tmp/out", err.Context["destination"])
	}
	if err.Context["kind"] != "static" {
		t.Errorf("Context[kind] = %v, want static", err.Context["kind"])
	}
}

func TestSentinelMatching(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		name     string
		err      error
		sentinel error
		expected bool
	}{
		{"stage failure", StageFailure("render", cause), ErrStageFailure, true},
		{"wrapped stage failure", fmt.Errorf("tick: %w", StageFailure("render", cause)), ErrStageFailure, true},
		{"address in use", ServerAddressInUse("127.0.0.1:8000", cause), ErrAddressInUse, true},
		{"bind failure is not address in use", ServerBindFailure("127.0.0.1:8000", cause), ErrAddressInUse, false},
		{"permission denied", ExportPermissionDenied("/ro", cause), ErrPermissionDenied, true},
		{"invalid destination", ExportInvalidDestination("", "empty"), ErrInvalidDestination, true},
		{"io failure is not permission", ExportIOFailure("/x", cause), ErrPermissionDenied, false},
		{"standard error", cause, ErrIOFailure, false},
		{"unsupported", UnsupportedOperation("reset"), ErrUnsupportedOperation, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := stdErrors.Is(test.err, test.sentinel); got != test.expected {
				t.Errorf("errors.Is() = %v, want %v", got, test.expected)
			}
		})
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	stageErr := StageFailure("load", fmt.Errorf("bad yaml"))
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match stage category", configErr, CategoryStage, false},
		{"stage error matches stage category", stageErr, CategoryStage, true},
		{"wrapped stage error matches", fmt.Errorf("x: %w", stageErr), CategoryStage, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsCategory(test.err, test.category)
			if result != test.expected {
				t.Errorf("IsCategory() = %v, want %v", result, test.expected)
			}
		})
	}
}

func TestGetCategoryAndKind(t *testing.T) {
	if got := GetCategory(fmt.Errorf("plain")); got != CategoryInternal {
		t.Errorf("GetCategory(plain) = %v, want %v", got, CategoryInternal)
	}
	if got := GetKind(ExportIOFailure("/x", nil)); got != KindIOFailure {
		t.Errorf("GetKind() = %v, want %v", got, KindIOFailure)
	}
	if got := GetKind(fmt.Errorf("plain")); got != "" {
		t.Errorf("GetKind(plain) = %v, want empty", got)
	}
}

func TestConvenienceFunctions(t *testing.T) {
	t.Run("StageFailure", func(t *testing.T) {
		cause := fmt.Errorf("parse")
		err := StageFailure("Loading region sources", cause)
		if err.Category != CategoryStage {
			t.Errorf("Category = %v, want %v", err.Category, CategoryStage)
		}
		if err.Context["stage"] != "Loading region sources" {
			t.Errorf("Context[stage] = %v", err.Context["stage"])
		}
		if !stdErrors.Is(err, cause) {
			t.Errorf("Cause should match wrapped cause: %v", cause)
		}
	})

	t.Run("ValidationFailed", func(t *testing.T) {
		err := ValidationFailed("server.port", "out of range")
		if err.Category != CategoryValidation {
			t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
		}
		if err.Context["field"] != "server.port" {
			t.Errorf("Context[field] = %v, want server.port", err.Context["field"])
		}
	})
}

func TestCLIErrorAdapter(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{fmt.Errorf("x"), 1},
		{ValidationFailed("a", "b"), 2},
		{ConfigNotFound("c.yaml"), 7},
		{ServerAddressInUse(":1", nil), 8},
		{ExportPermissionDenied("/ro", nil), 9},
		{StageFailure("s", nil), 11},
		{InternalError("x", nil), 10},
	}
	for _, c := range cases {
		if got := a.ExitCodeFor(c.err); got != c.code {
			t.Errorf("ExitCodeFor(%v) = %d, want %d", c.err, got, c.code)
		}
	}

	if got := a.FormatError(ValidationFailed("a", "b")); got != "validation failed" {
		t.Errorf("FormatError() = %q", got)
	}
	if got := a.FormatError(ExportIOFailure("/x", nil)); got != "export: export write failed" {
		t.Errorf("FormatError() = %q", got)
	}

	var buf bytes.Buffer
	exitCode := -1
	a.out = &buf
	a.exit = func(code int) { exitCode = code }
	a.HandleError(ExportPermissionDenied("/ro", nil))
	if exitCode != 9 {
		t.Errorf("exit code = %d, want 9", exitCode)
	}
	if buf.String() != "export: destination not writable\n" {
		t.Errorf("output = %q", buf.String())
	}
}
