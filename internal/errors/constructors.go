package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *MapExportError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithKind(KindConfigNotFound).
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *MapExportError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Generation errors

func StageFailure(stage string, cause error) *MapExportError {
	return Wrap(cause, CategoryStage, SeverityFatal, "stage failed").
		WithKind(KindStageFailure).
		WithContext("stage", stage)
}

func UnsupportedOperation(operation string) *MapExportError {
	return New(CategoryInternal, SeverityError, "unsupported operation").
		WithKind(KindUnsupportedOperation).
		WithContext("operation", operation)
}

// Server errors

func ServerAddressInUse(addr string, cause error) *MapExportError {
	return Wrap(cause, CategoryServer, SeverityError, "address already in use").
		WithKind(KindAddressInUse).
		WithContext("addr", addr)
}

func ServerBindFailure(addr string, cause error) *MapExportError {
	return Wrap(cause, CategoryServer, SeverityError, "failed to bind listener").
		WithKind(KindBindFailure).
		WithContext("addr", addr)
}

func NoRegions() *MapExportError {
	return New(CategoryValidation, SeverityWarning, "no regions ready yet").
		WithKind(KindNoRegions)
}

// Export errors

func ExportPermissionDenied(destination string, cause error) *MapExportError {
	return Wrap(cause, CategoryExport, SeverityError, "destination not writable").
		WithKind(KindPermissionDenied).
		WithContext("destination", destination)
}

func ExportInvalidDestination(destination, reason string) *MapExportError {
	return New(CategoryExport, SeverityError, "invalid export destination").
		WithKind(KindInvalidDestination).
		WithContext("destination", destination).
		WithContext("reason", reason)
}

func ExportIOFailure(destination string, cause error) *MapExportError {
	return Wrap(cause, CategoryExport, SeverityError, "export write failed").
		WithKind(KindIOFailure).
		WithContext("destination", destination)
}

func CooldownActive() *MapExportError {
	return New(CategoryValidation, SeverityInfo, "export cooling down").
		WithKind(KindCooldownActive)
}

// Internal errors

func InternalError(message string, cause error) *MapExportError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
