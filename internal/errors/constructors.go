package errors

// Sentinels for errors.Is. They only carry a code; never mutate them.
var (
	ErrStorage           = &StreakError{Category: CategoryStorage, Code: CodeStorage}
	ErrDocumentMissing   = &StreakError{Category: CategoryStorage, Code: CodeDocumentMissing}
	ErrDuplicateActivity = &StreakError{Category: CategoryValidation, Code: CodeDuplicateActivity}
	ErrActivityNotFound  = &StreakError{Category: CategoryValidation, Code: CodeActivityNotFound}
	ErrEmptyName         = &StreakError{Category: CategoryValidation, Code: CodeEmptyName}
	ErrRollover          = &StreakError{Category: CategoryRollover, Code: CodeRollover}
	ErrConfig            = &StreakError{Category: CategoryConfig, Code: CodeConfig}
)

// Storage errors

func StorageFailure(operation string, cause error) *StreakError {
	return Wrap(cause, CategoryStorage, SeverityError, "storage operation failed").
		WithCode(CodeStorage).
		WithContext("operation", operation)
}

func DocumentMissing(location string) *StreakError {
	return New(CategoryStorage, SeverityWarning, "streak document does not exist").
		WithCode(CodeDocumentMissing).
		WithContext("location", location)
}

func MalformedDocument(reason string, cause error) *StreakError {
	return Wrap(cause, CategoryStorage, SeverityError, "malformed streak document").
		WithCode(CodeStorage).
		WithContext("reason", reason)
}

// Activity validation errors

func DuplicateActivity(name string) *StreakError {
	return New(CategoryValidation, SeverityWarning, "activity already exists").
		WithCode(CodeDuplicateActivity).
		WithContext("activity", name)
}

func ActivityNotFound(name string) *StreakError {
	return New(CategoryValidation, SeverityWarning, "activity not found").
		WithCode(CodeActivityNotFound).
		WithContext("activity", name)
}

func EmptyName() *StreakError {
	return New(CategoryValidation, SeverityWarning, "activity name must not be empty").
		WithCode(CodeEmptyName)
}

// Rollover errors

func RolloverFailed(runID string, cause error) *StreakError {
	return Wrap(cause, CategoryRollover, SeverityError, "rollover failed").
		WithCode(CodeRollover).
		WithContext("run_id", runID)
}

// Config errors

func ConfigNotFound(path string) *StreakError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found: "+path).
		WithCode(CodeConfig).
		WithContext("path", path)
}

func ConfigInvalid(field, reason string) *StreakError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration: "+field+": "+reason).
		WithCode(CodeConfig).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Internal errors

func InternalError(message string, cause error) *StreakError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
