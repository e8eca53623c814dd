package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Connection errors (1xxx)
	ErrCodeConnectionFailed     ErrorCode = "MLPE1001"
	ErrCodeConnectionTimeout    ErrorCode = "MLPE1002"
	ErrCodeAuthenticationFailed ErrorCode = "MLPE1003"

	// Configuration errors (2xxx)
	ErrCodeConfigNotFound   ErrorCode = "MLPE2001"
	ErrCodeConfigInvalid    ErrorCode = "MLPE2002"
	ErrCodeConfigMissing    ErrorCode = "MLPE2003"
	ErrCodeUnknownBackend   ErrorCode = "MLPE2004"
	ErrCodeSecretResolution ErrorCode = "MLPE2005"

	// Blob errors (3xxx)
	ErrCodeBlobNotFound    ErrorCode = "MLPE3001"
	ErrCodeBlobAccess      ErrorCode = "MLPE3002"
	ErrCodeBlobUnsupported ErrorCode = "MLPE3003"

	// SQL execution errors (4xxx)
	ErrCodeSQLSyntax         ErrorCode = "MLPE4001"
	ErrCodeSQLPermission     ErrorCode = "MLPE4002"
	ErrCodeSQLTimeout        ErrorCode = "MLPE4003"
	ErrCodeSQLObjectNotFound ErrorCode = "MLPE4005"
	ErrCodeSQLExecution      ErrorCode = "MLPE4006"
	ErrCodeLoadFailed        ErrorCode = "MLPE4007"
	ErrCodeNoResults         ErrorCode = "MLPE4008"

	// File system errors (5xxx)
	ErrCodeFileNotFound  ErrorCode = "MLPE5001"
	ErrCodeFileOperation ErrorCode = "MLPE5005"

	// Validation errors (6xxx)
	ErrCodeValidationFailed ErrorCode = "MLPE6001"
	ErrCodeInvalidInput     ErrorCode = "MLPE6002"
	ErrCodeRequiredField    ErrorCode = "MLPE6003"
	ErrCodeInvalidURI       ErrorCode = "MLPE6005"

	// System errors (9xxx)
	ErrCodeInternal      ErrorCode = "MLPE9001"
	ErrCodeTimeout       ErrorCode = "MLPE9002"
	ErrCodeResultParsing ErrorCode = "MLPE9005"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // Rerunning cannot succeed without operator action
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError. A nil error yields nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	var inner *AppError
	if errors.As(err, &inner) {
		for k, v := range inner.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// ConnectionError creates a connection-related error
func ConnectionError(message string, cause error) *AppError {
	if cause == nil {
		cause = errors.New(message)
	}
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check your network connection",
			"Verify the warehouse endpoint is reachable",
			"Check the credentials configured for the backend",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'mlprep setup' to reconfigure",
		)
}

// SQLError creates an SQL execution error. The code is refined from the
// driver message so permission, timeout and missing-object failures are
// distinguishable by callers.
func SQLError(message string, query string, cause error) *AppError {
	if cause == nil {
		return nil
	}
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	lower := strings.ToLower(cause.Error())
	switch {
	case strings.Contains(lower, "permission") || strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "insufficient privileges"):
		err.Code = ErrCodeSQLPermission
		_ = err.WithSeverity(SeverityCritical).WithSuggestions(
			"Check the role or user privileges on the target dataset",
			"Contact your warehouse administrator",
		)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		err.Code = ErrCodeSQLTimeout
		_ = err.WithSuggestions("Increase warehouse.timeout in the configuration")
	case strings.Contains(lower, "syntax error"):
		err.Code = ErrCodeSQLSyntax
	case strings.Contains(lower, "does not exist") || strings.Contains(lower, "not found"):
		err.Code = ErrCodeSQLObjectNotFound
		_ = err.WithSuggestions("Verify the project, dataset and table names")
	}

	return err
}

// ValidationError creates a validation error
func ValidationError(field string, value interface{}, reason string) *AppError {
	return New(ErrCodeValidationFailed, fmt.Sprintf("Validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("value", value)
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
