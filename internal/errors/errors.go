package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTransport   ErrorType = "TRANSPORT"
	ErrUpstream    ErrorType = "UPSTREAM"
	ErrParse       ErrorType = "PARSE"
	ErrPersistence ErrorType = "PERSISTENCE"
	ErrConfig      ErrorType = "CONFIG"
	ErrGeocode     ErrorType = "GEOCODE"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func isType(err error, errType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errType
	}
	return false
}

// IsTransport checks if the error is a transport error
func IsTransport(err error) bool { return isType(err, ErrTransport) }

// IsUpstream checks if the error is an upstream API error
func IsUpstream(err error) bool { return isType(err, ErrUpstream) }

// IsParse checks if the error is a parse error
func IsParse(err error) bool { return isType(err, ErrParse) }

// IsPersistence checks if the error is a persistence error
func IsPersistence(err error) bool { return isType(err, ErrPersistence) }

// IsConfig checks if the error is a configuration error
func IsConfig(err error) bool { return isType(err, ErrConfig) }

// IsGeocode checks if the error is a geocode error
func IsGeocode(err error) bool { return isType(err, ErrGeocode) }

// NewTransportError creates a new transport error
func NewTransportError(message string, err error) *AppError {
	return New(ErrTransport, message, err)
}

// NewUpstreamError creates a new upstream API error
func NewUpstreamError(message string, err error) *AppError {
	return New(ErrUpstream, message, err)
}

// NewParseError creates a new parse error
func NewParseError(message string, err error) *AppError {
	return New(ErrParse, message, err)
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(message string, err error) *AppError {
	return New(ErrPersistence, message, err)
}

// NewConfigError creates a new configuration error
func NewConfigError(message string, err error) *AppError {
	return New(ErrConfig, message, err)
}

// NewGeocodeError creates a new geocode error
func NewGeocodeError(message string, err error) *AppError {
	return New(ErrGeocode, message, err)
}

// ImportInProgressError represents an error when an import run is already in progress
type ImportInProgressError struct {
	StartedAt time.Time
}

func (e *ImportInProgressError) Error() string {
	return fmt.Sprintf("import already in progress since %s", e.StartedAt.Format(time.RFC3339))
}

// NewImportInProgressError creates a new ImportInProgressError
func NewImportInProgressError(startedAt time.Time) error {
	return &ImportInProgressError{StartedAt: startedAt}
}

// IsImportInProgress checks if the error is an import-in-progress error
func IsImportInProgress(err error) bool {
	_, ok := err.(*ImportInProgressError)
	return ok
}
