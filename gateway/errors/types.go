package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeValidation indicates input validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates a missing ciphertext, request or record
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNetwork indicates network-related errors
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeLedger indicates the ledger rejected a transition
	ErrCodeLedger ErrorCode = "LEDGER"

	// ErrCodeFHE indicates coprocessor errors
	ErrCodeFHE ErrorCode = "FHE"

	// ErrCodeKMS indicates signing or proof verification errors
	ErrCodeKMS ErrorCode = "KMS"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeTimeout indicates timeout errors
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	// SeverityCritical indicates critical errors that require immediate attention
	SeverityCritical Severity = "CRITICAL"

	// SeverityHigh indicates high priority errors
	SeverityHigh Severity = "HIGH"

	// SeverityMedium indicates medium priority errors
	SeverityMedium Severity = "MEDIUM"

	// SeverityLow indicates low priority errors
	SeverityLow Severity = "LOW"

	// SeverityInfo indicates informational errors
	SeverityInfo Severity = "INFO"
)

// GatewayError is an error raised by a gateway component
type GatewayError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Severity  Severity               `json:"severity"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(code ErrorCode, component, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:      code,
		Message:   message,
		Component: component,
		Severity:  determineSeverity(code),
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Component != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Code, e.Severity, msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, msg)
}

// Unwrap returns the underlying cause
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *GatewayError) WithContext(key string, value interface{}) *GatewayError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the default severity
func (e *GatewayError) WithSeverity(severity Severity) *GatewayError {
	e.Severity = severity
	return e
}

// IsRetryable returns true if the error is retryable
func (e *GatewayError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeTimeout:
		return true
	case ErrCodeDatabase:
		// Database errors might be retryable depending on the specific error
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

// determineSeverity determines the default severity based on error code
func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal:
		return SeverityCritical
	case ErrCodeDatabase, ErrCodeKMS:
		return SeverityHigh
	case ErrCodeLedger, ErrCodeFHE, ErrCodeNetwork, ErrCodeTimeout:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeConfig, ErrCodeNotFound:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Common error constructors

// NewValidationError creates a validation error
func NewValidationError(component, message string) *GatewayError {
	return NewGatewayError(ErrCodeValidation, component, message, nil)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(component, message string) *GatewayError {
	return NewGatewayError(ErrCodeNotFound, component, message, nil)
}

// NewDatabaseError creates a database error
func NewDatabaseError(component, message string, cause error) *GatewayError {
	return NewGatewayError(ErrCodeDatabase, component, message, cause)
}

// NewLedgerError creates an error for a transition the ledger refused
func NewLedgerError(component, message string, cause error) *GatewayError {
	return NewGatewayError(ErrCodeLedger, component, message, cause)
}

// NewFHEError creates a coprocessor error
func NewFHEError(component, message string, cause error) *GatewayError {
	return NewGatewayError(ErrCodeFHE, component, message, cause)
}

// NewKMSError creates a signing or verification error
func NewKMSError(component, message string, cause error) *GatewayError {
	return NewGatewayError(ErrCodeKMS, component, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(component, message string) *GatewayError {
	return NewGatewayError(ErrCodeConfig, component, message, nil)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(component, message string) *GatewayError {
	return NewGatewayError(ErrCodeTimeout, component, message, nil)
}

// NewInternalError creates an internal error
func NewInternalError(component, message string, cause error) *GatewayError {
	return NewGatewayError(ErrCodeInternal, component, message, cause)
}
