// Package errors provides the standardized error taxonomy used by the contact sync pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeTransport covers network and HTTP failures talking to either external service.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"
	// ErrCodeValidation covers required record fields that are missing or unusable.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeUpstreamRejection covers an external service answering with an error status.
	ErrCodeUpstreamRejection ErrorCode = "UPSTREAM_REJECTION"
	// ErrCodeConfiguration covers a client that cannot be used because settings are missing.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Service names used in error details and log fields.
const (
	ServiceRecords  = "records"
	ServicePayments = "payments"
	ServiceBroker   = "broker"
	ServiceWorkflow = "zeebe"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	Service    string    `json:"service,omitempty"`
	Step       string    `json:"step,omitempty"`
	RecordID   string    `json:"recordId,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithContext returns a copy of the error annotated with the pipeline step and record.
func (e *StandardError) WithContext(step, recordID string) *StandardError {
	cp := *e
	cp.Step = step
	cp.RecordID = recordID
	return &cp
}

// LogFields returns the error as structured log fields.
func (e *StandardError) LogFields() map[string]interface{} {
	fields := map[string]interface{}{
		"errorCode":     string(e.Code),
		"errorCategory": GetErrorCategory(e.Code),
		"message":       e.Message,
	}
	if e.Details != "" {
		fields["details"] = e.Details
	}
	if e.Service != "" {
		fields["service"] = e.Service
	}
	if e.Step != "" {
		fields["step"] = e.Step
	}
	if e.RecordID != "" {
		fields["recordId"] = e.RecordID
	}
	if e.StatusCode != 0 {
		fields["statusCode"] = e.StatusCode
	}
	return fields
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTransportError wraps a network-level failure talking to service.
func NewTransportError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   fmt.Sprintf("Request to %s service failed", service),
		Details:   err.Error(),
		Service:   service,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewValidationError reports a missing or malformed record field.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   fmt.Sprintf("Field '%s' is missing or invalid", field),
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamRejection reports an error status returned by service.
func NewUpstreamRejection(service string, statusCode int, details string) *StandardError {
	return &StandardError{
		Code:       ErrCodeUpstreamRejection,
		Message:    fmt.Sprintf("Request rejected by %s service", service),
		Details:    details,
		Service:    service,
		StatusCode: statusCode,
		Timestamp:  time.Now().UTC(),
	}
}

func NewConfigurationError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   fmt.Sprintf("%s client is not configured", service),
		Details:   details,
		Service:   service,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Inspection Helpers
// ==========================

// AsStandardError normalizes any error into a StandardError.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// CodeOf returns the error code carried by err, or an empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsStandardError(err).Code
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeTransport:
		return "NETWORK"
	case ErrCodeUpstreamRejection:
		return "UPSTREAM"
	case ErrCodeValidation:
		return "VALIDATION"
	case ErrCodeConfiguration:
		return "CONFIGURATION"
	default:
		return "OTHER"
	}
}
