// Package errors provides the gateway's error taxonomy and its HTTP mapping.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Caller can act on these: missing credential, malformed parameter.
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	ErrCodeMissingCredential  ErrorCode = "MISSING_CREDENTIAL"
	ErrCodeInvalidParameter   ErrorCode = "INVALID_PARAMETER"

	// Upstream call failed (network or non-2xx).
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	ErrCodeUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"

	// One sub-call of a composite failed; always escalated to fallback.
	ErrCodePartialAggregation ErrorCode = "PARTIAL_AGGREGATION_FAILURE"

	// A stored record failed to parse during filtering.
	ErrCodeMalformedRecord ErrorCode = "MALFORMED_RECORD"

	// Fatal at startup only.
	ErrCodeConfigurationFailure ErrorCode = "CONFIGURATION_FAILURE"

	ErrCodeQueryNotFound ErrorCode = "QUERY_NOT_FOUND"
	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error code to the status the gateway answers with.
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeMissingCredential:
		return http.StatusUnauthorized
	case ErrCodePreconditionFailed, ErrCodeInvalidParameter:
		return http.StatusBadRequest
	case ErrCodeQueryNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsPrecondition reports whether err is a caller-side precondition failure.
func IsPrecondition(err error) bool {
	var se *StandardError
	if !stderrors.As(err, &se) {
		return false
	}
	switch se.Code {
	case ErrCodePreconditionFailed, ErrCodeMissingCredential, ErrCodeInvalidParameter:
		return true
	}
	return false
}

// HasCode reports whether err is a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *StandardError
	return stderrors.As(err, &se) && se.Code == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMissingCredentialError is returned before any upstream call when the
// caller sent no Authorization header.
func NewMissingCredentialError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingCredential,
		Message:   "Authorization header is required",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidParameterError reports a malformed request parameter.
func NewInvalidParameterError(param, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidParameter,
		Message:   fmt.Sprintf("invalid parameter %s", param),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"parameter": param},
		Timestamp: time.Now().UTC(),
	}
}

// NewPreconditionFailedError reports a missing required input.
func NewPreconditionFailedError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodePreconditionFailed,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamFailureError wraps a failed upstream call.
func NewUpstreamFailureError(target string, statusCode int, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamFailure,
		Message:   "Upstream call failed",
		Details:   details,
		Retryable: statusCode == 0 || statusCode >= http.StatusInternalServerError,
		Metadata:  map[string]interface{}{"target": target, "statusCode": statusCode},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamTimeoutError wraps an upstream call that exceeded its deadline.
func NewUpstreamTimeoutError(target string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   "Upstream call timed out",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"target": target},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPartialAggregationError records which part of a composite failed.
func NewPartialAggregationError(query, part string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodePartialAggregation,
		Message:   "Composite query had a failing part",
		Details:   cause.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"query": query, "part": part},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewMalformedRecordError describes a record skipped by the filter engine.
func NewMalformedRecordError(recordID int64, field, value string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedRecord,
		Message:   "Record field could not be parsed",
		Details:   fmt.Sprintf("field %s: %q", field, value),
		Retryable: false,
		Metadata:  map[string]interface{}{"recordId": recordID, "field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationError is fatal; only returned during startup.
func NewConfigurationError(component string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationFailure,
		Message:   fmt.Sprintf("%s is misconfigured", component),
		Details:   cause.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewQueryNotFoundError is returned for logical queries the gateway does not
// know.
func NewQueryNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryNotFound,
		Message:   "Unknown query",
		Details:   fmt.Sprintf("query: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError is returned when a client exceeds its request budget.
func NewRateLimitedError(requestsPerSecond int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests",
		Details:   fmt.Sprintf("limit is %d requests per second", requestsPerSecond),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Normalize ensures we always have a StandardError
func Normalize(err error) *StandardError {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
