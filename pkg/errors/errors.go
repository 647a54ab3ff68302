package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingIdentifier = NewError("MISSING_IDENTIFIER", "lead identifier not found in payload", http.StatusBadRequest)
	ErrUpstreamFailure   = NewError("UPSTREAM_FAILURE", "crm lookup failed", http.StatusBadGateway)
	ErrMalformedResponse = NewError("MALFORMED_RESPONSE", "crm response has unexpected shape", http.StatusBadGateway)
	ErrDownstreamFailure = NewError("DOWNSTREAM_FAILURE", "downstream webhook call failed", http.StatusBadGateway)
	ErrValidation        = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal          = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
)

// Error is the structured error carried across the pipeline boundary.
// Status is the HTTP status the error maps to at the edge.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	// Clone so chained calls never mutate the shared sentinel's map.
	err.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		err.Details[k] = v
	}
	err.Details[key] = value
	return &err
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	err := *e
	err.Details = details
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func IsCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsMissingIdentifier(err error) bool {
	return IsCode(err, ErrMissingIdentifier.Code)
}

func IsUpstreamFailure(err error) bool {
	return IsCode(err, ErrUpstreamFailure.Code)
}

func IsMalformedResponse(err error) bool {
	return IsCode(err, ErrMalformedResponse.Code)
}

func IsDownstreamFailure(err error) bool {
	return IsCode(err, ErrDownstreamFailure.Code)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"ok":         false,
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}

// Truncate caps diagnostic payload samples carried in error details.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
