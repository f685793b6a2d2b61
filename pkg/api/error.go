package api

import (
	"context"
	"errors"
	"net/http"

	"mercator-hq/tabula/pkg/decision/engine"
	"mercator-hq/tabula/pkg/decision/manager"
	"mercator-hq/tabula/pkg/decision/service"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeNotFound indicates a resource was not found (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeServiceUnavailable indicates temporary unavailability (503).
	ErrorTypeServiceUnavailable = "service_unavailable"

	// ErrorTypeTimeout indicates the request deadline passed (504).
	ErrorTypeTimeout = "timeout"
)

// Error code constants.
const (
	CodeMissingField    = "missing_field"
	CodeInvalidJSON     = "invalid_json"
	CodeTableNotFound   = "table_not_found"
	CodeCompileFailed   = "compile_failed"
	CodeBatchTooLarge   = "batch_too_large"
	CodeRequestTooLarge = "request_too_large"
	CodeUnavailable     = "unavailable"
	CodeDeadline        = "deadline_exceeded"
	CodeInternalError   = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewNotFoundError creates an error response for an unknown table (404).
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, "table", CodeTableNotFound)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// FromError maps an evaluation error to an HTTP status and response body.
func FromError(err error) (int, *ErrorResponse) {
	var compileErr *service.CompileError

	switch {
	case errors.Is(err, manager.ErrTableNotFound):
		return http.StatusNotFound, NewNotFoundError(err.Error())
	case errors.Is(err, service.ErrMissingTable):
		return http.StatusBadRequest, NewInvalidRequestError(err.Error(), "table", CodeMissingField)
	case errors.Is(err, service.ErrNoRecords):
		return http.StatusBadRequest, NewInvalidRequestError(err.Error(), "records", CodeMissingField)
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusBadRequest, NewInvalidRequestError(err.Error(), "records", CodeBatchTooLarge)
	case errors.As(err, &compileErr):
		return http.StatusBadRequest, NewInvalidRequestError(err.Error(), "schema", CodeCompileFailed)
	case errors.Is(err, manager.ErrRegistryClosed), errors.Is(err, engine.ErrTableReleased):
		return http.StatusServiceUnavailable, NewErrorResponse(err.Error(), ErrorTypeServiceUnavailable, "", CodeUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewErrorResponse("evaluation timed out", ErrorTypeTimeout, "", CodeDeadline)
	default:
		return http.StatusInternalServerError, NewServerError("An internal error occurred.")
	}
}
