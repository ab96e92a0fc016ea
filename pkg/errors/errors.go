package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidInterval    = "INVALID_INTERVAL"
	CodeInvalidRate        = "INVALID_RATE"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeContentTooLong     = "CONTENT_TOO_LONG"
	CodeEmptyContent       = "EMPTY_CONTENT"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeUnsupportedContent = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{
		"resource": resource,
		"id":       id,
	})
}

func Validation(message string, details map[string]any) *AppError {
	return New(CodeValidation, message, http.StatusUnprocessableEntity).WithDetails(details)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

// InvalidInterval reports a time range whose end does not come after its start.
func InvalidInterval(message string) *AppError {
	return New(CodeInvalidInterval, message, http.StatusBadRequest)
}

func InvalidRate(message string) *AppError {
	return New(CodeInvalidRate, message, http.StatusBadRequest)
}

// InvalidTransition reports a lifecycle move that is not allowed from the
// current state. from and to end up in the details for the client.
func InvalidTransition(action, from string) *AppError {
	return New(CodeInvalidTransition,
		fmt.Sprintf("cannot %s a booking in status %s", action, from),
		http.StatusConflict,
	).WithDetails(map[string]any{"action": action, "from": from})
}

// TransitionTooEarly reports a lifecycle move that is allowed from the current
// status but not until notBefore.
func TransitionTooEarly(action string, notBefore time.Time) *AppError {
	return New(CodeInvalidTransition,
		fmt.Sprintf("cannot %s a booking before %s", action, notBefore.UTC().Format(time.RFC3339)),
		http.StatusConflict,
	).WithDetails(map[string]any{"action": action, "not_before": notBefore.UTC()})
}

func ContentTooLong(max int) *AppError {
	return New(CodeContentTooLong,
		fmt.Sprintf("message content exceeds %d characters", max),
		http.StatusBadRequest,
	).WithDetails(map[string]any{"max": max})
}

func EmptyContent() *AppError {
	return New(CodeEmptyContent, "message content is empty", http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

func Internal(message string, err error) *AppError {
	return Wrap(err, CodeInternal, message, http.StatusInternalServerError)
}

func Timeout(message string) *AppError {
	return New(CodeTimeout, message, http.StatusGatewayTimeout)
}

// Unavailable marks a failure of a backing store or broker. The cause is kept
// for logs but never serialized.
func Unavailable(service string, err error) *AppError {
	return Wrap(err, CodeUnavailable,
		fmt.Sprintf("%s is temporarily unavailable", service),
		http.StatusServiceUnavailable,
	)
}

func TooManyRequests(message string) *AppError {
	return New(CodeRateLimitExceeded, message, http.StatusTooManyRequests)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func HasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
