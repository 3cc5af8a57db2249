package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Error codes raised by the chat orchestration pipeline
const (
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeTokenLimitExceeded = "TOKEN_LIMIT_EXCEEDED"
	CodeProviderHTTP       = "PROVIDER_HTTP_ERROR"
	CodeProviderParse      = "PROVIDER_PARSE_ERROR"
	CodeImageGeneration    = "IMAGE_GENERATION_ERROR"
	CodeRoomBusy           = "ROOM_BUSY"
)

// Sentinels for comparisons with Is
var (
	ErrConfiguration      = &AppError{Code: CodeConfiguration}
	ErrTokenLimitExceeded = &AppError{Code: CodeTokenLimitExceeded}
	ErrProviderHTTP       = &AppError{Code: CodeProviderHTTP}
	ErrProviderParse      = &AppError{Code: CodeProviderParse}
	ErrImageGeneration    = &AppError{Code: CodeImageGeneration}
	ErrRoomBusy           = &AppError{Code: CodeRoomBusy}
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Stack      string `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Stack:      string(debug.Stack()),
	}
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(code string, message string) *AppError {
	return NewError(http.StatusBadRequest, code, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(code string, message string) *AppError {
	return NewError(http.StatusNotFound, code, message)
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(code string, message string) *AppError {
	return NewError(http.StatusConflict, code, message)
}

// NewTooManyRequestsError creates a 429 Too Many Requests error
func NewTooManyRequestsError(code string, message string) *AppError {
	return NewError(http.StatusTooManyRequests, code, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// NewConfigurationError reports missing persona, provider, credentials or image settings
func NewConfigurationError(message string) *AppError {
	return NewError(http.StatusUnprocessableEntity, CodeConfiguration, message)
}

// NewTokenLimitExceededError reports that the context cannot be trimmed under the budget
func NewTokenLimitExceededError(tokens, limit int) *AppError {
	return NewError(http.StatusUnprocessableEntity, CodeTokenLimitExceeded,
		fmt.Sprintf("prompt needs %d tokens but the limit is %d", tokens, limit)).
		WithDetails(map[string]int{"tokens": tokens, "limit": limit})
}

// NewProviderHTTPError reports a non-2xx answer from an LLM provider.
// The provider status is kept in Details.
func NewProviderHTTPError(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	return NewError(http.StatusBadGateway, CodeProviderHTTP, message).
		WithDetails(map[string]int{"status": status})
}

// NewProviderParseError reports a 2xx provider answer without usable text
func NewProviderParseError(reason string) *AppError {
	return NewError(http.StatusBadGateway, CodeProviderParse, reason)
}

// NewImageGenerationError reports that the image collaborator produced nothing usable
func NewImageGenerationError(message string) *AppError {
	return NewError(http.StatusBadGateway, CodeImageGeneration, message)
}

// NewRoomBusyError reports that another orchestration is running in the room
func NewRoomBusyError(roomID string) *AppError {
	return NewConflictError(CodeRoomBusy, fmt.Sprintf("room %s is already responding", roomID))
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks whether err carries an AppError with the same code as target
func Is(err error, target *AppError) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Code == target.Code
}

// ProviderStatus returns the upstream HTTP status carried by a provider error
func ProviderStatus(err error) (int, bool) {
	appErr, ok := As(err)
	if !ok || appErr.Code != CodeProviderHTTP {
		return 0, false
	}
	details, ok := appErr.Details.(map[string]int)
	if !ok {
		return 0, false
	}
	status, ok := details["status"]
	return status, ok
}
