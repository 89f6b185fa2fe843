package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrMessageNotFound indicates the queued message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrUnsupportedType indicates a channel type outside email, sms, file and socket
	ErrUnsupportedType = errors.New("not supported message type")

	// ErrInvalidMessage indicates a message without type or without any accepted destination
	ErrInvalidMessage = errors.New("message is not valid")

	// ErrSourceNotFound indicates a staged attachment source is missing on disk
	ErrSourceNotFound = errors.New("source file not found")

	// ErrTempDirNotWritable indicates the attachment root cannot be created or written
	ErrTempDirNotWritable = errors.New("temporary directory is not writable")

	// ErrHandlerNotFound indicates no handler is registered for a channel type
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrHandlerMisconfigured indicates handler initialization failed
	ErrHandlerMisconfigured = errors.New("handler misconfigured")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeUnsupportedType      = "UNSUPPORTED_TYPE"
	CodeInvalidMessage       = "INVALID_MESSAGE"
	CodeSourceNotFound       = "SOURCE_NOT_FOUND"
	CodeHandlerNotFound      = "HANDLER_NOT_FOUND"
	CodeHandlerMisconfigured = "HANDLER_MISCONFIGURED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// HandlerError carries the channel type whose handler could not be resolved.
type HandlerError struct {
	Err     error
	Type    string
	Message string
}

// Error implements the error interface
func (e *HandlerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s handler: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s handler: %v", e.Type, e.Err)
}

// Unwrap returns the underlying error
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// NewHandlerNotFoundError creates a HandlerError for an unregistered channel type
func NewHandlerNotFoundError(channelType string) *HandlerError {
	return &HandlerError{
		Err:     ErrHandlerNotFound,
		Type:    channelType,
		Message: "handler not found",
	}
}

// NewHandlerMisconfiguredError wraps an initialization failure of a handler
func NewHandlerMisconfiguredError(channelType string, cause error) *HandlerError {
	return &HandlerError{
		Err:  fmt.Errorf("%w: %v", ErrHandlerMisconfigured, cause),
		Type: channelType,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMessageNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsHandlerError reports whether err prevents a handler from being resolved.
// Such errors abort delivery of every message of the affected type for the pass.
func IsHandlerError(err error) bool {
	return errors.Is(err, ErrHandlerNotFound) || errors.Is(err, ErrHandlerMisconfigured)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrUnsupportedType):
		return CodeUnsupportedType
	case errors.Is(err, ErrInvalidMessage):
		return CodeInvalidMessage
	case errors.Is(err, ErrSourceNotFound):
		return CodeSourceNotFound
	case errors.Is(err, ErrHandlerNotFound):
		return CodeHandlerNotFound
	case errors.Is(err, ErrHandlerMisconfigured):
		return CodeHandlerMisconfigured
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternalError
	}
}

// GetHandlerError extracts HandlerError from an error if it exists
func GetHandlerError(err error) *HandlerError {
	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		return handlerErr
	}
	return nil
}
