package errors

import "fmt"

// ErrorCode represents a Spark error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrDuplicatePrompt ErrorCode = "DUPLICATE_PROMPT" // 422
	ErrInvalidCatalog  ErrorCode = "INVALID_CATALOG"  // 422
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// SparkError represents a structured error with code, status, and details.
type SparkError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SparkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SparkError {
	return &SparkError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource of the given kind.
func NewNotFound(kind, identifier string) *SparkError {
	return &SparkError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewDuplicatePrompt creates a 422 error when two catalog entries share the same text.
func NewDuplicatePrompt(text string, first, second int) *SparkError {
	return &SparkError{
		Code:    ErrDuplicatePrompt,
		Status:  422,
		Message: fmt.Sprintf("duplicate prompt text at entries %d and %d: %q", first, second, text),
		Details: map[string]any{"text": text, "first_index": first, "second_index": second},
	}
}

// NewInvalidCatalog creates a 422 error when a catalog file cannot be parsed.
func NewInvalidCatalog(source string, err error) *SparkError {
	msg := "invalid catalog"
	if err != nil {
		msg = fmt.Sprintf("invalid catalog %s: %v", source, err)
	}
	return &SparkError{
		Code:    ErrInvalidCatalog,
		Status:  422,
		Message: msg,
		Details: map[string]any{"source": source},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SparkError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SparkError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a SparkError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*SparkError); ok {
		return sErr.Code == code
	}
	return false
}
