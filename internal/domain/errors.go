package domain

import "fmt"

// FetchError reports a failed catalog or category read
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports malformed admin input. It is always returned
// before any gateway call is made.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// OperationError reports a write rejected by the gateway (database or object store).
// Message is safe to show to the admin.
type OperationError struct {
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *OperationError) Unwrap() error { return e.Err }

// NewOperationError wraps a gateway error, keeping its message for display
func NewOperationError(op string, err error) *OperationError {
	return &OperationError{Op: op, Message: err.Error(), Err: err}
}
