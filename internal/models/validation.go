package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/alchemy/internal/shared"
)

// FieldError is a validation failure attached to one form field.
//
// An empty Field marks an error that applies to the whole form.
type FieldError struct {
	Field   string `json:"name,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every [FieldError] found while validating a model.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets callers match validation failures with errors.Is(err, shared.ErrInvalidInput).
func (v ValidationErrors) Unwrap() error {
	return shared.ErrInvalidInput
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// Err returns nil when no error was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
