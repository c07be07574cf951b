// Package validation collects field-scoped validation errors.
package validation

import "fmt"

// FieldError reports a problem with a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is a collection of field errors.
type Errors []*FieldError

// Error implements the error interface.
func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

// Add appends a field error.
func (e *Errors) Add(field, message string) {
	*e = append(*e, &FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// HasField reports whether any error references field.
func (e Errors) HasField(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}
