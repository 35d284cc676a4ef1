package domain

import (
	"fmt"
)

// Common error types
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrNotATemplate is returned when a content id points at a non template record
type ErrNotATemplate struct {
	ID string
}

func (e *ErrNotATemplate) Error() string {
	return fmt.Sprintf("Content %s is not a template", e.ID)
}

// ErrTemplateHasNoHTML is returned when a template record has empty source
type ErrTemplateHasNoHTML struct {
	ID string
}

func (e *ErrTemplateHasNoHTML) Error() string {
	return fmt.Sprintf("Template %s has no HTML", e.ID)
}

// ErrRefreshFailed wraps a refresh failure of a single template
type ErrRefreshFailed struct {
	TemplateID string
	Err        error
}

func (e *ErrRefreshFailed) Error() string {
	return fmt.Sprintf("template refresh failed: %v", e.Err)
}

func (e *ErrRefreshFailed) Unwrap() error {
	return e.Err
}

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error with the given message
func NewValidationError(message string) error {
	return ValidationError{
		Message: message,
	}
}
