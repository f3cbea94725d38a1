package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks errors caused by bad or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks errors raised when an activity, factor, airport or user is missing.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks ownership mismatches.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports invalid input supplied by the caller.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	Key      string
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AuthorizationError reports that the caller does not own the resource.
type AuthorizationError struct {
	Message string
}

// NewAuthorizationError builds an AuthorizationError.
func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

func (e *AuthorizationError) Error() string { return e.Message }

// Is lets errors.Is match ErrForbidden.
func (e *AuthorizationError) Is(target error) bool { return target == ErrForbidden }
