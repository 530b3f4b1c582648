package models

import (
	"errors"
	"fmt"
)

// ValidationError missing or malformed input; nothing was mutated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError unknown patient, user or alert.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ForbiddenError caller role may not perform the operation.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// ConflictError unique constraint violation (e.g. username already taken).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewValidationError(msg string) error { return &ValidationError{Message: msg} }

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewForbiddenError(msg string) error { return &ForbiddenError{Message: msg} }

func NewConflictError(msg string) error { return &ConflictError{Message: msg} }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *ForbiddenError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
