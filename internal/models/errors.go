package models

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before any state mutation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError signals an unknown session, order, or product
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// ConflictError signals an illegal status transition; Current names the
// status the order is actually in
type ConflictError struct {
	Resource string
	Key      string
	Current  string
	Action   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s is %s, cannot %s", e.Resource, e.Key, e.Current, e.Action)
}

// CollaboratorError wraps a failure or timeout from an external
// NLU/availability collaborator
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
