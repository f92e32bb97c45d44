package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ForbiddenError represents an operation the principal may not perform.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return e.Reason
}

// Is enables errors.Is matching on ForbiddenError.
func (e ForbiddenError) Is(target error) bool {
	_, ok := target.(ForbiddenError)
	if ok {
		return true
	}
	_, ok = target.(*ForbiddenError)
	return ok
}

// ErrForbidden is the sentinel error for denied operations.
var ErrForbidden = ForbiddenError{}

// ValidationError represents rejected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel error for rejected input.
var ErrValidation = ValidationError{}
