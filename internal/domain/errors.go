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

// StaleConflictError is returned by the store when the occupant observed at
// conflict-check time is no longer the occupant at commit time.
type StaleConflictError struct {
	ContainerID string
	ExpectedID  string
	ActualID    string
}

func (e StaleConflictError) Error() string {
	return fmt.Sprintf("container %s occupant changed between check and write (expected %s, found %s)",
		e.ContainerID, e.ExpectedID, e.ActualID)
}

// Is enables errors.Is matching on StaleConflictError.
func (e StaleConflictError) Is(target error) bool {
	_, ok := target.(StaleConflictError)
	if ok {
		return true
	}
	_, ok = target.(*StaleConflictError)
	return ok
}

// ErrStaleConflict is the sentinel error for occupant drift.
var ErrStaleConflict = StaleConflictError{}

// UnauthorizedError is returned when a mutating call lacks a requester.
type UnauthorizedError struct{}

func (e UnauthorizedError) Error() string { return "unauthorized" }

// Is enables errors.Is matching on UnauthorizedError.
func (e UnauthorizedError) Is(target error) bool {
	_, ok := target.(UnauthorizedError)
	if ok {
		return true
	}
	_, ok = target.(*UnauthorizedError)
	return ok
}

// ErrUnauthorized is the sentinel error for unauthenticated mutations.
var ErrUnauthorized = UnauthorizedError{}

// DuplicateError is returned when a unique constraint would be violated,
// e.g. creating a coffee whose name already exists.
type DuplicateError struct {
	Resource string
}

func (e DuplicateError) Error() string {
	if e.Resource == "" {
		return "already exists"
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// Is enables errors.Is matching on DuplicateError.
func (e DuplicateError) Is(target error) bool {
	_, ok := target.(DuplicateError)
	if ok {
		return true
	}
	_, ok = target.(*DuplicateError)
	return ok
}

// ErrDuplicate is the sentinel error for unique constraint violations.
var ErrDuplicate = DuplicateError{}
