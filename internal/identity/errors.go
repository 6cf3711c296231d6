package identity

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups for a UUID or Aktenzeichen with no record.
var ErrNotFound = errors.New("identity not found")

// ConflictError rejects binding an Aktenzeichen that already belongs to a
// different identity.
type ConflictError struct {
	Aktenzeichen  string
	ExistingUUID  string
	RequestedUUID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("aktenzeichen %q is already registered to identity %s (requested %s)",
		e.Aktenzeichen, e.ExistingUUID, e.RequestedUUID)
}

// ServiceError wraps any identity fault that is not a lookup miss or a
// conflict. The lifecycle coordinator records it as an issue and continues;
// identity bookkeeping never blocks document persistence.
type ServiceError struct {
	Op    string
	Cause error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("identity service %s: %v", e.Op, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func serviceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Op: op, Cause: err}
}
