package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuery marks a failed read or write against the data store.
	// Empty results are never reported with it.
	ErrQuery = errors.New("query failed")

	ErrPlanNotFound      = errors.New("plan not found")
	ErrPlanLocked        = errors.New("plan is approved or converted and cannot be regenerated")
	ErrInvalidTransition = errors.New("invalid plan status transition")
	ErrStorageDisabled   = errors.New("object storage is not configured")
)

// QueryError wraps a data-access failure with the operation that produced it
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrQuery) match any QueryError.
func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// NewQueryError wraps err as a QueryError. It returns nil for a nil err and
// leaves an existing QueryError untouched.
func NewQueryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Op: op, Err: err}
}
