package ledger

import (
	"errors"
	"fmt"

	"github.com/sevakendra/mel/internal/model"
)

var (
	// ErrUnavailable matches every UnavailableError.
	ErrUnavailable = errors.New("equipment unavailable")
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed or missing input.
type ValidationError = model.ValidationError

// UnavailableError is returned when no units of the equipment are left to rent.
type UnavailableError struct {
	EquipmentID   int64
	EquipmentName string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("no units of %q (equipment %d) are available", e.EquipmentName, e.EquipmentID)
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// NotFoundError is returned when a referenced id does not exist, usually
// because the caller is working from a stale listing.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a failed store call, including transport failures.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	// Keep the taxonomy flat: errors that already carry a ledger meaning pass through.
	var (
		verr *ValidationError
		nf   *NotFoundError
		unav *UnavailableError
		perr *PersistenceError
	)
	if errors.As(err, &verr) || errors.As(err, &nf) || errors.As(err, &unav) || errors.As(err, &perr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
