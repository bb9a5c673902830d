package model

import "errors"

// Store-level errors shared by every backend.
var (
	// ErrRecordNotFound is returned when a write targets a row that does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrQuantityOutOfRange is returned when an availability change would leave
	// available_quantity outside [0, total_quantity].
	ErrQuantityOutOfRange = errors.New("available quantity out of range")
)
