package port

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic write lost the race: the
	// order's version moved between read and write
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrDuplicate is returned when a uniqueness constraint is violated
	ErrDuplicate = errors.New("duplicate entity")
)
