package repositories

import "errors"

var (
	// ErrNotFound is wrapped by every repository lookup that matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is wrapped when an insert hits a unique key.
	ErrDuplicate = errors.New("duplicate record")
)
