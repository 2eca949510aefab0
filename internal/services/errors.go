package services

import (
	"errors"
	"fmt"
)

var (
	// validation
	ErrMissingField  = errors.New("missing required field")
	ErrMissingFile   = fmt.Errorf("%w: file", ErrMissingField)
	ErrInvalidRating = errors.New("invalid rating")

	// authentication
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid token")

	// authorization and lookup
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")

	ErrDeletionFailed = errors.New("deletion failed")
)
