package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateUsername is returned when an insert loses the race on the
	// username unique index.
	ErrDuplicateUsername = errors.New("username already registered")

	// ErrDuplicateEmail is returned when an insert or update loses the race
	// on the email unique index.
	ErrDuplicateEmail = errors.New("email already registered")
)
