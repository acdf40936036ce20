package service

import "errors"

var (
	// ErrNotFound is returned when the session or record an operation
	// targets does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps request validation failures.
	ErrInvalid = errors.New("invalid request")
)
