package store

import "errors"

// ErrNotFound is returned when a user or product record does not exist.
var ErrNotFound = errors.New("not found")
