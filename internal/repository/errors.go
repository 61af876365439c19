package repository

import "errors"

var (
	// ErrDuplicateKey is returned when an insert violates the short code unique index
	ErrDuplicateKey = errors.New("[repository]: duplicate key")
	// ErrNotFound is returned when a write targets a row that no longer exists
	ErrNotFound = errors.New("[repository]: record not found")
)
