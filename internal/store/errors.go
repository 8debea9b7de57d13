package store

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record modified concurrently")
	ErrReadOnly = errors.New("write in read-only transaction")
)
