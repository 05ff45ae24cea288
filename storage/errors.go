package storage

import "github.com/pkg/errors"

var (
	// ErrTableNotFound is returned when a catalog lookup misses.
	ErrTableNotFound = errors.New("table not found")
	// ErrIndexExists is returned when creating an index that is already live.
	ErrIndexExists = errors.New("index already exists")
	// ErrIndexNotFound is returned when dropping an index that is not live.
	ErrIndexNotFound = errors.New("index not found")
)
