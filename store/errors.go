package store

import "errors"

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("lepidoptera: record not found")

	// ErrUnknownCollection is returned for a collection the store does not own.
	ErrUnknownCollection = errors.New("lepidoptera: unknown collection")

	// ErrAlreadyExists is returned by a backend asked to append a duplicate id.
	ErrAlreadyExists = errors.New("lepidoptera: record already exists")

	// ErrClosed is returned when a backend is used after Close.
	ErrClosed = errors.New("lepidoptera: backend is closed")

	// ErrMissingID is returned when importing a record without a string id.
	ErrMissingID = errors.New("lepidoptera: record has no id")
)
