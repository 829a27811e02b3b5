package apperrors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsavedSet is returned when a membership operation is invoked
	// on a set that has not been persisted yet.
	ErrUnsavedSet = errors.New("record set must be saved before membership operations can be used")
	// ErrTypeMismatch is returned when two sets with different object
	// types are combined.
	ErrTypeMismatch = errors.New("record sets hold different object types")
	// ErrUnknownRecord is returned when a referenced record id does not
	// exist.
	ErrUnknownRecord = errors.New("unknown record")
)
