package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates that a row was not in the state the operation expected.
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested row does not exist.
var ErrNotFound = errors.New("not found")
