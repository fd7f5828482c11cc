package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict indicates a uniqueness constraint rejected the write.
var ErrConflict = errors.New("repository: conflict")

// ErrInvalid indicates a check constraint rejected the write.
var ErrInvalid = errors.New("repository: invalid value")
