package domain

import "errors"

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalError      = errors.New("internal error")
	ErrVersionConflict    = errors.New("resource was modified concurrently")
	ErrStorageUnavailable = errors.New("object storage is not configured")
)

// Validation constants
const (
	MinFullNameLength    = 2
	MaxFullNameLength    = 50
	MinPasswordLength    = 6
	MaxDescriptionLength = 200
	MaxNotesLength       = 500
	MaxLenderNameLength  = 100
)
