package domain

import "errors"

// Sentinel errors used across packages.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrSessionHalted = errors.New("session halted")
	ErrSessionClosed = errors.New("session closed")
)
