package model

import "errors"

// Common errors used across the application
var (
	// Setup and input errors
	ErrValidation = errors.New("validation failed")

	// State machine errors
	ErrInvalidState = errors.New("invalid game state")
	ErrGameOver     = errors.New("game is already over")
	ErrReadOnly     = errors.New("game is open read-only")

	// Lookup errors
	ErrGameNotFound = errors.New("game not found")

	// Transport errors
	ErrStorageUnavailable = errors.New("storage unavailable")
)
