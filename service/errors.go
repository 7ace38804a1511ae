package service

import "errors"

// Error taxonomy shared by every settlement operation. Callers match with errors.Is;
// returned errors wrap these with the ids involved.
var (
	// ErrNotFound means a referenced player, challenge, submission, event, option, bet or loan is absent
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the entity is in the wrong lifecycle state for the operation
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized means the acting player lacks the role or ownership the operation requires
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation means the input is malformed
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance means a debit would drive a balance below zero
	ErrInsufficientBalance = errors.New("insufficient balance")
)
