package domain

import "errors"

var (
	// ErrUnauthorized covers missing, invalid, expired and replayed tokens.
	// Callers never learn which one it was.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is an authenticated subject denied by the permission evaluator.
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)
