// Package common defines shared constants, sentinel errors and small helpers
// used across the premiumgate server and its command-line client. Callers
// should use errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed admin token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Payment verification errors.
	ErrMalformedInput    = errors.New("malformed input")
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// Content errors.
	ErrorIncorrectContent = errors.New("incorrect content")
)
