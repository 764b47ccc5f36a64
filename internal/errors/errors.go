package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrValidation - malformed static definition (fail construction)
	ErrValidation = errors.New("validation failed")

	// ErrInitialization - definition is well-formed but cannot be wired (dangling sheet reference)
	ErrInitialization = errors.New("initialization failed")

	// ErrColumnNotFound - lookup against a column the table does not define
	ErrColumnNotFound = errors.New("column not found")

	// ErrEmptyTable - random draw on a table without rows
	ErrEmptyTable = errors.New("empty table")

	// ErrMissingFormat - command has no result template
	ErrMissingFormat = errors.New("missing format")

	// ErrUnknownCommand - no command registered under the requested name
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnauthorized - request token does not match the command token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingParameter - non-random command invoked without text
	ErrMissingParameter = errors.New("missing parameter")

	// ErrTransient - transient error (source unreachable, timeout); callers may fall back to cache
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error (generic message in Slack, details in logs)
	ErrInternal = errors.New("internal error")
)
