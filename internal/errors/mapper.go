package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// MapSourceError maps errors coming out of table sources (network, SDK,
// filesystem) onto the tabula taxonomy so callers can decide whether a cached
// snapshot may be served instead.
func MapSourceError(err error) error {
	if err == nil {
		return nil
	}

	// Propagate cancellation as-is
	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("source timeout: %v: %w", err, ErrTransient)
	}

	// Already classified
	if Kind(err) != "unknown" {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("network error: %v: %w", err, ErrTransient)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "quota"), strings.Contains(errStr, "too many requests"):
		return fmt.Errorf("rate limited: %v: %w", err, ErrTransient)

	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf("source timeout: %v: %w", err, ErrTransient)

	case strings.Contains(errStr, "connection"), strings.Contains(errStr, "unreachable"), strings.Contains(errStr, "503"), strings.Contains(errStr, "502"):
		return fmt.Errorf("network error: %v: %w", err, ErrTransient)

	default:
		return fmt.Errorf("%v: %w", err, ErrInternal)
	}
}

// Kind returns the category name of err, used in logs and at the HTTP boundary.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInitialization):
		return "initialization"
	case errors.Is(err, ErrColumnNotFound):
		return "column_not_found"
	case errors.Is(err, ErrEmptyTable):
		return "empty_table"
	case errors.Is(err, ErrMissingFormat):
		return "missing_format"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrMissingParameter):
		return "missing_parameter"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrInternal):
		return "internal"
	default:
		return "unknown"
	}
}

// IsUserFacing reports whether the error message may be shown to the Slack user as-is.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMissingParameter) ||
		errors.Is(err, ErrEmptyTable)
}

// IsRetryable checks if an error is transient, indicating the operation can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// Validation wraps message as a validation error
func Validation(message string) error {
	return fmt.Errorf("%s: %w", message, ErrValidation)
}

// Initialization wraps message as an initialization error
func Initialization(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInitialization)
}

// ColumnNotFound reports a lookup against an undefined column
func ColumnNotFound(column string) error {
	return fmt.Errorf("column %q does not exist in the sheet definition: %w", column, ErrColumnNotFound)
}

// EmptyTable reports a random draw on a table without rows
func EmptyTable(message string) error {
	return fmt.Errorf("%s: %w", message, ErrEmptyTable)
}

// MissingFormat reports a command without a result template
func MissingFormat(command string) error {
	return fmt.Errorf("command %q does not define a result format: %w", command, ErrMissingFormat)
}

// UnknownCommand reports a command name that is not registered
func UnknownCommand(command string) error {
	return fmt.Errorf("command %q is not recognized: %w", command, ErrUnknownCommand)
}

// Unauthorized reports a token mismatch
func Unauthorized(command string) error {
	return fmt.Errorf("token is invalid for command %q: %w", command, ErrUnauthorized)
}

// MissingParameter reports a non-random command invoked without text
func MissingParameter(command string) error {
	return fmt.Errorf("expecting a parameter for command %q: %w", command, ErrMissingParameter)
}

// Transient wraps message as transient
func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

// Internal wraps message as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// GenericUserMessage is shown to Slack users for errors that are not user-facing.
const GenericUserMessage = "Sorry, something went wrong while looking that up."

// UserMessage returns the text a Slack user should see for err.
func UserMessage(err error) string {
	if !IsUserFacing(err) {
		return GenericUserMessage
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrUnknownCommand, ErrUnauthorized, ErrMissingParameter, ErrEmptyTable} {
		if errors.Is(err, sentinel) {
			msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
			break
		}
	}
	if msg == "" {
		return GenericUserMessage
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
