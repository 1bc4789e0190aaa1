// Package common defines shared error categories and small helpers used across
// keepsearch components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrConfiguration marks failures that require fixing the configuration:
	// missing keepassxc-cli binary, missing database or key file.
	// Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuth marks a credential rejected by the database oracle.
	// The cached credential is cleared and the user is asked again.
	ErrAuth = errors.New("authentication error")

	// ErrParse marks oracle output that did not have the expected shape.
	ErrParse = errors.New("unexpected oracle output")

	// ErrTransient marks subprocess timeouts and launch failures.
	// Safe to retry once.
	ErrTransient = errors.New("transient error")

	// ErrCancelled is returned when the user dismisses the credential prompt.
	ErrCancelled = errors.New("unlock cancelled")
)
