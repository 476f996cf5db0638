package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyAttempts is returned once a prompt was answered invalidly
	// more often than the configured limit.
	ErrTooManyAttempts = errors.New("tui: too many invalid attempts")
)
