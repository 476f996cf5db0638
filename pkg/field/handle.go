package field

import "github.com/goliatone/go-signin/pkg/countdown"

// CountdownHandle is the capability a validation-code field hands to its
// owner so the owner can start the resend cooldown without reaching into
// the field.
type CountdownHandle interface {
	// StartCount begins the cooldown; it reports false when one is already
	// running.
	StartCount() bool
	State() countdown.State
}

type countdownHandle struct {
	c *countdown.Countdown
}

func (h countdownHandle) StartCount() bool       { return h.c.Start() }
func (h countdownHandle) State() countdown.State { return h.c.State() }
