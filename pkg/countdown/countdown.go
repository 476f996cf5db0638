// Package countdown implements the resend cooldown used by verification code
// fields: a one-second ticker counting down from a configured start value.
package countdown

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStart is the start value used when none is configured.
const DefaultStart = 60

// Ticker is the tick source driving a countdown.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// State is a snapshot of a countdown. Remaining equals the configured start
// whenever Running is false.
type State struct {
	Remaining int  `json:"remaining"`
	Running   bool `json:"running"`
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithTicker overrides the tick source.
func WithTicker(fn TickerFunc) Option {
	return func(c *Countdown) {
		if fn != nil {
			c.newTicker = fn
		}
	}
}

// WithInterval overrides the tick interval (one second by default).
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithObserver registers a callback invoked after every state change. It is
// called without internal locks held.
func WithObserver(fn func(State)) Option {
	return func(c *Countdown) {
		c.observer = fn
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Countdown) {
		c.logger = logger
	}
}

// Countdown ticks from its start value down to zero, then resets and stops.
// At most one ticker is active at a time.
type Countdown struct {
	mu sync.Mutex

	start     int
	interval  time.Duration
	newTicker TickerFunc
	observer  func(State)
	logger    zerolog.Logger

	remaining int
	ticker    Ticker
	stop      chan struct{}
}

// New constructs an idle countdown. Non-positive start values fall back to
// DefaultStart.
func New(start int, opts ...Option) *Countdown {
	if start <= 0 {
		start = DefaultStart
	}
	c := &Countdown{
		start:     start,
		interval:  time.Second,
		newTicker: NewRealTicker,
		logger:    zerolog.Nop(),
		remaining: start,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Start begins a countdown cycle. It reports false, and does nothing, when a
// cycle is already running.
func (c *Countdown) Start() bool {
	c.mu.Lock()
	if c.ticker != nil {
		c.mu.Unlock()
		return false
	}
	ticker := c.newTicker(c.interval)
	stop := make(chan struct{})
	c.ticker = ticker
	c.stop = stop
	c.remaining = c.start
	state := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug().Int("start", c.start).Msg("countdown started")
	c.notify(state)

	go c.run(ticker, stop)
	return true
}

// Stop aborts a running cycle and resets the countdown.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.ticker == nil {
		c.mu.Unlock()
		return
	}
	c.ticker.Stop()
	close(c.stop)
	c.ticker = nil
	c.stop = nil
	c.remaining = c.start
	state := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug().Msg("countdown stopped")
	c.notify(state)
}

// State returns the current snapshot.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Running reports whether a cycle is active.
func (c *Countdown) Running() bool {
	return c.State().Running
}

// StartValue returns the value the countdown resets to.
func (c *Countdown) StartValue() int {
	return c.start
}

func (c *Countdown) run(ticker Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if finished := c.tick(ticker); finished {
				return
			}
		}
	}
}

func (c *Countdown) tick(ticker Ticker) bool {
	c.mu.Lock()
	if c.ticker != ticker {
		c.mu.Unlock()
		return true
	}
	c.remaining--
	finished := c.remaining <= 0
	if finished {
		ticker.Stop()
		c.ticker = nil
		c.stop = nil
		c.remaining = c.start
	}
	state := c.stateLocked()
	c.mu.Unlock()

	if finished {
		c.logger.Debug().Msg("countdown finished")
	}
	c.notify(state)
	return finished
}

func (c *Countdown) stateLocked() State {
	return State{Remaining: c.remaining, Running: c.ticker != nil}
}

func (c *Countdown) notify(state State) {
	if c.observer != nil {
		c.observer(state)
	}
}
