package field

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/pkg/countdown"
	"github.com/goliatone/go-signin/pkg/field/components"
	"github.com/goliatone/go-signin/pkg/model"
)

// EmojiPicker is the collaborator emojiSelect fields delegate rendering to.
type EmojiPicker interface {
	RenderPicker(name, selected string, invalid bool) (string, error)
}

// Captions are the user-facing strings a field renders.
type Captions struct {
	// Send is the idle caption of the send-code button.
	Send string
	// Wait formats the caption while counting; it receives the remaining
	// seconds.
	Wait func(remaining int) string
	// DatePickerTitle heads the date picker modal.
	DatePickerTitle string
	// EmptyHint fills the error hint area when there is no error.
	EmptyHint string
}

// Option configures a Field.
type Option func(*Field)

// WithEmit registers the callback receiving every new value.
func WithEmit(fn func(model.Value)) Option {
	return func(f *Field) {
		f.emit = fn
	}
}

// WithJudge registers the gate consulted before sending a code. A non-empty
// result aborts the send.
func WithJudge(fn func() string) Option {
	return func(f *Field) {
		f.judge = fn
	}
}

// WithOnClick registers the side effect run when the send button passes the
// judge gate.
func WithOnClick(fn func(ctx context.Context) error) Option {
	return func(f *Field) {
		f.onClick = fn
	}
}

// WithEmojiPicker overrides the emoji picker collaborator.
func WithEmojiPicker(picker EmojiPicker) Option {
	return func(f *Field) {
		if picker != nil {
			f.picker = picker
		}
	}
}

// WithChildren sets the pass-through content rendered by slot fields.
func WithChildren(html string) Option {
	return func(f *Field) {
		f.children = html
	}
}

// WithTicker overrides the countdown tick source.
func WithTicker(fn countdown.TickerFunc) Option {
	return func(f *Field) {
		f.ticker = fn
	}
}

// WithCountdownObserver receives every countdown state change.
func WithCountdownObserver(fn func(countdown.State)) Option {
	return func(f *Field) {
		f.observer = fn
	}
}

// WithRegistry overrides the component registry.
func WithRegistry(registry *components.Registry) Option {
	return func(f *Field) {
		if registry != nil {
			f.registry = registry
		}
	}
}

// WithCaptions overrides the default captions. Empty members keep defaults.
func WithCaptions(captions Captions) Option {
	return func(f *Field) {
		if captions.Send != "" {
			f.captions.Send = captions.Send
		}
		if captions.Wait != nil {
			f.captions.Wait = captions.Wait
		}
		if captions.DatePickerTitle != "" {
			f.captions.DatePickerTitle = captions.DatePickerTitle
		}
		if captions.EmptyHint != "" {
			f.captions.EmptyHint = captions.EmptyHint
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Field) {
		f.logger = logger
	}
}
