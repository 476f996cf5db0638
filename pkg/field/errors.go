package field

import "errors"

var (
	// ErrUnsupportedType is returned for specs with an unknown type.
	ErrUnsupportedType = errors.New("field: unsupported field type")
	// ErrUnsupportedEvent is returned when an event does not apply to the
	// field's type, e.g. Choose on a text field.
	ErrUnsupportedEvent = errors.New("field: event not supported by field type")
	// ErrUnknownOption is returned when a select value is not one of the
	// spec's options.
	ErrUnknownOption = errors.New("field: value is not one of the options")
	// ErrNoCountdown is returned by Countdown for non validation-code fields.
	ErrNoCountdown = errors.New("field: field has no countdown")
)
