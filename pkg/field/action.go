package field

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Verbs posted by field buttons as the _action form value.
const (
	VerbSendCode    = "send_code"
	VerbDateOpen    = "date_open"
	VerbDateConfirm = "date_confirm"
	VerbDateCancel  = "date_cancel"
	VerbEmoji       = "emoji"
)

// PickedSuffix is appended to a date field's name for the value chosen in its
// picker modal.
const PickedSuffix = "__picked"

// ErrUnknownAction is returned for _action values no field button posts.
var ErrUnknownAction = errors.New("field: unknown action")

// Action is a field button press decoded from "<verb>:<field>[:<arg>]".
type Action struct {
	Verb  string
	Field string
	Arg   string
}

// ParseAction decodes a posted _action value. It reports false for values
// without a field part, such as a plain "submit".
func ParseAction(raw string) (Action, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Action{}, false
	}
	a := Action{Verb: parts[0], Field: parts[1]}
	if len(parts) == 3 {
		a.Arg = parts[2]
	}
	return a, true
}

func (a Action) String() string {
	if a.Arg == "" {
		return a.Verb + ":" + a.Field
	}
	return a.Verb + ":" + a.Field + ":" + a.Arg
}

// Do applies a posted action to f. form holds the rest of the submission; a
// date confirm reads the picked value from it.
func (f *Field) Do(ctx context.Context, a Action, form url.Values) error {
	if a.Field != f.spec.Name {
		return fmt.Errorf("%w: %s addressed to field %q", ErrUnknownAction, a, f.spec.Name)
	}
	switch a.Verb {
	case VerbSendCode:
		_, err := f.SendCode(ctx)
		return err
	case VerbDateOpen:
		return f.Open()
	case VerbDateConfirm:
		return f.ConfirmString(form.Get(f.spec.Name + PickedSuffix))
	case VerbDateCancel:
		return f.Cancel()
	case VerbEmoji:
		return f.Pick(a.Arg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, a)
	}
}
