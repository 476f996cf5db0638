// Package signin implements the sign-in flow: a two-field form (email and
// verification code), its validation, and the request that sends a
// verification code to the user's inbox. View composes the flow with field
// renderers into the sign-in page.
package signin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/pkg/apiclient"
	"github.com/goliatone/go-signin/pkg/validation"
)

// ValidationCodesPath is the resource verification codes are requested from.
const ValidationCodesPath = "/validation_codes"

// Field keys of the sign-in form.
const (
	KeyEmail = "email"
	KeyCode  = "code"
)

// InvalidEmailMessage is reported when the email does not look like one.
const InvalidEmailMessage = "输入正确的邮箱地址"

var (
	// ErrInvalid is returned by Submit when validation fails.
	ErrInvalid = errors.New("signin: form is invalid")
	// ErrSendInFlight is returned when a code request is already pending.
	ErrSendInFlight = errors.New("signin: validation code request already in flight")
)

// Poster is the HTTP collaborator used to request codes.
type Poster interface {
	Post(ctx context.Context, path string, body, result any) error
}

// Counter starts the resend cooldown after a code was sent.
type Counter interface {
	StartCount() bool
}

// Authenticator completes sign-in once the form validates. Session handling
// lives behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, form Form) error
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, form Form) error

// Authenticate implements Authenticator.
func (fn AuthenticatorFunc) Authenticate(ctx context.Context, form Form) error {
	return fn(ctx, form)
}

// Form is the sign-in form state.
type Form struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Lookup implements validation.State.
func (f Form) Lookup(key string) (any, bool) {
	switch key {
	case KeyEmail:
		return f.Email, true
	case KeyCode:
		return f.Code, true
	default:
		return nil, false
	}
}

// EmailRules are checked before sending a code.
func EmailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required(KeyEmail, ""),
		validation.Pattern(KeyEmail, validation.EmailPattern, InvalidEmailMessage),
	}
}

// SubmitRules are checked on submit.
func SubmitRules() []validation.Rule {
	return append(EmailRules(), validation.Required(KeyCode, ""))
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithAuthenticator sets the collaborator called after a valid submit.
func WithAuthenticator(auth Authenticator) FlowOption {
	return func(f *Flow) {
		f.auth = auth
	}
}

// WithFlowLogger attaches a logger.
func WithFlowLogger(logger zerolog.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = logger
	}
}

// Flow owns the sign-in form state and its error record.
type Flow struct {
	poster Poster
	auth   Authenticator
	logger zerolog.Logger

	mu      sync.Mutex
	form    Form
	errors  validation.Errors
	counter Counter
	sending bool
}

// NewFlow creates a flow posting code requests through poster.
func NewFlow(poster Poster, opts ...FlowOption) *Flow {
	f := &Flow{
		poster: poster,
		logger: zerolog.Nop(),
		errors: validation.Errors{KeyEmail: {}, KeyCode: {}},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// BindCountdown wires the cooldown started after a successful send.
func (f *Flow) BindCountdown(counter Counter) {
	f.mu.Lock()
	f.counter = counter
	f.mu.Unlock()
}

// SetEmail stores the email value.
func (f *Flow) SetEmail(email string) {
	f.mu.Lock()
	f.form.Email = email
	f.mu.Unlock()
}

// SetCode stores the code value.
func (f *Flow) SetCode(code string) {
	f.mu.Lock()
	f.form.Code = code
	f.mu.Unlock()
}

// Form returns a copy of the form state.
func (f *Flow) Form() Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Errors returns a copy of the error record.
func (f *Flow) Errors() validation.Errors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors.Clone()
}

// Sending reports whether a code request is pending.
func (f *Flow) Sending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sending
}

// JudgeEmail re-validates the email, replacing its error bucket, and returns
// the joined messages. An empty result means the email passed.
func (f *Flow) JudgeEmail() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errors.Clear(KeyEmail)
	f.errors.Merge(validation.Validate(EmailRules(), f.form))
	return f.errors.Join(KeyEmail)
}

// Submit re-validates the whole form. It returns ErrInvalid when any field
// fails; otherwise the authenticator, when configured, completes sign-in.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	f.errors.Clear(KeyEmail, KeyCode)
	f.errors.Merge(validation.Validate(SubmitRules(), f.form))
	invalid := !f.errors.Empty()
	form := f.form
	f.mu.Unlock()

	if invalid {
		f.logger.Debug().Strs("fields", f.Errors().Keys()).Msg("sign-in form invalid")
		return ErrInvalid
	}
	if f.auth == nil {
		return nil
	}
	if err := f.auth.Authenticate(ctx, form); err != nil {
		return fmt.Errorf("signin: authenticate: %w", err)
	}
	return nil
}

// SendValidationCode asks the API to email a verification code. On success
// the bound countdown starts. A 422 response merges the returned field
// errors into the record and is returned; other failures are returned as is.
func (f *Flow) SendValidationCode(ctx context.Context) error {
	f.mu.Lock()
	if f.sending {
		f.mu.Unlock()
		return ErrSendInFlight
	}
	f.sending = true
	email := f.form.Email
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.sending = false
		f.mu.Unlock()
	}()

	if f.poster == nil {
		return errors.New("signin: no HTTP collaborator configured")
	}

	f.logger.Debug().Str("email", MaskEmail(email)).Msg("requesting validation code")
	err := f.poster.Post(ctx, ValidationCodesPath, map[string]string{KeyEmail: email}, nil)
	if err != nil {
		if reqErr, ok := apiclient.AsRequestError(err); ok && reqErr.Unprocessable() {
			f.mu.Lock()
			f.errors.Merge(reqErr.Errors)
			f.mu.Unlock()
			f.logger.Info().Str("email", MaskEmail(email)).Msg("validation code request rejected")
		} else {
			f.logger.Error().Err(err).Str("email", MaskEmail(email)).Msg("validation code request failed")
		}
		return fmt.Errorf("signin: send validation code: %w", err)
	}

	f.mu.Lock()
	counter := f.counter
	f.mu.Unlock()
	if counter != nil {
		counter.StartCount()
	}
	return nil
}

// MaskEmail keeps the first character of the local part and the domain, for
// log lines.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	first, _ := utf8.DecodeRuneInString(email)
	return string(first) + "***" + email[at:]
}
