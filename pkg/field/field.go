// Package field renders a single form field from its declarative spec and
// relays user interaction back to the owner as emitted values.
//
// A Field never stores the value it displays: the owner passes the current
// value on every Render and receives new values through the emit callback.
// Dispatch is a closed switch over model.FieldType backed by a component
// registry. Validation-code fields additionally own a resend countdown,
// exposed to the owner through a CountdownHandle.
package field

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/pkg/countdown"
	"github.com/goliatone/go-signin/pkg/emoji"
	"github.com/goliatone/go-signin/pkg/field/components"
	"github.com/goliatone/go-signin/pkg/model"
	rendertemplate "github.com/goliatone/go-signin/pkg/render/template"
	"github.com/goliatone/go-signin/pkg/render/template/gotemplate"
)

const rowTemplate = "templates/row.tmpl"

// Props are the per-render inputs supplied by the owner.
type Props struct {
	Value model.Value
	// Error overrides the spec's error when non-empty.
	Error string
}

// Field is one rendered input.
type Field struct {
	spec      model.FieldSpec
	emit      func(model.Value)
	judge     func() string
	onClick   func(ctx context.Context) error
	picker    EmojiPicker
	children  string
	ticker    countdown.TickerFunc
	observer  func(countdown.State)
	registry  *components.Registry
	templates rendertemplate.TemplateRenderer
	captions  Captions
	logger    zerolog.Logger

	countdown *countdown.Countdown

	mu         sync.Mutex
	pickerOpen bool
}

// New builds a field for spec.
func New(spec model.FieldSpec, opts ...Option) (*Field, error) {
	if !spec.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, spec.Type)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("field: %w", err)
	}

	f := &Field{
		spec:     spec.Clone(),
		captions: defaultCaptions(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(f)
	}

	if f.registry == nil {
		f.registry = components.NewDefaultRegistry()
	}
	if f.templates == nil {
		engine, err := defaultTemplates()
		if err != nil {
			return nil, err
		}
		f.templates = engine
	}

	switch f.spec.Type {
	case model.FieldTypeValidationCode:
		cdOpts := []countdown.Option{
			countdown.WithObserver(f.observer),
			countdown.WithLogger(f.logger.With().Str("field", f.spec.Name).Logger()),
		}
		if f.ticker != nil {
			cdOpts = append(cdOpts, countdown.WithTicker(f.ticker))
		}
		f.countdown = countdown.New(f.spec.Countdown(), cdOpts...)
	case model.FieldTypeEmojiSelect:
		if f.picker == nil {
			picker, err := emoji.NewPicker()
			if err != nil {
				return nil, fmt.Errorf("field: default emoji picker: %w", err)
			}
			f.picker = picker
		}
	}

	return f, nil
}

// Spec returns a copy of the field's spec.
func (f *Field) Spec() model.FieldSpec {
	return f.spec.Clone()
}

// Name returns the spec name.
func (f *Field) Name() string {
	return f.spec.Name
}

// Type returns the spec type.
func (f *Field) Type() model.FieldType {
	return f.spec.Type
}

// Render produces the field row markup for the given props.
func (f *Field) Render(props Props) (string, error) {
	componentName := components.NameFor(f.spec.Type)
	descriptor, ok := f.registry.Descriptor(componentName)
	if !ok {
		return "", fmt.Errorf("field: component %q not registered for field %q", componentName, f.spec.Name)
	}

	errMsg := strings.TrimSpace(props.Error)
	if errMsg == "" {
		errMsg = strings.TrimSpace(f.spec.Error)
	}
	value := model.FormatValue(props.Value)

	data := components.ComponentData{
		Template: f.templates,
		Spec:     f.spec.Clone(),
		ID:       controlID(f.spec.Name),
		Value:    value,
		Error:    errMsg,
		Children: f.children,
	}

	switch f.spec.Type {
	case model.FieldTypeDate:
		data.PickerOpen = f.PickerOpen()
		data.PickerValue = pickerValue(value)
		data.PickerTitle = f.captions.DatePickerTitle
	case model.FieldTypeValidationCode:
		state := f.countdown.State()
		data.Counting = state.Running
		data.Remaining = state.Remaining
		data.Caption = f.caption(state)
	case model.FieldTypeEmojiSelect:
		data.Emoji = f.picker.RenderPicker
	}

	var control bytes.Buffer
	if err := descriptor.Renderer(&control, data); err != nil {
		return "", fmt.Errorf("field: render %q: %w", f.spec.Name, err)
	}

	hint := errMsg
	if hint == "" {
		hint = f.captions.EmptyHint
	}
	out, err := f.templates.RenderTemplate(rowTemplate, map[string]any{
		"field_type": f.spec.Type.String(),
		"name":       f.spec.Name,
		"label":      f.spec.Label,
		"control":    strings.TrimRight(control.String(), "\n"),
		"hint":       hint,
	})
	if err != nil {
		return "", fmt.Errorf("field: render row %q: %w", f.spec.Name, err)
	}
	return out, nil
}

// Input relays a keystroke value verbatim. Text and validation-code fields
// accept it.
func (f *Field) Input(raw string) error {
	switch f.spec.Type {
	case model.FieldTypeText, model.FieldTypeValidationCode:
		f.relay(raw)
		return nil
	default:
		return f.unsupported("input")
	}
}

// Open shows the date picker.
func (f *Field) Open() error {
	if f.spec.Type != model.FieldTypeDate {
		return f.unsupported("open")
	}
	f.setPickerOpen(true)
	return nil
}

// Confirm emits the picked date in model.DateLayout and closes the picker.
func (f *Field) Confirm(picked time.Time) error {
	if f.spec.Type != model.FieldTypeDate {
		return f.unsupported("confirm")
	}
	f.setPickerOpen(false)
	f.relay(picked.Format(model.DateLayout))
	return nil
}

// ConfirmString parses a picker submission and confirms it. Unparseable input
// leaves the picker open and emits nothing.
func (f *Field) ConfirmString(raw string) error {
	if f.spec.Type != model.FieldTypeDate {
		return f.unsupported("confirm")
	}
	picked, err := time.Parse(model.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("field: parse date %q: %w", raw, err)
	}
	return f.Confirm(picked)
}

// Cancel closes the date picker without emitting.
func (f *Field) Cancel() error {
	if f.spec.Type != model.FieldTypeDate {
		return f.unsupported("cancel")
	}
	f.setPickerOpen(false)
	return nil
}

// PickerOpen reports whether the date picker modal is visible.
func (f *Field) PickerOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pickerOpen
}

// Choose emits value when it is one of the select options.
func (f *Field) Choose(value string) error {
	if f.spec.Type != model.FieldTypeSelect {
		return f.unsupported("choose")
	}
	if !f.spec.HasOption(value) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, value)
	}
	f.relay(value)
	return nil
}

// Pick relays the emoji picker's value unchanged.
func (f *Field) Pick(value string) error {
	if f.spec.Type != model.FieldTypeEmojiSelect {
		return f.unsupported("pick")
	}
	f.relay(value)
	return nil
}

// SendCode handles a click on the send button. While counting the button is
// disabled and nothing happens. Otherwise the judge gate runs first; a
// non-empty verdict aborts. It reports whether the click side effect ran.
func (f *Field) SendCode(ctx context.Context) (bool, error) {
	if f.spec.Type != model.FieldTypeValidationCode {
		return false, f.unsupported("send code")
	}
	if f.countdown.Running() {
		f.logger.Debug().Str("field", f.spec.Name).Msg("send ignored while counting")
		return false, nil
	}
	if f.judge != nil {
		if verdict := f.judge(); verdict != "" {
			f.logger.Debug().Str("field", f.spec.Name).Str("verdict", verdict).Msg("send blocked by judge")
			return false, nil
		}
	}
	if f.onClick == nil {
		return false, nil
	}
	return true, f.onClick(ctx)
}

// Countdown returns the handle owners use to start the resend cooldown.
func (f *Field) Countdown() (CountdownHandle, error) {
	if f.countdown == nil {
		return nil, ErrNoCountdown
	}
	return countdownHandle{c: f.countdown}, nil
}

// Close releases the field's timer.
func (f *Field) Close() {
	if f.countdown != nil {
		f.countdown.Stop()
	}
}

func (f *Field) relay(value model.Value) {
	if f.emit != nil {
		f.emit(value)
	}
}

func (f *Field) setPickerOpen(open bool) {
	f.mu.Lock()
	f.pickerOpen = open
	f.mu.Unlock()
}

func (f *Field) caption(state countdown.State) string {
	if state.Running {
		return f.captions.Wait(state.Remaining)
	}
	return f.captions.Send
}

func (f *Field) unsupported(event string) error {
	return fmt.Errorf("%w: %s on %s field %q", ErrUnsupportedEvent, event, f.spec.Type, f.spec.Name)
}

func defaultCaptions() Captions {
	return Captions{
		Send: "发送验证码",
		Wait: func(remaining int) string {
			return fmt.Sprintf("%d秒后可重新发送", remaining)
		},
		DatePickerTitle: "选择日期",
		EmptyHint:       "　",
	}
}

func controlID(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return ""
	}
	return "fg-" + name
}

func pickerValue(value string) string {
	if _, err := time.Parse(model.DateLayout, value); err == nil {
		return value
	}
	return ""
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *gotemplate.Engine
	defaultEngineErr  error
)

func defaultTemplates() (rendertemplate.TemplateRenderer, error) {
	defaultEngineOnce.Do(func() {
		defaultEngine, defaultEngineErr = gotemplate.New(
			gotemplate.WithName("field"),
			gotemplate.WithFS(TemplatesFS()),
		)
	})
	if defaultEngineErr != nil {
		return nil, fmt.Errorf("field: configure templates: %w", defaultEngineErr)
	}
	return defaultEngine, nil
}
