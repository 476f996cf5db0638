package signin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/pkg/countdown"
	"github.com/goliatone/go-signin/pkg/field"
	"github.com/goliatone/go-signin/pkg/model"
	rendertemplate "github.com/goliatone/go-signin/pkg/render/template"
	"github.com/goliatone/go-signin/pkg/render/template/gotemplate"
)

// ErrUnknownField is returned for events addressed to a field the view does
// not render.
var ErrUnknownField = errors.New("signin: unknown field")

const (
	defaultBrand       = "山竹记账"
	defaultSubmitLabel = "登录"
	defaultAction      = "/sign_in"
)

// ViewOption configures a View.
type ViewOption func(*viewConfig)

type viewConfig struct {
	spec        *model.FormSpec
	brand       string
	submitLabel string
	countdown   int
	ticker      countdown.TickerFunc
	observer    func(countdown.State)
	logger      zerolog.Logger
}

// WithFormSpec replaces the built-in form spec. It must declare a text field
// named email and a validationCode field named code.
func WithFormSpec(spec model.FormSpec) ViewOption {
	return func(cfg *viewConfig) {
		cfg.spec = &spec
	}
}

// WithBrand sets the heading shown above the form.
func WithBrand(brand string) ViewOption {
	return func(cfg *viewConfig) {
		if brand = strings.TrimSpace(brand); brand != "" {
			cfg.brand = brand
		}
	}
}

// WithSubmitLabel sets the submit button caption.
func WithSubmitLabel(label string) ViewOption {
	return func(cfg *viewConfig) {
		if label = strings.TrimSpace(label); label != "" {
			cfg.submitLabel = label
		}
	}
}

// WithCountdownSeconds overrides the resend cooldown length.
func WithCountdownSeconds(seconds int) ViewOption {
	return func(cfg *viewConfig) {
		cfg.countdown = seconds
	}
}

// WithViewTicker overrides the countdown tick source.
func WithViewTicker(fn countdown.TickerFunc) ViewOption {
	return func(cfg *viewConfig) {
		cfg.ticker = fn
	}
}

// WithViewCountdownObserver receives countdown state changes.
func WithViewCountdownObserver(fn func(countdown.State)) ViewOption {
	return func(cfg *viewConfig) {
		cfg.observer = fn
	}
}

// WithViewLogger attaches a logger.
func WithViewLogger(logger zerolog.Logger) ViewOption {
	return func(cfg *viewConfig) {
		cfg.logger = logger
	}
}

// View is the sign-in page: the flow plus the fields rendering it.
type View struct {
	flow      *Flow
	spec      model.FormSpec
	rows      []*field.Field
	byName    map[string]*field.Field
	code      *field.Field
	countdown field.CountdownHandle
	templates rendertemplate.TemplateRenderer
	logger    zerolog.Logger
}

// NewView builds the sign-in page around flow and binds the code field's
// countdown into it.
func NewView(flow *Flow, opts ...ViewOption) (*View, error) {
	if flow == nil {
		return nil, errors.New("signin: flow is required")
	}
	cfg := viewConfig{
		brand:       defaultBrand,
		submitLabel: defaultSubmitLabel,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	var spec model.FormSpec
	if cfg.spec != nil {
		spec = *cfg.spec
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("signin: %w", err)
		}
	} else {
		loaded, err := DefaultFormSpec()
		if err != nil {
			return nil, err
		}
		spec = loaded
	}
	if spec.Title == "" {
		spec.Title = defaultSubmitLabel
	}
	if spec.Action == "" {
		spec.Action = defaultAction
	}

	engine, err := gotemplate.New(
		gotemplate.WithName("signin"),
		gotemplate.WithFS(embeddedTemplates),
		gotemplate.WithGlobalData(map[string]any{
			"brand":        cfg.brand,
			"submit_label": cfg.submitLabel,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("signin: configure templates: %w", err)
	}

	v := &View{
		flow:      flow,
		spec:      spec,
		byName:    make(map[string]*field.Field),
		templates: engine,
		logger:    cfg.logger,
	}
	if err := v.buildFields(cfg); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (v *View) buildFields(cfg viewConfig) error {
	for _, spec := range v.spec.Fields {
		opts := []field.Option{field.WithLogger(v.logger)}

		switch {
		case spec.Type == model.FieldTypeNone:
			button, err := v.templates.RenderString(submitButton, nil)
			if err != nil {
				return fmt.Errorf("signin: render submit button: %w", err)
			}
			opts = append(opts, field.WithChildren(button))
		case spec.Name == KeyEmail && spec.Type == model.FieldTypeText:
			opts = append(opts, field.WithEmit(func(value model.Value) {
				v.flow.SetEmail(model.FormatValue(value))
			}))
		case spec.Name == KeyCode && spec.Type == model.FieldTypeValidationCode:
			if cfg.countdown > 0 {
				spec.CountdownSeconds = cfg.countdown
			}
			opts = append(opts,
				field.WithEmit(func(value model.Value) {
					v.flow.SetCode(model.FormatValue(value))
				}),
				field.WithJudge(v.flow.JudgeEmail),
				field.WithOnClick(v.flow.SendValidationCode),
				field.WithCountdownObserver(cfg.observer),
			)
			if cfg.ticker != nil {
				opts = append(opts, field.WithTicker(cfg.ticker))
			}
		default:
			return fmt.Errorf("%w: %s field %q", ErrUnknownField, spec.Type, spec.Name)
		}

		f, err := field.New(spec, opts...)
		if err != nil {
			return fmt.Errorf("signin: build field %q: %w", spec.Name, err)
		}
		v.rows = append(v.rows, f)
		if spec.Name != "" {
			v.byName[spec.Name] = f
		}
		if spec.Type == model.FieldTypeValidationCode {
			v.code = f
		}
	}

	if _, ok := v.byName[KeyEmail]; !ok {
		return fmt.Errorf("signin: form spec has no %q text field", KeyEmail)
	}
	if v.code == nil {
		return fmt.Errorf("signin: form spec has no %q validationCode field", KeyCode)
	}
	handle, err := v.code.Countdown()
	if err != nil {
		return fmt.Errorf("signin: code countdown: %w", err)
	}
	v.countdown = handle
	v.flow.BindCountdown(handle)
	return nil
}

// Flow returns the flow behind the view.
func (v *View) Flow() *Flow {
	return v.flow
}

// Input relays a keystroke to the named field.
func (v *View) Input(name, raw string) error {
	f, ok := v.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f.Input(raw)
}

// SendCode clicks the send-code button. It reports whether a request was
// made; judge failures and active cooldowns report false with a nil error.
func (v *View) SendCode(ctx context.Context) (bool, error) {
	return v.code.SendCode(ctx)
}

// Do applies a posted field button press, "<verb>:<field>[:<arg>]", to the
// named field. form holds the rest of the submission.
func (v *View) Do(ctx context.Context, raw string, form url.Values) error {
	action, ok := field.ParseAction(raw)
	if !ok {
		return fmt.Errorf("%w: %q", field.ErrUnknownAction, raw)
	}
	f, ok := v.byName[action.Field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, action.Field)
	}
	return f.Do(ctx, action, form)
}

// Submit validates the form and completes sign-in.
func (v *View) Submit(ctx context.Context) error {
	return v.flow.Submit(ctx)
}

// Countdown returns the resend cooldown state.
func (v *View) Countdown() countdown.State {
	return v.countdown.State()
}

// Render renders the full sign-in page.
func (v *View) Render(_ context.Context) ([]byte, error) {
	form := v.flow.Form()
	errs := v.flow.Errors()

	rows := make([]string, 0, len(v.rows))
	for _, f := range v.rows {
		props := field.Props{}
		if name := f.Name(); name != "" {
			value, _ := form.Lookup(name)
			props.Value = value
			props.Error = errs.First(name)
		}
		html, err := f.Render(props)
		if err != nil {
			return nil, fmt.Errorf("signin: render page: %w", err)
		}
		rows = append(rows, html)
	}

	out, err := v.templates.RenderTemplate("templates/page.tmpl", map[string]any{
		"title":  v.spec.Title,
		"action": v.spec.Action,
		"rows":   rows,
	})
	if err != nil {
		return nil, fmt.Errorf("signin: render page: %w", err)
	}
	return []byte(out), nil
}

// Close stops the view's timers.
func (v *View) Close() {
	for _, f := range v.rows {
		f.Close()
	}
}

const submitButton = `<button type="submit" name="_action" value="submit" class="button">{{ submit_label }}</button>`
