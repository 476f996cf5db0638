package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-signin/pkg/emoji"
	"github.com/goliatone/go-signin/pkg/field"
	"github.com/goliatone/go-signin/pkg/model"
)

// Fill prompts for every named field of spec and returns the values the
// fields emitted, keyed by field name. Each answer goes through the field's
// own event so the collected values match what the web form would emit.
func Fill(ctx context.Context, driver PromptDriver, spec model.FormSpec) (map[string]string, error) {
	if driver == nil {
		return nil, errors.New("tui: prompt driver is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}

	values := make(map[string]string, len(spec.Fields))
	for _, fs := range spec.Fields {
		if fs.Type == model.FieldTypeNone {
			continue
		}
		name := fs.Name
		f, err := field.New(fs, field.WithEmit(func(v model.Value) {
			values[name] = model.FormatValue(v)
		}))
		if err != nil {
			return nil, err
		}
		err = promptField(ctx, driver, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("tui: field %q: %w", name, err)
		}
	}
	return values, nil
}

func promptField(ctx context.Context, driver PromptDriver, f *field.Field) error {
	spec := f.Spec()
	message := spec.Label
	if message == "" {
		message = spec.Name
	}

	switch spec.Type {
	case model.FieldTypeText, model.FieldTypeValidationCode:
		raw, err := driver.Input(ctx, InputConfig{Message: message, Help: spec.Placeholder})
		if err != nil {
			return err
		}
		return f.Input(raw)

	case model.FieldTypeDate:
		raw, err := driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   time.Now().Format(model.DateLayout),
			Help:      model.DateLayout,
			Validator: validDate,
		})
		if err != nil {
			return err
		}
		return f.ConfirmString(raw)

	case model.FieldTypeSelect:
		texts := make([]string, len(spec.Options))
		for i, opt := range spec.Options {
			texts[i] = opt.Text
		}
		idx, err := driver.Select(ctx, SelectConfig{Message: message, Options: texts})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(spec.Options) {
			return fmt.Errorf("%w: index %d", field.ErrUnknownOption, idx)
		}
		return f.Choose(spec.Options[idx].Value)

	case model.FieldTypeEmojiSelect:
		sign, err := pickEmoji(ctx, driver, message)
		if err != nil {
			return err
		}
		return f.Pick(sign)
	}
	return nil
}

func pickEmoji(ctx context.Context, driver PromptDriver, message string) (string, error) {
	picker, err := emoji.NewPicker()
	if err != nil {
		return "", err
	}
	groups := picker.Groups()
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	gi, err := driver.Select(ctx, SelectConfig{Message: message, Options: names})
	if err != nil {
		return "", err
	}
	if gi < 0 || gi >= len(groups) {
		return "", fmt.Errorf("%w: group %d", field.ErrUnknownOption, gi)
	}
	signs := groups[gi].Emojis
	ei, err := driver.Select(ctx, SelectConfig{Message: groups[gi].Name, Options: signs, PageSize: len(signs)})
	if err != nil {
		return "", err
	}
	if ei < 0 || ei >= len(signs) {
		return "", fmt.Errorf("%w: emoji %d", field.ErrUnknownOption, ei)
	}
	return signs[ei], nil
}

func validDate(raw string) error {
	if _, err := time.Parse(model.DateLayout, raw); err != nil {
		return fmt.Errorf("日期格式应为 %s", model.DateLayout)
	}
	return nil
}
