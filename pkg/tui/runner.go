// Package tui drives the sign-in flow and declarative forms from a terminal
// through survey prompts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/pkg/apiclient"
	"github.com/goliatone/go-signin/pkg/signin"
)

const (
	emailPrompt  = "邮箱地址"
	codePrompt   = "验证码"
	codeHelp     = "留空并回车可重新发送验证码"
	sentMessage  = "验证码已发送至 %s"
	waitMessage  = "%d秒后可重新发送"
	resendPrompt = "重新发送验证码至 %s?"
)

// Runner walks a user through sign-in: email, code request, code entry and
// submit.
type Runner struct {
	view        *signin.View
	driver      PromptDriver
	theme       Theme
	maxAttempts int
	logger      zerolog.Logger
}

// New creates a runner for view. Without WithPromptDriver it prompts on the
// real terminal.
func New(view *signin.View, opts ...Option) (*Runner, error) {
	if view == nil {
		return nil, errors.New("tui: view is required")
	}
	r := &Runner{
		view:        view,
		theme:       DefaultTheme,
		maxAttempts: DefaultMaxAttempts,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r, nil
}

// Run prompts until sign-in succeeds and returns the submitted form.
func (r *Runner) Run(ctx context.Context) (signin.Form, error) {
	if err := r.requestCode(ctx); err != nil {
		return signin.Form{}, err
	}
	if err := r.enterCode(ctx); err != nil {
		return signin.Form{}, err
	}
	return r.view.Flow().Form(), nil
}

func (r *Runner) requestCode(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if attempt > r.maxAttempts {
			return ErrTooManyAttempts
		}
		email, err := r.driver.Input(ctx, InputConfig{
			Message: emailPrompt,
			Default: r.view.Flow().Form().Email,
		})
		if err != nil {
			return err
		}
		if err := r.view.Input(signin.KeyEmail, strings.TrimSpace(email)); err != nil {
			return err
		}

		sent, err := r.view.SendCode(ctx)
		switch {
		case err != nil && apiclient.IsUnprocessable(err):
			if err := r.reportErrors(ctx, signin.KeyEmail); err != nil {
				return err
			}
			continue
		case err != nil:
			return err
		case !sent:
			if err := r.reportErrors(ctx, signin.KeyEmail); err != nil {
				return err
			}
			continue
		}

		r.logger.Debug().Str("email", email).Msg("validation code sent")
		return r.info(ctx, fmt.Sprintf(sentMessage, strings.TrimSpace(email)))
	}
}

func (r *Runner) enterCode(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if attempt > r.maxAttempts {
			return ErrTooManyAttempts
		}
		code, err := r.driver.Input(ctx, InputConfig{Message: codePrompt, Help: codeHelp})
		if err != nil {
			return err
		}
		code = strings.TrimSpace(code)

		if code == "" {
			if err := r.resend(ctx); err != nil {
				return err
			}
			continue
		}

		if err := r.view.Input(signin.KeyCode, code); err != nil {
			return err
		}
		err = r.view.Submit(ctx)
		if errors.Is(err, signin.ErrInvalid) {
			if err := r.reportErrors(ctx, signin.KeyEmail, signin.KeyCode); err != nil {
				return err
			}
			continue
		}
		return err
	}
}

func (r *Runner) resend(ctx context.Context) error {
	if state := r.view.Countdown(); state.Running {
		return r.info(ctx, fmt.Sprintf(waitMessage, state.Remaining))
	}
	email := r.view.Flow().Form().Email
	ok, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: fmt.Sprintf(resendPrompt, email),
		Default: true,
	})
	if err != nil || !ok {
		return err
	}
	sent, err := r.view.SendCode(ctx)
	switch {
	case err != nil && apiclient.IsUnprocessable(err):
		return r.reportErrors(ctx, signin.KeyEmail)
	case err != nil:
		return err
	case !sent:
		return r.reportErrors(ctx, signin.KeyEmail)
	}
	return r.info(ctx, fmt.Sprintf(sentMessage, email))
}

func (r *Runner) reportErrors(ctx context.Context, keys ...string) error {
	errs := r.view.Flow().Errors()
	for _, key := range keys {
		if msg := errs.First(key); msg != "" {
			if err := r.driver.Info(ctx, r.theme.ErrorPrefix+label(key)+": "+msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func label(key string) string {
	switch key {
	case signin.KeyEmail:
		return emailPrompt
	case signin.KeyCode:
		return codePrompt
	default:
		return key
	}
}
