package tui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signin/pkg/apiclient"
	"github.com/goliatone/go-signin/pkg/countdown"
	"github.com/goliatone/go-signin/pkg/signin"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	infoMessages []string
	inputPos     int
	selectPos    int
	confirmPos   int
	inputErr     error
	confirmMsgs  []string
	beforeInput  func(pos int)
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.beforeInput != nil {
		s.beforeInput(s.inputPos)
	}
	if s.inputErr != nil {
		return "", s.inputErr
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.confirmMsgs = append(s.confirmMsgs, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type idleTicker struct{ ch chan time.Time }

func (t *idleTicker) C() <-chan time.Time { return t.ch }
func (t *idleTicker) Stop()               {}

func newIdleTicker(time.Duration) countdown.Ticker {
	return &idleTicker{ch: make(chan time.Time)}
}

// burstTicker delivers every tick up front so a countdown finishes at once.
type burstTicker struct{ ch chan time.Time }

func (t *burstTicker) C() <-chan time.Time { return t.ch }
func (t *burstTicker) Stop()               {}

func newBurstTicker(time.Duration) countdown.Ticker {
	ch := make(chan time.Time, countdown.DefaultStart)
	for i := 0; i < countdown.DefaultStart; i++ {
		ch <- time.Time{}
	}
	return &burstTicker{ch: ch}
}

type fixture struct {
	view      *signin.View
	requests  *atomic.Int32
	submitted *signin.Form
}

func newFixture(t *testing.T, opts ...signin.ViewOption) fixture {
	t.Helper()
	requests := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@b.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":{"email":["taken"]}}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	submitted := &signin.Form{}
	client := apiclient.New(apiclient.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	flow := signin.NewFlow(client, signin.WithAuthenticator(signin.AuthenticatorFunc(
		func(_ context.Context, form signin.Form) error {
			*submitted = form
			return nil
		})))
	opts = append([]signin.ViewOption{signin.WithViewTicker(newIdleTicker)}, opts...)
	view, err := signin.NewView(flow, opts...)
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	t.Cleanup(view.Close)
	return fixture{view: view, requests: requests, submitted: submitted}
}

func TestRun_InvalidEmailThenResendThenSubmit(t *testing.T) {
	fx := newFixture(t)
	driver := &stubDriver{inputs: []string{"bad", "a@b.com", "", "123456"}}
	r, err := New(fx.view, WithPromptDriver(driver), WithTheme(Theme{}))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	form, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := signin.Form{Email: "a@b.com", Code: "123456"}
	if diff := cmp.Diff(want, form); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, *fx.submitted); diff != "" {
		t.Fatalf("submitted mismatch (-want +got):\n%s", diff)
	}
	if n := fx.requests.Load(); n != 1 {
		t.Fatalf("expected one code request, got %d", n)
	}

	wantInfo := []string{
		"邮箱地址: " + signin.InvalidEmailMessage,
		"验证码已发送至 a@b.com",
		"60秒后可重新发送",
	}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ResendAsksForConfirmation(t *testing.T) {
	fx := newFixture(t, signin.WithViewTicker(newBurstTicker))
	driver := &stubDriver{
		inputs:  []string{"a@b.com", "", "", "123456"},
		confirm: []bool{false, true},
	}
	driver.beforeInput = func(int) {
		deadline := time.Now().Add(2 * time.Second)
		for fx.view.Countdown().Running {
			if time.Now().After(deadline) {
				t.Fatal("countdown did not finish")
			}
			time.Sleep(time.Millisecond)
		}
	}
	r, err := New(fx.view, WithPromptDriver(driver), WithTheme(Theme{}))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := fx.requests.Load(); n != 2 {
		t.Fatalf("expected two code requests, got %d", n)
	}
	wantConfirm := []string{"重新发送验证码至 a@b.com?", "重新发送验证码至 a@b.com?"}
	if diff := cmp.Diff(wantConfirm, driver.confirmMsgs); diff != "" {
		t.Fatalf("confirm prompts mismatch (-want +got):\n%s", diff)
	}
	wantInfo := []string{"验证码已发送至 a@b.com", "验证码已发送至 a@b.com"}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_RejectedEmailIsReported(t *testing.T) {
	fx := newFixture(t)
	driver := &stubDriver{inputs: []string{"taken@b.com", "a@b.com", "1"}}
	r, err := New(fx.view, WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := fx.requests.Load(); n != 2 {
		t.Fatalf("expected two code requests, got %d", n)
	}
	if len(driver.infoMessages) == 0 || !strings.Contains(driver.infoMessages[0], "taken") {
		t.Fatalf("expected server error to be reported, got %v", driver.infoMessages)
	}
	if !strings.HasPrefix(driver.infoMessages[0], DefaultTheme.ErrorPrefix) {
		t.Fatalf("expected error prefix, got %q", driver.infoMessages[0])
	}
}

func TestRun_TooManyAttempts(t *testing.T) {
	fx := newFixture(t)
	driver := &stubDriver{inputs: []string{"x", "y", "z"}}
	r, err := New(fx.view, WithPromptDriver(driver), WithMaxAttempts(2))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
	if driver.inputPos != 2 {
		t.Fatalf("expected two prompts, got %d", driver.inputPos)
	}
}

func TestRun_Aborted(t *testing.T) {
	fx := newFixture(t)
	r, err := New(fx.view, WithPromptDriver(&stubDriver{inputErr: ErrAborted}))
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestNew_RequiresView(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil view")
	}
}
