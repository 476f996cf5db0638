package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-signin/internal/devapi"
	"github.com/goliatone/go-signin/pkg/apiclient"
	"github.com/goliatone/go-signin/pkg/countdown"
	"github.com/goliatone/go-signin/pkg/signin"
)

type idleTicker struct{ ch chan time.Time }

func (t *idleTicker) C() <-chan time.Time { return t.ch }
func (t *idleTicker) Stop()               {}

func newIdleTicker(time.Duration) countdown.Ticker {
	return &idleTicker{ch: make(chan time.Time)}
}

type harness struct {
	server *Server
	http   *httptest.Server
	client *http.Client
	api    *devapi.API
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	api, err := devapi.New(devapi.WithRejectedEmails("taken@b.com"))
	if err != nil {
		t.Fatalf("devapi: %v", err)
	}
	upstream := httptest.NewServer(api.Routes())
	t.Cleanup(upstream.Close)

	client := apiclient.New(apiclient.Config{BaseURL: upstream.URL, Timeout: 2 * time.Second})
	factory := func() (*signin.View, error) {
		return signin.NewView(signin.NewFlow(client), signin.WithViewTicker(newIdleTicker))
	}

	opts = append([]Option{WithDevAPI(api)}, opts...)
	srv, err := New(factory, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(srv.Close)

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &harness{
		server: srv,
		http:   hs,
		api:    api,
		client: &http.Client{
			Jar: newJar(t),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func newJar(t *testing.T) http.CookieJar {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return jar
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.http.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.http.URL+path, form)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func decodeSend(t *testing.T, body string) sendCodeResponse {
	t.Helper()
	var out sendCodeResponse
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return out
}

func TestShow_StoresViewOnFirstPost(t *testing.T) {
	h := newHarness(t)

	resp, body := h.get(t, PathSignIn)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "<title>登录</title>") || !strings.Contains(body, "发送验证码") {
		t.Fatalf("unexpected page:\n%s", body)
	}
	if len(resp.Cookies()) != 0 || h.server.Views().Len() != 0 {
		t.Fatalf("page load must not store a view, got %d views", h.server.Views().Len())
	}
	h.get(t, PathCountdown)
	if h.server.Views().Len() != 0 {
		t.Fatalf("countdown poll must not store a view, got %d", h.server.Views().Len())
	}

	h.post(t, PathSendCode, url.Values{"email": {"nope"}})
	if h.server.Views().Len() != 1 {
		t.Fatalf("expected one view, got %d", h.server.Views().Len())
	}
	h.get(t, PathSignIn)
	h.post(t, PathSendCode, url.Values{"email": {"nope"}})
	if h.server.Views().Len() != 1 {
		t.Fatalf("expected cookie to reuse the view, got %d views", h.server.Views().Len())
	}
}

func TestViews_CappedByMaxViews(t *testing.T) {
	h := newHarness(t, WithMaxViews(2))

	for i := 0; i < 3; i++ {
		h.client.Jar = newJar(t)
		h.post(t, PathSendCode, url.Values{"email": {"nope"}})
	}
	if n := h.server.Views().Len(); n != 2 {
		t.Fatalf("expected store capped at 2 views, got %d", n)
	}
}

func TestSendCode_Outcomes(t *testing.T) {
	h := newHarness(t)

	resp, body := h.post(t, PathSendCode, url.Values{"email": {"nope"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid email, got %d", resp.StatusCode)
	}
	got := decodeSend(t, body)
	if got.Sent || got.Errors.First(signin.KeyEmail) != signin.InvalidEmailMessage {
		t.Fatalf("unexpected response: %+v", got)
	}

	resp, body = h.post(t, PathSendCode, url.Values{"email": {"taken@b.com"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for rejected email, got %d", resp.StatusCode)
	}
	got = decodeSend(t, body)
	if diff := cmp.Diff([]string{devapi.RejectedMessage}, got.Errors.Get(signin.KeyEmail)); diff != "" {
		t.Fatalf("email errors mismatch (-want +got):\n%s", diff)
	}
	if got.Countdown.Running {
		t.Fatal("countdown must not start on a rejected request")
	}

	resp, body = h.post(t, PathSendCode, url.Values{"email": {"a@b.com"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	got = decodeSend(t, body)
	if !got.Sent {
		t.Fatalf("expected sent, got %+v", got)
	}
	if diff := cmp.Diff(countdown.State{Remaining: 60, Running: true}, got.Countdown); diff != "" {
		t.Fatalf("countdown mismatch (-want +got):\n%s", diff)
	}
	if h.api.Issued("a@b.com") != 1 {
		t.Fatalf("expected one issued code, got %d", h.api.Issued("a@b.com"))
	}

	resp, _ = h.post(t, PathSendCode, url.Values{"email": {"a@b.com"}})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while counting, got %d", resp.StatusCode)
	}

	resp, body = h.get(t, PathCountdown)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var state countdown.State
	if err := json.Unmarshal([]byte(body), &state); err != nil {
		t.Fatalf("decode countdown: %v", err)
	}
	if !state.Running {
		t.Fatalf("expected running countdown, got %+v", state)
	}
}

func TestPost_SendCodeActionRendersCooldown(t *testing.T) {
	h := newHarness(t)

	resp, body := h.post(t, PathSignIn, url.Values{
		"email":   {"a@b.com"},
		"_action": {"send_code:code"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "60秒后可重新发送") {
		t.Fatalf("expected cooldown caption:\n%s", body)
	}
}

func TestPost_SubmitInvalidThenValid(t *testing.T) {
	h := newHarness(t)

	resp, body := h.post(t, PathSignIn, url.Values{"_action": {"submit"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if strings.Count(body, "<span>必填</span>") != 2 {
		t.Fatalf("expected both fields required:\n%s", body)
	}

	resp, _ = h.post(t, PathSignIn, url.Values{
		"email":   {"a@b.com"},
		"code":    {"123456"},
		"_action": {"submit"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if h.server.Views().Len() != 0 {
		t.Fatalf("expected view dropped after submit, got %d", h.server.Views().Len())
	}
}

func TestPost_UnknownAction(t *testing.T) {
	h := newHarness(t)
	for _, action := range []string{"launch", "date_open:email", "emoji:birthday:🐼"} {
		resp, _ := h.post(t, PathSignIn, url.Values{"_action": {action}})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", action, resp.StatusCode)
		}
	}
}

func TestHealthMetricsAndDevAPI(t *testing.T) {
	h := newHarness(t, WithMetrics(NewMetrics(), ""))

	resp, _ := h.get(t, PathHealth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", resp.StatusCode)
	}

	h.post(t, PathSendCode, url.Values{"email": {"a@b.com"}})

	resp, body := h.get(t, PathMetrics)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", resp.StatusCode)
	}
	for _, want := range []string{
		`signin_validation_code_requests_total{outcome="sent"} 1`,
		"signin_active_views 1",
		"signin_http_requests_total",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics to contain %q", want)
		}
	}

	resp, err := h.client.Post(h.http.URL+PathDevAPI+devapi.ValidationCodesPath, "application/json", strings.NewReader(`{"email":"x@y.com"}`))
	if err != nil {
		t.Fatalf("dev api: %v", err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected dev API to be mounted, got %d", resp.StatusCode)
	}
}

func TestNew_RequiresFactory(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error without factory")
	}
}
