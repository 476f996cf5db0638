package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/goliatone/go-signin/pkg/apiclient"
	"github.com/goliatone/go-signin/pkg/countdown"
	"github.com/goliatone/go-signin/pkg/field"
	"github.com/goliatone/go-signin/pkg/signin"
	"github.com/goliatone/go-signin/pkg/validation"
)

// Form field carrying the button that submitted the page.
const actionField = "_action"

const actionSubmit = "submit"

type sendCodeResponse struct {
	Sent      bool              `json:"sent"`
	Errors    validation.Errors `json:"errors"`
	Countdown countdown.State   `json:"countdown"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleShow renders the page. Visitors get a stored view on their first
// POST, so page loads alone never fill the store.
func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	view, release, err := s.readView(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer release()
	s.renderPage(w, r, view, http.StatusOK)
}

// handlePost serves the page form. The clicked button arrives as _action:
// empty or "submit" submits, "<verb>:<field>" is a field button press.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, StatusError{Code: http.StatusBadRequest, Err: err})
		return
	}
	id, view, err := s.viewFor(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := applyInputs(view, r, signin.KeyEmail, signin.KeyCode); err != nil {
		s.fail(w, StatusError{Code: http.StatusBadRequest, Err: err})
		return
	}

	if action := r.PostForm.Get(actionField); action != "" && action != actionSubmit {
		s.fieldAction(w, r, view, action)
		return
	}

	err = view.Submit(r.Context())
	switch {
	case err == nil:
		s.metrics.submission(OutcomeOK)
		s.logger.Info().Str("view", id).Msg("sign-in form submitted")
		s.dropView(w, id)
		http.Redirect(w, r, s.successRedirect, http.StatusSeeOther)
	case errors.Is(err, signin.ErrInvalid):
		s.metrics.submission(OutcomeInvalid)
		s.renderPage(w, r, view, http.StatusUnprocessableEntity)
	default:
		s.metrics.submission(OutcomeError)
		s.logger.Error().Err(err).Str("view", id).Msg("sign-in submit failed")
		s.renderPage(w, r, view, statusOf(err))
	}
}

// fieldAction applies a field button press and re-renders the page. Code
// requests keep their outcome status.
func (s *Server) fieldAction(w http.ResponseWriter, r *http.Request, view *signin.View, raw string) {
	if a, ok := field.ParseAction(raw); ok && a.Verb == field.VerbSendCode {
		status, _ := s.sendCode(r.Context(), view)
		s.renderPage(w, r, view, status)
		return
	}
	if err := view.Do(r.Context(), raw, r.PostForm); err != nil {
		s.fail(w, StatusError{Code: http.StatusBadRequest, Err: err})
		return
	}
	s.renderPage(w, r, view, http.StatusOK)
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.fail(w, StatusError{Code: http.StatusBadRequest, Err: err})
		return
	}
	_, view, err := s.viewFor(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := applyInputs(view, r, signin.KeyEmail); err != nil {
		s.fail(w, StatusError{Code: http.StatusBadRequest, Err: err})
		return
	}

	status, sent := s.sendCode(r.Context(), view)
	writeJSON(w, status, sendCodeResponse{
		Sent:      sent,
		Errors:    view.Flow().Errors(),
		Countdown: view.Countdown(),
	})
}

func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	view, release, err := s.readView(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, view.Countdown())
}

// sendCode clicks the view's send button and maps the outcome to a status.
func (s *Server) sendCode(ctx context.Context, view *signin.View) (int, bool) {
	sent, err := view.SendCode(ctx)
	switch {
	case errors.Is(err, signin.ErrSendInFlight):
		s.metrics.codeRequest(OutcomeInFlight)
		return http.StatusConflict, false
	case apiclient.IsUnprocessable(err):
		s.metrics.codeRequest(OutcomeRejected)
		return http.StatusUnprocessableEntity, false
	case err != nil:
		s.metrics.codeRequest(OutcomeError)
		s.logger.Error().Err(err).Msg("validation code request failed")
		return http.StatusBadGateway, false
	case !sent:
		s.metrics.codeRequest(OutcomeBlocked)
		if view.Countdown().Running {
			return http.StatusTooManyRequests, false
		}
		return http.StatusUnprocessableEntity, false
	}
	s.metrics.codeRequest(OutcomeSent)
	return http.StatusOK, true
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, view *signin.View, status int) {
	page, err := view.Render(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	if statusOf(err) >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, err)
}

// applyInputs relays posted values for the given keys. Keys absent from the
// form leave the view untouched.
func applyInputs(view *signin.View, r *http.Request, keys ...string) error {
	for _, key := range keys {
		values, ok := r.PostForm[key]
		if !ok || len(values) == 0 {
			continue
		}
		if err := view.Input(key, values[0]); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}
