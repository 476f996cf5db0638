// Package devapi serves a development stand-in for the verification-code
// API. Requests are validated against an embedded OpenAPI document and
// rejected with 422 and per-field errors, the shape the sign-in flow merges.
package devapi

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/pkg/signin"
)

//go:embed openapi.yaml
var specYAML []byte

// ValidationCodesPath is the route, relative to the mount point, codes are
// requested from.
const ValidationCodesPath = "/validation_codes"

// RejectedMessage is returned for addresses configured as rejected.
const RejectedMessage = "邮箱已被占用"

// BaseKey collects errors not tied to a single field.
const BaseKey = "base"

const maxBody = 1 << 16

// Option configures the API.
type Option func(*API)

// WithRejectedEmails makes the API answer 422 for the given addresses.
func WithRejectedEmails(emails ...string) Option {
	return func(a *API) {
		for _, email := range emails {
			if email = normalizeEmail(email); email != "" {
				a.rejected[email] = struct{}{}
			}
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// API is the development verification-code service.
type API struct {
	doc      *openapi3.T
	route    *routers.Route
	rejected map[string]struct{}
	logger   zerolog.Logger

	mu     sync.Mutex
	issued map[string]int
}

// New loads the embedded OpenAPI document and builds the API.
func New(opts ...Option) (*API, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("devapi: load openapi: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("devapi: validate openapi: %w", err)
	}

	item := doc.Paths.Value(ValidationCodesPath)
	if item == nil || item.Post == nil {
		return nil, fmt.Errorf("devapi: openapi document has no POST %s", ValidationCodesPath)
	}

	a := &API{
		doc: doc,
		route: &routers.Route{
			Spec:      doc,
			Path:      ValidationCodesPath,
			PathItem:  item,
			Method:    http.MethodPost,
			Operation: item.Post,
		},
		rejected: make(map[string]struct{}),
		logger:   zerolog.Nop(),
		issued:   make(map[string]int),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a, nil
}

// Routes returns the API router, to be mounted by the host.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post(ValidationCodesPath, a.handleValidationCodes)
	r.Get("/openapi.yaml", a.handleSpec)
	return r
}

// Issued returns how many codes were sent to email.
func (a *API) Issued(email string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issued[normalizeEmail(email)]
}

type validationCodeRequest struct {
	Email string `json:"email"`
}

type errorResponse struct {
	Errors map[string][]string `json:"errors"`
}

func (a *API) handleValidationCodes(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeErrors(w, map[string][]string{BaseKey: {"could not read request body"}})
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	input := &openapi3filter.RequestValidationInput{
		Request: r,
		Route:   a.route,
		Options: &openapi3filter.Options{MultiError: true},
	}
	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		fields := fieldErrors(err)
		a.logger.Info().Strs("fields", sortedKeys(fields)).Msg("validation code request invalid")
		writeErrors(w, fields)
		return
	}

	var req validationCodeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErrors(w, map[string][]string{BaseKey: {err.Error()}})
		return
	}

	email := normalizeEmail(req.Email)
	if _, rejected := a.rejected[email]; rejected {
		a.logger.Info().Str("email", signin.MaskEmail(email)).Msg("validation code request rejected")
		writeErrors(w, map[string][]string{"email": {RejectedMessage}})
		return
	}

	a.mu.Lock()
	a.issued[email]++
	count := a.issued[email]
	a.mu.Unlock()

	a.logger.Info().Str("email", signin.MaskEmail(email)).Int("issued", count).Msg("validation code issued")
	writeJSON(w, http.StatusOK, validationCodeRequest{Email: req.Email})
}

func (a *API) handleSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(specYAML)
}

// fieldErrors flattens kin-openapi validation errors into per-field messages
// keyed by the first JSON pointer segment of the offending value.
func fieldErrors(err error) map[string][]string {
	out := make(map[string][]string)
	collectFieldErrors(err, out)
	if len(out) == 0 {
		out[BaseKey] = []string{err.Error()}
	}
	return out
}

func collectFieldErrors(err error, out map[string][]string) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, inner := range multi {
			collectFieldErrors(inner, out)
		}
		return
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		key := BaseKey
		if pointer := schemaErr.JSONPointer(); len(pointer) > 0 {
			key = pointer[0]
		}
		out[key] = append(out[key], schemaErr.Reason)
		return
	}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Reason != "" {
		out[BaseKey] = append(out[BaseKey], reqErr.Reason)
		return
	}
	out[BaseKey] = append(out[BaseKey], err.Error())
}

func writeErrors(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: fields})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
