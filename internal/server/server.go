// Package server hosts the sign-in page over HTTP. Each visitor gets its own
// signin.View, found again through a cookie, so field values, errors and the
// resend countdown survive between requests.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-signin/internal/devapi"
	"github.com/goliatone/go-signin/pkg/signin"
)

// Routes served by the host.
const (
	PathSignIn    = "/sign_in"
	PathSendCode  = "/sign_in/validation_code"
	PathCountdown = "/sign_in/countdown"
	PathHealth    = "/healthz"
	PathMetrics   = "/metrics"
	PathDevAPI    = "/api"
)

// CookieName carries the visitor's view id.
const CookieName = "signin_view"

// ViewFactory builds a fresh sign-in view for a new visitor.
type ViewFactory func() (*signin.View, error)

// Option configures the server.
type Option func(*Server)

// WithLogger attaches a logger used for requests and handler failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics enables Prometheus metrics served at path.
func WithMetrics(m *Metrics, path string) Option {
	return func(s *Server) {
		s.metrics = m
		if path = strings.TrimSpace(path); path != "" {
			s.metricsPath = path
		}
	}
}

// WithDevAPI mounts the development verification-code API under /api.
func WithDevAPI(api *devapi.API) Option {
	return func(s *Server) {
		s.devAPI = api
	}
}

// WithViewTTL sets how long idle views are kept.
func WithViewTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.viewTTL = ttl
	}
}

// WithMaxViews caps the number of stored views.
func WithMaxViews(n int) Option {
	return func(s *Server) {
		s.maxViews = n
	}
}

// WithSuccessRedirect sets where a valid submit redirects to.
func WithSuccessRedirect(path string) Option {
	return func(s *Server) {
		if path = strings.TrimSpace(path); path != "" {
			s.successRedirect = path
		}
	}
}

// WithSecureCookies marks the view cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secureCookies = secure
	}
}

// Server is the sign-in HTTP host.
type Server struct {
	newView         ViewFactory
	views           *ViewStore
	viewTTL         time.Duration
	maxViews        int
	metrics         *Metrics
	metricsPath     string
	devAPI          *devapi.API
	successRedirect string
	secureCookies   bool
	logger          zerolog.Logger
	router          chi.Router
}

// New builds the server around factory.
func New(factory ViewFactory, opts ...Option) (*Server, error) {
	if factory == nil {
		return nil, errors.New("server: view factory is required")
	}
	s := &Server{
		newView:         factory,
		viewTTL:         DefaultViewTTL,
		metricsPath:     PathMetrics,
		successRedirect: "/",
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}

	s.views = NewViewStore(s.viewTTL,
		WithCapacity(s.maxViews),
		WithStoreLogger(s.logger),
		WithEvictHook(func(string) { s.metrics.viewRemoved() }),
	)
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Views returns the per-visitor view store.
func (s *Server) Views() *ViewStore {
	return s.views
}

// Close releases every stored view.
func (s *Server) Close() {
	s.views.Close()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newLoggingMiddleware(s.logger, s.metricsPath))
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.middleware)
	}

	r.Get(PathHealth, s.handleHealth)
	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics.Handler())
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, PathSignIn, http.StatusFound)
	})
	r.Get(PathSignIn, s.handleShow)
	r.Post(PathSignIn, s.handlePost)
	r.Post(PathSendCode, s.handleSendCode)
	r.Get(PathCountdown, s.handleCountdown)

	if s.devAPI != nil {
		r.Mount(PathDevAPI, s.devAPI.Routes())
	}
	return r
}

// storedView returns the view behind the visitor's cookie, if any.
func (s *Server) storedView(r *http.Request) (string, *signin.View, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", nil, false
	}
	view, ok := s.views.Get(cookie.Value)
	return cookie.Value, view, ok
}

// readView returns the visitor's stored view or, for visitors without one, a
// fresh view that is not stored. release must be called when done.
func (s *Server) readView(r *http.Request) (view *signin.View, release func(), err error) {
	if _, view, ok := s.storedView(r); ok {
		return view, func() {}, nil
	}
	view, err = s.newView()
	if err != nil {
		return nil, nil, StatusError{Code: http.StatusInternalServerError, Err: err}
	}
	return view, view.Close, nil
}

// viewFor returns the visitor's view, creating one and setting the cookie
// when the visitor has none or it was evicted.
func (s *Server) viewFor(w http.ResponseWriter, r *http.Request) (string, *signin.View, error) {
	if id, view, ok := s.storedView(r); ok {
		return id, view, nil
	}

	view, err := s.newView()
	if err != nil {
		return "", nil, StatusError{Code: http.StatusInternalServerError, Err: err}
	}
	id := uuid.NewString()
	s.views.Put(id, view)
	s.metrics.viewAdded()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.viewTTL / time.Second),
	})
	s.logger.Debug().Str("view", id).Msg("sign-in view created")
	return id, view, nil
}

func (s *Server) dropView(w http.ResponseWriter, id string) {
	s.views.Delete(id)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func newLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == PathHealth || r.URL.Path == metricsPath {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
