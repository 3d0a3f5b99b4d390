// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/observability"
)

// AuthService is the account logic behind the routes.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.User, string, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.User, string, error)
	CurrentUser(ctx context.Context, claims auth.Claims) (*auth.User, error)
}

// TokenValidator checks bearer tokens.
type TokenValidator interface {
	Validate(token string) (auth.Claims, error)
}

// Route paths.
const (
	PathRegister = "/api/auth/register"
	PathLogin    = "/api/auth/login"
	PathMe       = "/api/auth/me"
)

// Server timeouts for the API listener.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 120 * time.Second
)

// Option configures the router.
type Option func(*handler)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records request, error and token outcomes in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *handler) {
		h.metrics = m
	}
}

type handler struct {
	service AuthService
	tokens  TokenValidator
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRouter builds the API handler.
func NewRouter(service AuthService, tokens TokenValidator, opts ...Option) http.Handler {
	h := &handler{
		service: service,
		tokens:  tokens,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	r.HandleFunc(PathRegister, h.register).Methods(http.MethodPost)
	r.HandleFunc(PathLogin, h.login).Methods(http.MethodPost)
	r.Handle(PathMe, h.requireBearer(http.HandlerFunc(h.me))).Methods(http.MethodGet)

	return otelhttp.NewHandler(h.observe(r, r), "holoauth.api")
}

// NewServer returns an HTTP server for handler with the API timeouts set.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
