// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"

	"github.com/holomush/holoauth/internal/apperr"
	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/observability"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const unmatchedRoute = "unmatched"

// observe assigns a request ID, then logs and counts the request once the
// wrapped handler returns.
func (h *handler) observe(next http.Handler, router *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = ulid.Make().String()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(withRequestID(r.Context(), id))

		m := httpsnoop.CaptureMetrics(next, w, r)

		route := routeTemplate(router, r)
		h.metrics.ObserveRequest(route, m.Code)
		h.logger.InfoContext(r.Context(), "request",
			"request_id", id,
			"method", r.Method,
			"route", route,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration,
		)
	})
}

// routeTemplate returns the matched path template so metric labels stay
// bounded.
func routeTemplate(router *mux.Router, r *http.Request) string {
	var match mux.RouteMatch
	if !router.Match(r, &match) || match.Route == nil {
		return unmatchedRoute
	}
	tmpl, err := match.Route.GetPathTemplate()
	if err != nil {
		return unmatchedRoute
	}
	return tmpl
}

// requireBearer authenticates the request with an "Authorization: Bearer"
// token and stores the claims in the request context.
func (h *handler) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			h.writeError(w, r, apperr.MissingCredentials())
			return
		}

		scheme, token, _ := strings.Cut(header, " ")
		if !strings.EqualFold(scheme, "Bearer") {
			h.writeError(w, r, apperr.Unauthorized())
			return
		}

		claims, err := h.tokens.Validate(strings.TrimSpace(token))
		h.metrics.ObserveTokenValidation(tokenOutcome(err))
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func tokenOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeValid
	case errors.Is(err, auth.ErrTokenExpired):
		return observability.OutcomeExpired
	case errors.Is(err, auth.ErrTokenSignature):
		return observability.OutcomeSignature
	default:
		return observability.OutcomeMalformed
	}
}
