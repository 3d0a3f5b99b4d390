// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/apperr"
	"github.com/holomush/holoauth/internal/auth"
)

const maxBodyBytes = 1 << 20

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, token, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, AuthResponse{Token: token, User: user})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, token, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, AuthResponse{Token: token, User: user})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		h.writeError(w, r, apperr.Unauthorized())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), claims)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, user)
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, apperr.NotFound("Not found"))
}

func (h *handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, apperr.MethodNotAllowed())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "Invalid JSON body"}).
			WithCause(oops.Code("HTTP_BODY_INVALID").Wrap(err))
	}
	return nil
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.DebugContext(r.Context(), "response write failed",
			"request_id", RequestIDFromContext(r.Context()), "error", err)
	}
}

// writeError renders err through the taxonomy and counts it by kind.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := h.logger.With("request_id", RequestIDFromContext(r.Context()))
	e := apperr.Write(r.Context(), w, logger, err)
	h.metrics.ObserveErrorResponse(e.Kind.String())
}
