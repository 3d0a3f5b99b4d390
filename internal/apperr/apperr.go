// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package apperr defines the closed set of error kinds surfaced to HTTP
// clients and the mapping from each kind to a status code and a user-safe
// message.
//
// Every failure that reaches a response writer is collapsed into exactly one
// [Kind] by [Classify]. Kinds that map to 5xx carry their full cause for
// server-side logging only; the client sees a generic message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies a failure category.
type Kind int

// Error kinds. The zero value is KindInternal so an unclassified error is
// always treated as a server fault.
const (
	KindInternal Kind = iota
	KindStorageConflict
	KindStorageConstraint
	KindStorageOther
	KindAuthFailed
	KindInvalidCredentials
	KindTokenInvalid
	KindMissingCredentials
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindHashing
	KindMethodNotAllowed
)

var kindNames = [...]string{
	KindInternal:           "internal",
	KindStorageConflict:    "storage_conflict",
	KindStorageConstraint:  "storage_constraint",
	KindStorageOther:       "storage_other",
	KindAuthFailed:         "auth_failed",
	KindInvalidCredentials: "invalid_credentials",
	KindTokenInvalid:       "token_invalid",
	KindMissingCredentials: "missing_credentials",
	KindUnauthorized:       "unauthorized",
	KindForbidden:          "forbidden",
	KindNotFound:           "not_found",
	KindConflict:           "conflict",
	KindValidation:         "validation_failed",
	KindHashing:            "hashing_internal",
	KindMethodNotAllowed:   "method_not_allowed",
}

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindStorageConflict, KindConflict:
		return http.StatusConflict
	case KindStorageConstraint, KindMissingCredentials, KindValidation:
		return http.StatusBadRequest
	case KindAuthFailed, KindInvalidCredentials, KindTokenInvalid, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified failure. Message is the caller-supplied display text
// for kinds whose message policy allows it; the cause is never shown to
// clients.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

// Error implements error. The text includes the cause for logging.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// PublicMessage returns the client-facing message for the error.
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindStorageConflict:
		return joinDetail("Resource already exists.", e.Message)
	case KindStorageConstraint:
		return joinDetail("Invalid reference to another resource.", e.Message)
	case KindStorageOther:
		return "Database error"
	case KindAuthFailed, KindInvalidCredentials:
		return "Invalid credentials"
	case KindTokenInvalid:
		return "Invalid or expired token"
	case KindMissingCredentials:
		return "Missing credentials"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return orDefault(e.Message, "Not found")
	case KindConflict:
		return orDefault(e.Message, "Conflict")
	case KindValidation:
		return validationMessage(e.Fields)
	case KindMethodNotAllowed:
		return "Method not allowed"
	default:
		return "Internal server error"
	}
}

func joinDetail(prefix, detail string) string {
	if detail == "" {
		return prefix
	}
	return prefix + " " + detail
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func validationMessage(fields []FieldError) string {
	if len(fields) == 0 {
		return "Validation failed"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, cause: err}
}

// Hashing wraps a key-derivation failure, including a corrupt stored hash.
func Hashing(err error) *Error {
	return &Error{Kind: KindHashing, cause: err}
}

// AuthFailed reports a failed authentication. The reason is logged but never
// sent to the client.
func AuthFailed(reason string) *Error {
	return &Error{Kind: KindAuthFailed, cause: errors.New(reason)}
}

// InvalidCredentials reports a wrong login or password without saying which.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials}
}

// TokenInvalid reports a token that is malformed, forged or expired.
func TokenInvalid(cause error) *Error {
	return &Error{Kind: KindTokenInvalid, cause: cause}
}

// MissingCredentials reports a request without any credentials.
func MissingCredentials() *Error {
	return &Error{Kind: KindMissingCredentials}
}

// Unauthorized reports a request that is not authenticated.
func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized}
}

// Forbidden reports an authenticated request that is not allowed.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden}
}

// NotFound reports a missing resource. msg is shown to the client.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict reports a domain-level conflict. detail is shown to the client.
func Conflict(detail string) *Error {
	return &Error{Kind: KindConflict, Message: detail}
}

// MethodNotAllowed reports a known path requested with the wrong method.
func MethodNotAllowed() *Error {
	return &Error{Kind: KindMethodNotAllowed}
}

// Validation reports request payload problems.
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Fields: fields}
}

// WithCause returns a copy of e carrying err as its cause. e is left
// unchanged.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.cause = err
	return &c
}
