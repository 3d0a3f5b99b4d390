// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/apperr"
)

// Registration constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
)

// User is a registered account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a User with a fresh ID. Inputs are expected to have
// passed RegisterInput.Validate.
func NewUser(username, email, passwordHash string) (*User, error) {
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID").Errorf("password hash cannot be empty")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, oops.Code("USER_ID_FAILED").Wrap(err)
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Duplicate usernames or emails surface as
	// storage errors that classify as apperr.KindStorageConflict.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByLogin retrieves a user whose username or email matches login,
	// case-insensitively. Returns ErrNotFound if absent.
	GetByLogin(ctx context.Context, login string) (*User, error)
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns an apperr.KindValidation error listing every failing
// field, or nil.
func (in RegisterInput) Validate() error {
	var fields []apperr.FieldError
	if n := utf8.RuneCountInString(in.Username); n < MinUsernameLength || n > MaxUsernameLength {
		fields = append(fields, apperr.FieldError{
			Field:   "username",
			Message: "Username must be between 3 and 50 characters",
		})
	}
	if !validEmail(in.Email) {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "Invalid email format"})
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		fields = append(fields, apperr.FieldError{
			Field:   "password",
			Message: "Password must be at least 8 characters",
		})
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

// LoginInput is the payload for authenticating.
type LoginInput struct {
	// Login is a username or an email address.
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Validate returns an apperr.KindValidation error or nil.
func (in LoginInput) Validate() error {
	if strings.TrimSpace(in.Login) == "" {
		return apperr.Validation(apperr.FieldError{Field: "login", Message: "Login identifier cannot be empty"})
	}
	return nil
}

// validEmail accepts a bare addr-spec such as a@b.com. Display names and
// angle brackets are rejected.
func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1
}
