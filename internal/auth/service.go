// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/apperr"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides registration, login and identity lookup.
type Service struct {
	users  UserRepository
	hasher CredentialHasher
	tokens *TokenService
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for audit events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service.
func NewService(users UserRepository, hasher CredentialHasher, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("credential hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token service is required")
	}
	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, string, error) {
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, "", err
	}

	user, err := NewUser(in.Username, in.Email, hash)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, token, nil
}

// Login authenticates by username or email and returns the user with a
// fresh token. Unknown logins and wrong passwords are indistinguishable to
// the caller, in both the error and the time taken.
func (s *Service) Login(ctx context.Context, in LoginInput) (*User, string, error) {
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	user, lookupErr := s.users.GetByLogin(ctx, in.Login)

	var targetHash string
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by login").
			Wrap(lookupErr)
	}

	// Always verify so the response time does not depend on existence.
	valid, verifyErr := s.hasher.Verify(ctx, in.Password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, "", apperr.InvalidCredentials()
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}
	if !userExists || !valid {
		return nil, "", apperr.InvalidCredentials()
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return user, token, nil
}

// CurrentUser loads the account identified by validated claims.
func (s *Service) CurrentUser(ctx context.Context, claims Claims) (*User, error) {
	user, err := s.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("User not found").WithCause(err)
		}
		return nil, oops.Code("AUTH_CURRENT_USER_FAILED").
			With("operation", "get user by id").
			With("user_id", claims.SubjectID.String()).
			Wrap(err)
	}
	return user, nil
}
