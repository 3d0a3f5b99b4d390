// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/holoauth/internal/apperr"
	"github.com/holomush/holoauth/internal/apperr/apperrtest"
	"github.com/holomush/holoauth/internal/auth"
	"github.com/holomush/holoauth/internal/auth/mocks"
)

func newService(t *testing.T, users auth.UserRepository, hasher auth.CredentialHasher) (*auth.Service, *auth.TokenService) {
	t.Helper()
	tokens := newTokenService(t)
	svc, err := auth.NewService(users, hasher, tokens, auth.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	require.NoError(t, err)
	return svc, tokens
}

func storedUser(t *testing.T, hash string) *auth.User {
	t.Helper()
	u, err := auth.NewUser("alice", "a@b.com", hash)
	require.NoError(t, err)
	return u
}

func TestNewService_NilDependencies(t *testing.T) {
	tokens := newTokenService(t)

	tests := []struct {
		name        string
		users       auth.UserRepository
		hasher      auth.CredentialHasher
		tokens      *auth.TokenService
		expectError string
	}{
		{"nil users repository", nil, mocks.NewMockCredentialHasher(t), tokens, "users repository is required"},
		{"nil hasher", mocks.NewMockUserRepository(t), nil, tokens, "credential hasher is required"},
		{"nil token service", mocks.NewMockUserRepository(t), mocks.NewMockCredentialHasher(t), nil, "token service is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.hasher, tt.tokens)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	in := auth.RegisterInput{Username: "alice", Email: "a@b.com", Password: "password123"}

	t.Run("creates user and issues token", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockCredentialHasher(t)
		svc, tokens := newService(t, users, hasher)

		hasher.On("Hash", ctx, "password123").Return("$argon2id$stored", nil)
		users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Username == "alice" && u.Email == "a@b.com" && u.PasswordHash == "$argon2id$stored"
		})).Return(nil)

		user, token, err := svc.Register(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)

		claims, err := tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.SubjectID)
		assert.Equal(t, "a@b.com", claims.Email)
	})

	t.Run("validation failure skips hashing", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewMockUserRepository(t), mocks.NewMockCredentialHasher(t))

		_, _, err := svc.Register(ctx, auth.RegisterInput{Username: "al", Email: "a@b.com", Password: "password123"})
		apperrtest.AssertKind(t, err, apperr.KindValidation)
	})

	t.Run("duplicate is storage conflict", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockCredentialHasher(t)
		svc, _ := newService(t, users, hasher)

		hasher.On("Hash", ctx, "password123").Return("$argon2id$stored", nil)
		pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "username taken"}
		users.On("Create", ctx, mock.Anything).Return(oops.Code("USER_CREATE_FAILED").Wrap(pgErr))

		_, _, err := svc.Register(ctx, in)
		status, body := apperr.Render(err)
		assert.Equal(t, 409, status)
		assert.Equal(t, "Resource already exists. username taken", body.Error)
	})

	t.Run("hashing failure propagates", func(t *testing.T) {
		hasher := mocks.NewMockCredentialHasher(t)
		svc, _ := newService(t, mocks.NewMockUserRepository(t), hasher)

		hasher.On("Hash", ctx, "password123").Return("", apperr.Hashing(errors.New("salt")))

		_, _, err := svc.Register(ctx, in)
		apperrtest.AssertKind(t, err, apperr.KindHashing)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	in := auth.LoginInput{Login: "alice", Password: "password123"}

	t.Run("valid credentials issue token", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockCredentialHasher(t)
		svc, tokens := newService(t, users, hasher)
		u := storedUser(t, "$argon2id$stored")

		users.On("GetByLogin", ctx, "alice").Return(u, nil)
		hasher.On("Verify", ctx, "password123", "$argon2id$stored").Return(true, nil)

		got, token, err := svc.Login(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		claims, err := tokens.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.SubjectID)
	})

	t.Run("wrong password is invalid credentials", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockCredentialHasher(t)
		svc, _ := newService(t, users, hasher)

		users.On("GetByLogin", ctx, "alice").Return(storedUser(t, "$argon2id$stored"), nil)
		hasher.On("Verify", ctx, "password123", "$argon2id$stored").Return(false, nil)

		_, token, err := svc.Login(ctx, in)
		apperrtest.AssertKind(t, err, apperr.KindInvalidCredentials)
		assert.Empty(t, token)
	})

	t.Run("unknown user still verifies against dummy hash", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockCredentialHasher(t)
		svc, _ := newService(t, users, hasher)

		users.On("GetByLogin", ctx, "alice").Return(nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound))
		hasher.On("Verify", ctx, "password123", mock.AnythingOfType("string")).Return(false, nil).Once()

		_, _, err := svc.Login(ctx, in)
		apperrtest.AssertKind(t, err, apperr.KindInvalidCredentials)
	})

	t.Run("unknown user and wrong password look identical", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		pool := auth.NewHashPool(auth.NewArgon2idHasher(), 1)
		t.Cleanup(pool.Close)
		svc, _ := newService(t, users, pool)

		users.On("GetByLogin", ctx, "ghost").Return(nil, auth.ErrNotFound)
		_, _, errMissing := svc.Login(ctx, auth.LoginInput{Login: "ghost", Password: "password123"})

		hash, err := auth.NewArgon2idHasher().Hash("different")
		require.NoError(t, err)
		users.On("GetByLogin", ctx, "alice").Return(storedUser(t, hash), nil)
		_, _, errWrong := svc.Login(ctx, in)

		s1, b1 := apperr.Render(errMissing)
		s2, b2 := apperr.Render(errWrong)
		assert.Equal(t, s1, s2)
		assert.Equal(t, b1, b2)
	})

	t.Run("corrupt stored hash is hashing error", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockCredentialHasher(t)
		svc, _ := newService(t, users, hasher)

		users.On("GetByLogin", ctx, "alice").Return(storedUser(t, "corrupt"), nil)
		hasher.On("Verify", ctx, "password123", "corrupt").Return(false, apperr.Hashing(errors.New("bad hash")))

		_, _, err := svc.Login(ctx, in)
		apperrtest.AssertKind(t, err, apperr.KindHashing)
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, _ := newService(t, users, mocks.NewMockCredentialHasher(t))

		users.On("GetByLogin", ctx, "alice").Return(nil, &pgconn.PgError{Code: pgerrcode.AdminShutdown})

		_, _, err := svc.Login(ctx, in)
		apperrtest.AssertClassifiedKind(t, err, apperr.KindStorageOther)
	})

	t.Run("empty login is validation error", func(t *testing.T) {
		svc, _ := newService(t, mocks.NewMockUserRepository(t), mocks.NewMockCredentialHasher(t))

		_, _, err := svc.Login(ctx, auth.LoginInput{Password: "password123"})
		apperrtest.AssertKind(t, err, apperr.KindValidation)
	})
}

func TestService_CurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns user", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, _ := newService(t, users, mocks.NewMockCredentialHasher(t))
		u := storedUser(t, "h")

		users.On("GetByID", ctx, u.ID).Return(u, nil)

		got, err := svc.CurrentUser(ctx, auth.Claims{SubjectID: u.ID})
		require.NoError(t, err)
		assert.Equal(t, u, got)
	})

	t.Run("deleted user is not found", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		svc, _ := newService(t, users, mocks.NewMockCredentialHasher(t))

		users.On("GetByID", ctx, testSubject).Return(nil, auth.ErrNotFound)

		_, err := svc.CurrentUser(ctx, auth.Claims{SubjectID: testSubject})
		status, body := apperr.Render(err)
		assert.Equal(t, 404, status)
		assert.Equal(t, "User not found", body.Error)
	})
}
