// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/holoauth/internal/auth"
)

// testingT is the subset of *testing.T the mocks need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations when
// the test finishes.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create implements auth.UserRepository.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID implements auth.UserRepository.
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

// GetByLogin implements auth.UserRepository.
func (m *MockUserRepository) GetByLogin(ctx context.Context, login string) (*auth.User, error) {
	args := m.Called(ctx, login)
	u, _ := args.Get(0).(*auth.User)
	return u, args.Error(1)
}

// MockCredentialHasher is a mock auth.CredentialHasher.
type MockCredentialHasher struct {
	mock.Mock
}

// NewMockCredentialHasher creates a mock that asserts its expectations when
// the test finishes.
func NewMockCredentialHasher(t testingT) *MockCredentialHasher {
	m := &MockCredentialHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash implements auth.CredentialHasher.
func (m *MockCredentialHasher) Hash(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

// Verify implements auth.CredentialHasher.
func (m *MockCredentialHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	args := m.Called(ctx, password, hash)
	return args.Bool(0), args.Error(1)
}

var (
	_ auth.UserRepository   = (*MockUserRepository)(nil)
	_ auth.CredentialHasher = (*MockCredentialHasher)(nil)
)
