// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
)

// Hand-written testify mocks for the repository interfaces.

type mockStudentRepo struct {
	mock.Mock
}

func (m *mockStudentRepo) Create(ctx context.Context, student *Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *mockStudentRepo) GetByID(ctx context.Context, id ulid.ULID) (*Student, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*Student), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStudentRepo) GetByEmail(ctx context.Context, email string) (*Student, error) {
	args := m.Called(ctx, email)
	if s := args.Get(0); s != nil {
		return s.(*Student), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStudentRepo) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type mockResetRepo struct {
	mock.Mock
}

func (m *mockResetRepo) Create(ctx context.Context, reset *PasswordReset) error {
	args := m.Called(ctx, reset)
	return args.Error(0)
}

func (m *mockResetRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordReset, error) {
	args := m.Called(ctx, tokenHash)
	if r := args.Get(0); r != nil {
		return r.(*PasswordReset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockResetRepo) Redeem(ctx context.Context, resetID, studentID ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, resetID, studentID, passwordHash)
	return args.Error(0)
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Create(ctx context.Context, session *WebSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*WebSession, error) {
	args := m.Called(ctx, tokenHash)
	if s := args.Get(0); s != nil {
		return s.(*WebSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	args := m.Called(ctx, id, lastSeen)
	return args.Error(0)
}

func (m *mockSessionRepo) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Interface checks.
var (
	_ StudentRepository       = (*mockStudentRepo)(nil)
	_ PasswordResetRepository = (*mockResetRepo)(nil)
	_ WebSessionRepository    = (*mockSessionRepo)(nil)
)
