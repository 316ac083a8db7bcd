// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory fakes backing the full lifecycle test. The reset fake
// applies the same conditional used-mark as the SQL repository, so
// the single-use guarantee is exercised end to end.

type memStudentRepo struct {
	mu       sync.Mutex
	students map[ulid.ULID]*Student
}

func newMemStudentRepo() *memStudentRepo {
	return &memStudentRepo{students: make(map[ulid.ULID]*Student)}
}

func (r *memStudentRepo) Create(_ context.Context, student *Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.students {
		if existing.Email == student.Email {
			return ErrDuplicateEmail
		}
	}
	copied := *student
	r.students[student.ID] = &copied
	return nil
}

func (r *memStudentRepo) GetByID(_ context.Context, id ulid.ULID) (*Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *student
	return &copied, nil
}

func (r *memStudentRepo) GetByEmail(_ context.Context, email string) (*Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, student := range r.students {
		if student.Email == email {
			copied := *student
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memStudentRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	student, ok := r.students[id]
	if !ok {
		return ErrNotFound
	}
	student.PasswordHash = passwordHash
	student.UpdatedAt = time.Now()
	return nil
}

type memResetRepo struct {
	mu       sync.Mutex
	resets   map[ulid.ULID]*PasswordReset
	students *memStudentRepo
}

func newMemResetRepo(students *memStudentRepo) *memResetRepo {
	return &memResetRepo{resets: make(map[ulid.ULID]*PasswordReset), students: students}
}

func (r *memResetRepo) Create(_ context.Context, reset *PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *reset
	r.resets[reset.ID] = &copied
	return nil
}

func (r *memResetRepo) GetByTokenHash(_ context.Context, tokenHash string) (*PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reset := range r.resets {
		if reset.TokenHash == tokenHash {
			copied := *reset
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memResetRepo) Redeem(ctx context.Context, resetID, studentID ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reset, ok := r.resets[resetID]
	if !ok || reset.Used || time.Now().After(reset.ExpiresAt) {
		return ErrTokenInvalid
	}
	now := time.Now()
	reset.Used = true
	reset.UsedAt = &now
	return r.students.UpdatePassword(ctx, studentID, passwordHash)
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]*WebSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[ulid.ULID]*WebSession)}
}

func (r *memSessionRepo) Create(_ context.Context, session *WebSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*WebSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash {
			copied := *session
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memSessionRepo) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	session.LastSeenAt = lastSeen
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, session := range r.sessions {
		if time.Now().After(session.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Full account lifecycle: register, log in, reset the password, verify
// the old credential is dead and the token is spent.
func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	students := newMemStudentRepo()
	resets := newMemResetRepo(students)
	sessions := newMemSessionRepo()
	hasher := NewBcryptHasher()

	authSvc, err := NewService(students, sessions, hasher)
	require.NoError(t, err)
	resetSvc, err := NewPasswordResetService(students, resets, hasher)
	require.NoError(t, err)

	// Register and log in with the NSHE number.
	student, err := authSvc.Register(ctx, testEmail, "Jane Doe", testNumber, testNumber)
	require.NoError(t, err)

	_, session, token, err := authSvc.Login(ctx, testEmail, testNumber, "", "")
	require.NoError(t, err)

	gotSession, gotStudent, err := authSvc.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, gotSession.ID)
	assert.Equal(t, student.ID, gotStudent.ID)

	// Duplicate registration is rejected.
	_, err = authSvc.Register(ctx, testEmail, "Jane Again", testNumber, testNumber)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	// Request a reset and redeem it with a different ten-digit value.
	_, resetToken, err := resetSvc.RequestReset(ctx, testEmail)
	require.NoError(t, err)
	require.NotEmpty(t, resetToken)

	require.NoError(t, resetSvc.Redeem(ctx, resetToken, "9999999999", "9999999999"))

	// Old password no longer works; new one does.
	_, _, _, err = authSvc.Login(ctx, testEmail, testNumber, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = authSvc.Login(ctx, testEmail, "9999999999", "", "")
	assert.NoError(t, err)

	// The token is single use.
	err = resetSvc.Redeem(ctx, resetToken, "8888888888", "8888888888")
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = resetSvc.ValidateToken(ctx, resetToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Logout invalidates the session.
	require.NoError(t, authSvc.Logout(ctx, session.ID))
	_, _, err = authSvc.ValidateSession(ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

// An unredeemed earlier token stays live when a newer one is issued.
func TestAccountLifecycle_OlderTokenStaysLive(t *testing.T) {
	ctx := context.Background()
	students := newMemStudentRepo()
	resets := newMemResetRepo(students)
	hasher := NewBcryptHasher()

	authSvc, err := NewService(students, newMemSessionRepo(), hasher)
	require.NoError(t, err)
	resetSvc, err := NewPasswordResetService(students, resets, hasher)
	require.NoError(t, err)

	_, err = authSvc.Register(ctx, testEmail, "Jane Doe", testNumber, testNumber)
	require.NoError(t, err)

	_, first, err := resetSvc.RequestReset(ctx, testEmail)
	require.NoError(t, err)
	_, second, err := resetSvc.RequestReset(ctx, testEmail)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Redeeming the newer token does not retire the older one.
	require.NoError(t, resetSvc.Redeem(ctx, second, "9999999999", "9999999999"))

	_, err = resetSvc.ValidateToken(ctx, first)
	assert.NoError(t, err)
	require.NoError(t, resetSvc.Redeem(ctx, first, "8888888888", "8888888888"))
}
