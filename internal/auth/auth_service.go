// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service provides registration, login, and session operations.
type Service struct {
	students StudentRepository
	sessions WebSessionRepository
	hasher   PasswordHasher
}

// NewService creates a new Service.
func NewService(students StudentRepository, sessions WebSessionRepository, hasher PasswordHasher) (*Service, error) {
	if students == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("student repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("session repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	return &Service{students: students, sessions: sessions, hasher: hasher}, nil
}

// dummyPasswordHash is verified against when no account matches the
// email, so response time does not reveal whether the account exists.
// It never matches a real login: Login rejects non-ten-digit passwords
// before verification, and this is not the hash of ten digits.
//
//nolint:gosec // G101: intentionally fake hash for timing hygiene, not a credential.
const dummyPasswordHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5B0C4yQZ7Nf0IgPCNdRTDJGTw6f5K"

// Register validates input against the institutional email pattern and
// the password policy, hashes the password, and stores the student
// with role "student".
//
// Validation failures surface the sentinel errors from errors.go in a
// fixed order: ErrInvalidEmail, then ErrPasswordPolicy, then
// ErrPasswordNotStudentNumber. A uniqueness conflict surfaces as
// ErrDuplicateEmail and must be treated as user-facing, not fatal.
func (s *Service) Register(ctx context.Context, email, fullName, password, confirm string) (*Student, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)

	number, err := DeriveStudentNumber(email)
	if err != nil {
		return nil, err
	}

	if err := ValidatePassword(password, confirm, number); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	student, err := NewStudent(email, number, fullName, hash)
	if err != nil {
		return nil, err
	}

	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	return student, nil
}

// Login authenticates a student and creates a web session.
// Returns the student, session, and plaintext session token.
//
// The student number is re-derived from the email and the ten-digit
// password shape re-checked before any store access; malformed input
// is rejected as ErrMalformedCredentials. Unknown email and wrong
// password both surface as ErrInvalidCredentials, and a dummy hash is
// verified when the account is absent to keep response time uniform.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*Student, *WebSession, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := DeriveStudentNumber(email); err != nil {
		return nil, nil, "", oops.Code("AUTH_MALFORMED_LOGIN").Wrap(ErrMalformedCredentials)
	}
	if !studentNumberRegex.MatchString(password) {
		return nil, nil, "", oops.Code("AUTH_MALFORMED_LOGIN").Wrap(ErrMalformedCredentials)
	}

	student, lookupErr := s.students.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	studentExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "GetByEmail").
				Wrap(lookupErr)
		}
	} else {
		targetHash = student.PasswordHash
		studentExists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !studentExists {
			return nil, nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "Verify").
			Wrap(verifyErr)
	}

	if !studentExists || !valid {
		return nil, nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "GenerateSessionToken").
			Wrap(err)
	}

	session, err := NewWebSession(student.ID, tokenHash, userAgent, ipAddress, time.Now().Add(SessionTokenExpiry))
	if err != nil {
		return nil, nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "NewWebSession").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	return student, session, token, nil
}

// ValidateSession resolves a raw session token to its session and
// student. Unknown and expired tokens both surface as
// ErrSessionInvalid. LastSeenAt is refreshed best-effort.
func (s *Service) ValidateSession(ctx context.Context, token string) (*WebSession, *Student, error) {
	if token == "" {
		return nil, nil, oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrSessionInvalid)
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
		}
		return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "GetByTokenHash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, nil, oops.Code("SESSION_EXPIRED").Wrap(ErrSessionInvalid)
	}

	student, err := s.students.GetByID(ctx, session.StudentID)
	if err != nil {
		return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}

	_ = s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck // Best effort, validation succeeds regardless

	return session, student, nil
}

// Logout invalidates a web session. Deleting an already-gone session
// is not an error; logout is idempotent.
func (s *Service) Logout(ctx context.Context, sessionID ulid.ULID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}
