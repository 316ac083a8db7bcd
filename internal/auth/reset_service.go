// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
)

// PasswordResetService handles the reset token lifecycle:
// issue -> store hash -> redeem once -> expire lazily.
type PasswordResetService struct {
	students StudentRepository
	resets   PasswordResetRepository
	hasher   PasswordHasher
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(students StudentRepository, resets PasswordResetRepository, hasher PasswordHasher) (*PasswordResetService, error) {
	if students == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("student repository is required")
	}
	if resets == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("reset repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	return &PasswordResetService{students: students, resets: resets, hasher: hasher}, nil
}

// RequestReset issues a reset token for the student with the given
// email. Returns the student and the plaintext token for out-of-band
// delivery; the store only ever sees the hash.
//
// If no account matches, returns (nil, "", nil) so the caller can show
// the same response either way and not leak account existence.
// Previously issued unused tokens are left live; multiple tokens may
// coexist for one student.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (*Student, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	student, err := s.students.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", nil
		}
		return nil, "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GetByEmail").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return nil, "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "GenerateResetToken").
			Wrap(err)
	}

	reset, err := NewPasswordReset(student.ID, hash, time.Now().Add(ResetTokenExpiry))
	if err != nil {
		return nil, "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "NewPasswordReset").
			Wrap(err)
	}

	if err := s.resets.Create(ctx, reset); err != nil {
		return nil, "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "Create").
			Wrap(err)
	}

	return student, token, nil
}

// ValidateToken resolves a raw reset token to the owning student.
// Not-found, already-used, and expired all surface as ErrTokenInvalid;
// the caller must not distinguish them to the end user.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (*Student, error) {
	if token == "" {
		return nil, oops.Code("RESET_TOKEN_EMPTY").Wrap(ErrTokenInvalid)
	}

	reset, err := s.resets.GetByTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrTokenInvalid)
		}
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "GetByTokenHash").
			Wrap(err)
	}

	if !reset.Redeemable() {
		return nil, oops.Code("RESET_TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}

	student, err := s.students.GetByID(ctx, reset.StudentID)
	if err != nil {
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "GetByID").
			Wrap(err)
	}

	return student, nil
}

// Redeem consumes a reset token and sets a new password. The token is
// resolved and checked first, so a dead token reads as invalid even
// when the submitted passwords disagree. Only then does the new
// password have to match its confirmation; redemption does not
// re-apply the registration policy.
//
// The password update and the used-mark are applied atomically by the
// repository. A concurrent redemption of the same token loses the
// conditional update and gets ErrTokenInvalid; the password hash is
// then unchanged from the winning redemption.
func (s *PasswordResetService) Redeem(ctx context.Context, token, newPassword, confirm string) error {
	reset, err := s.resets.GetByTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrTokenInvalid)
		}
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "GetByTokenHash").
			Wrap(err)
	}

	if !reset.Redeemable() {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}

	if newPassword == "" || newPassword != confirm {
		return oops.Code("RESET_PASSWORD_MISMATCH").Wrap(ErrPasswordMismatch)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "Hash").
			Wrap(err)
	}

	if err := s.resets.Redeem(ctx, reset.ID, reset.StudentID, hash); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return err
		}
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "Redeem").
			Wrap(err)
	}

	return nil
}
