// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/examreg/examreg/internal/auth"
)

// PasswordResetRepository implements auth.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	db DB
}

// NewPasswordResetRepository creates a new PasswordResetRepository.
func NewPasswordResetRepository(db DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores a new password reset request.
func (r *PasswordResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_resets (id, student_id, token_hash, expires_at, used, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, reset.ID.String(), reset.StudentID.String(), reset.TokenHash, reset.ExpiresAt, reset.Used, reset.UsedAt, reset.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert password_reset").
			With("student_id", reset.StudentID.String()).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a reset request by its token hash.
func (r *PasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.PasswordReset, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, student_id, token_hash, expires_at, used, used_at, created_at
		FROM password_resets
		WHERE token_hash = $1
	`, tokenHash)

	reset, err := r.scanReset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return reset, nil
}

// Redeem marks the reset used and updates the student's password hash
// in one transaction. The used-mark is a conditional update on
// used = FALSE AND expires_at > now(), so two concurrent redemptions of
// the same token cannot both succeed: the loser's update matches no
// row and the whole transaction rolls back with auth.ErrTokenInvalid.
func (r *PasswordResetRepository) Redeem(ctx context.Context, resetID, studentID ulid.ULID, passwordHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // No-op after commit
	}()

	now := time.Now()
	tag, err := tx.Exec(ctx, `
		UPDATE password_resets SET used = TRUE, used_at = $2
		WHERE id = $1 AND used = FALSE AND expires_at > $2
	`, resetID.String(), now)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "mark token used").
			With("id", resetID.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("RESET_TOKEN_INVALID").
			With("id", resetID.String()).
			Wrap(auth.ErrTokenInvalid)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE students SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, studentID.String(), passwordHash, now)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "update password").
			With("student_id", studentID.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("STUDENT_NOT_FOUND").
			With("student_id", studentID.String()).
			Wrap(auth.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// scanReset scans a single row into a PasswordReset.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *PasswordResetRepository) scanReset(row pgx.Row) (*auth.PasswordReset, error) {
	var (
		idStr        string
		studentIDStr string
		tokenHash    string
		expiresAt    time.Time
		used         bool
		usedAt       *time.Time
		createdAt    time.Time
	)

	err := row.Scan(&idStr, &studentIDStr, &tokenHash, &expiresAt, &used, &usedAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("RESET_SCAN_FAILED").
			With("operation", "scan password_reset").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	studentID, err := ulid.Parse(studentIDStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_STUDENT_ID").
			With("student_id", studentIDStr).
			Wrap(err)
	}

	return &auth.PasswordReset{
		ID:        id,
		StudentID: studentID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		Used:      used,
		UsedAt:    usedAt,
		CreatedAt: createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
