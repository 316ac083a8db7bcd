// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/examreg/examreg/internal/auth"
)

// StudentRepository implements auth.StudentRepository using PostgreSQL.
type StudentRepository struct {
	db DB
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create stores a new student. A unique violation on the email column
// maps to auth.ErrDuplicateEmail so callers can treat it as a
// user-facing condition rather than a store failure.
func (r *StudentRepository) Create(ctx context.Context, student *auth.Student) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO students (id, email, student_number, full_name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		student.ID.String(),
		student.Email,
		student.StudentNumber,
		student.FullName,
		student.PasswordHash,
		string(student.Role),
		student.CreatedAt,
		student.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("STUDENT_DUPLICATE_EMAIL").
				With("email", student.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("STUDENT_CREATE_FAILED").
			With("operation", "insert student").
			With("email", student.Email).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Student, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, student_number, full_name, password_hash, role, created_at, updated_at
		FROM students
		WHERE id = $1
	`, id.String())

	student, err := r.scanStudent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("STUDENT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("STUDENT_GET_BY_ID_FAILED").
			With("operation", "get student by id").
			With("id", id.String()).
			Wrap(err)
	}
	return student, nil
}

// GetByEmail retrieves a student by email (case-insensitive).
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*auth.Student, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, student_number, full_name, password_hash, role, created_at, updated_at
		FROM students
		WHERE LOWER(email) = LOWER($1)
	`, email)

	student, err := r.scanStudent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("STUDENT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("STUDENT_GET_BY_EMAIL_FAILED").
			With("operation", "get student by email").
			With("email", email).
			Wrap(err)
	}
	return student, nil
}

// UpdatePassword updates only the password hash for a student.
func (r *StudentRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE students SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("STUDENT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("STUDENT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanStudent scans a single row into a Student.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *StudentRepository) scanStudent(row pgx.Row) (*auth.Student, error) {
	var (
		idStr         string
		email         string
		studentNumber string
		fullName      string
		passwordHash  string
		role          string
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(&idStr, &email, &studentNumber, &fullName, &passwordHash, &role, &createdAt, &updatedAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to wrap with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("STUDENT_SCAN_FAILED").
			With("operation", "scan student").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("STUDENT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Student{
		ID:            id,
		Email:         email,
		StudentNumber: studentNumber,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		Role:          auth.Role(role),
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.StudentRepository = (*StudentRepository)(nil)
