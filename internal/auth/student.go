// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role tags a student record. Only RoleStudent is assigned by
// self-registration; other roles are provisioned out of band.
type Role string

// Known roles.
const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// StudentNumberLength is the length of an NSHE number.
const StudentNumberLength = 10

// emailRegex matches institutional addresses: a 10-digit NSHE number
// followed by the student domain, case-insensitively.
var emailRegex = regexp.MustCompile(`(?i)^(\d{10})@student\.csn\.edu$`)

// studentNumberRegex matches exactly ten digits.
var studentNumberRegex = regexp.MustCompile(`^\d{10}$`)

// Student represents a registered student account.
type Student struct {
	ID            ulid.ULID
	Email         string
	StudentNumber string // 10-digit NSHE number, derived from Email, immutable
	FullName      string
	PasswordHash  string
	Role          Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeriveStudentNumber extracts the NSHE number from an institutional
// email address. Returns ErrInvalidEmail if the address does not match
// the pattern. Pure, no side effects.
func DeriveStudentNumber(email string) (string, error) {
	m := emailRegex.FindStringSubmatch(strings.TrimSpace(email))
	if m == nil {
		return "", oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Wrap(ErrInvalidEmail)
	}
	return m[1], nil
}

// ValidatePassword checks a registration password against policy.
// The checks run in a fixed order because each failure carries its own
// user-facing message:
//  1. password must be non-empty, match confirm, and be exactly ten
//     digits (ErrPasswordPolicy)
//  2. password must equal the student number (ErrPasswordNotStudentNumber)
//
// The shape check and the equality check overlap; both are kept on
// purpose because the product mandates the NSHE number as the password
// and each check has a distinct error message.
func ValidatePassword(password, confirm, studentNumber string) error {
	if password == "" || password != confirm || !studentNumberRegex.MatchString(password) {
		return oops.Code("AUTH_PASSWORD_POLICY").Wrap(ErrPasswordPolicy)
	}
	if password != studentNumber {
		return oops.Code("AUTH_PASSWORD_NOT_NSHE").Wrap(ErrPasswordNotStudentNumber)
	}
	return nil
}

// NewStudent creates a validated Student with a fresh ULID. The email
// is stored lower-cased; the student number must be the one derived
// from the email.
func NewStudent(email, studentNumber, fullName, passwordHash string) (*Student, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	derived, err := DeriveStudentNumber(email)
	if err != nil {
		return nil, err
	}
	if derived != studentNumber {
		return nil, oops.Code("AUTH_NUMBER_MISMATCH").
			With("derived", derived).
			Errorf("student number does not match email")
	}
	if fullName == "" {
		return nil, oops.Code("AUTH_MISSING_NAME").Errorf("full name is required")
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_MISSING_HASH").Errorf("password hash is required")
	}

	now := time.Now()
	return &Student{
		ID:            ulid.Make(),
		Email:         email,
		StudentNumber: studentNumber,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		Role:          RoleStudent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// StudentRepository manages student persistence.
type StudentRepository interface {
	// Create stores a new student. Returns ErrDuplicateEmail if the
	// email is already registered.
	Create(ctx context.Context, student *Student) error

	// GetByID retrieves a student by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Student, error)

	// GetByEmail retrieves a student by email (case-insensitive).
	// Returns ErrNotFound if no student has the given email.
	GetByEmail(ctx context.Context, email string) (*Student, error)

	// UpdatePassword updates only the password hash for a student.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
