// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package auth

import "errors"

// Sentinel errors for conditions callers branch on with errors.Is.
// Services wrap these with oops codes; the sentinels survive the
// wrapping so the web layer can pick a flash message without
// inspecting error strings.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registration hits the
	// uniqueness constraint on students.email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidEmail is returned when an email does not match the
	// institutional pattern.
	ErrInvalidEmail = errors.New("email does not match institutional pattern")

	// ErrPasswordPolicy is returned when a password is missing, does
	// not match its confirmation, or is not exactly ten digits.
	ErrPasswordPolicy = errors.New("password does not satisfy policy")

	// ErrPasswordNotStudentNumber is returned when a password passes
	// the shape check but is not the NSHE number from the email.
	ErrPasswordNotStudentNumber = errors.New("password does not equal student number")

	// ErrMalformedCredentials is returned by Login before any store
	// access when the email or password shape is wrong.
	ErrMalformedCredentials = errors.New("malformed credentials")

	// ErrInvalidCredentials covers both unknown email and wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrPasswordMismatch is returned on reset redemption when the new
	// password is empty or does not match its confirmation.
	ErrPasswordMismatch = errors.New("passwords must match")

	// ErrTokenInvalid covers not-found, already-used, and expired
	// reset tokens uniformly so the response never leaks which one
	// occurred.
	ErrTokenInvalid = errors.New("reset token invalid or expired")

	// ErrSessionInvalid covers unknown and expired web sessions.
	ErrSessionInvalid = errors.New("session invalid or expired")
)
