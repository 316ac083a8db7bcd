// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

// Package auth implements the ExamReg account domain: student
// registration with institutional email validation, login with
// server-side web sessions, and the single-use password reset
// token lifecycle.
//
// The package is persistence-agnostic. Repositories are interfaces
// implemented in the postgres subpackage; services orchestrate
// validation, hashing, and repository calls.
package auth
