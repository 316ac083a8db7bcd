// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examreg/examreg/internal/auth"
	"github.com/examreg/examreg/internal/auth/postgres"
)

func sampleSession(t *testing.T) *auth.WebSession {
	t.Helper()
	session, err := auth.NewWebSession(ulid.Make(), "sessionhash", "Mozilla/5.0", "203.0.113.9", time.Now().Add(auth.SessionTokenExpiry))
	require.NoError(t, err)
	return session
}

func sessionRows(session *auth.WebSession) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "student_id", "token_hash", "user_agent", "ip_address", "expires_at", "created_at", "last_seen_at",
	}).AddRow(
		session.ID.String(), session.StudentID.String(), session.TokenHash,
		session.UserAgent, session.IPAddress, session.ExpiresAt, session.CreatedAt, session.LastSeenAt,
	)
}

func TestWebSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := postgres.NewWebSessionRepository(mock)
	session := sampleSession(t)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(
			session.ID.String(), session.StudentID.String(), session.TokenHash,
			session.UserAgent, session.IPAddress, session.ExpiresAt, session.CreatedAt, session.LastSeenAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(ctx, session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebSessionRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()

	t.Run("returns session", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewWebSessionRepository(mock)
		session := sampleSession(t)

		mock.ExpectQuery("SELECT id, student_id, token_hash, user_agent, ip_address, expires_at, created_at, last_seen_at").
			WithArgs(session.TokenHash).
			WillReturnRows(sessionRows(session))

		got, err := repo.GetByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.StudentID, got.StudentID)
		assert.Equal(t, session.UserAgent, got.UserAgent)
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewWebSessionRepository(mock)

		mock.ExpectQuery("SELECT id, student_id, token_hash, user_agent, ip_address, expires_at, created_at, last_seen_at").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByTokenHash(ctx, "missing")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestWebSessionRepository_UpdateLastSeen(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := postgres.NewWebSessionRepository(mock)
	id := ulid.Make()
	now := time.Now()

	mock.ExpectExec("UPDATE sessions SET last_seen_at").
		WithArgs(id.String(), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateLastSeen(ctx, id, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes session", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewWebSessionRepository(mock)
		id := ulid.Make()

		mock.ExpectExec("DELETE FROM sessions WHERE id").
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("missing session maps to not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewWebSessionRepository(mock)
		id := ulid.Make()

		mock.ExpectExec("DELETE FROM sessions WHERE id").
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), auth.ErrNotFound)
	})
}

func TestWebSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	repo := postgres.NewWebSessionRepository(mock)

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
