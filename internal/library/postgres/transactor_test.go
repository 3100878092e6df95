// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryhub/libraryhub/internal/library"
)

func TestTransactor_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	id := ulid.Make()

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(anyArgs(2)...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	st := NewStore(mock)
	err := st.Tx.InTransaction(ctx, func(ctx context.Context) error {
		return st.Books.ReserveCopy(ctx, id, testNow)
	})
	require.NoError(t, err)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	id := ulid.Make()

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(anyArgs(2)...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(existsSQL).WithArgs(anyArgs(1)...).WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	st := NewStore(mock)
	err := st.Tx.InTransaction(ctx, func(ctx context.Context) error {
		return st.Books.ReserveCopy(ctx, id, testNow)
	})
	require.ErrorIs(t, err, library.ErrUnavailable)
}

func TestTransactor_RetriesSerializationFailure(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	id := ulid.Make()

	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(anyArgs(2)...).WillReturnError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WithArgs(anyArgs(2)...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	st := NewStore(mock, WithRetry(2, time.Millisecond))
	calls := 0
	err := st.Tx.InTransaction(ctx, func(ctx context.Context) error {
		calls++
		return st.Books.ReserveCopy(ctx, id, testNow)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransactor_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	deadlock := &pgconn.PgError{Code: pgerrcode.DeadlockDetected}

	for range 2 {
		mock.ExpectBegin()
		mock.ExpectRollback()
	}

	tx := NewTransactor(mock, WithRetry(1, time.Millisecond))
	calls := 0
	err := tx.InTransaction(ctx, func(context.Context) error {
		calls++
		return deadlock
	})
	require.Error(t, err)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, pgerrcode.DeadlockDetected, pgErr.Code)
	assert.Equal(t, 2, calls)
}

func TestTransactor_DoesNotRetryDomainErrors(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	calls := 0
	err := NewTransactor(mock).InTransaction(ctx, func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestTransactor_NestedCallsJoin(t *testing.T) {
	ctx := context.Background()
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx := NewTransactor(mock)
	err := tx.InTransaction(ctx, func(ctx context.Context) error {
		return tx.InTransaction(ctx, func(context.Context) error { return nil })
	})
	require.NoError(t, err)
}

func TestTransactor_BeginFailure(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := NewTransactor(mock).InTransaction(context.Background(), func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many connections")
}
