// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default retry policy for serialization failures and deadlocks.
const (
	DefaultMaxRetries = 3
	DefaultRetryBase  = 20 * time.Millisecond
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Transactor implements library.Transactor over a pgx pool.
// It stores the active pgx.Tx in context so that repository calls made with
// that context participate in the same transaction.
type Transactor struct {
	pool       txBeginner
	maxRetries uint64
	retryBase  time.Duration
}

// TransactorOption configures a Transactor.
type TransactorOption func(*Transactor)

// WithRetry sets how often a transaction is retried after a serialization
// failure or deadlock, and the base of the exponential backoff between tries.
func WithRetry(maxRetries uint64, base time.Duration) TransactorOption {
	return func(t *Transactor) {
		t.maxRetries = maxRetries
		t.retryBase = base
	}
}

// NewTransactor creates a Transactor backed by the given pool.
func NewTransactor(pool txBeginner, opts ...TransactorOption) *Transactor {
	t := &Transactor{pool: pool, maxRetries: DefaultMaxRetries, retryBase: DefaultRetryBase}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil the transaction is committed, otherwise it is rolled back.
// Serialization failures and deadlocks rerun fn in a fresh transaction.
// Calls nested inside an open transaction join it.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	backoff := retry.WithMaxRetries(t.maxRetries, retry.NewExponential(t.retryBase))
	//nolint:wrapcheck // errors are wrapped in runOnce or come from fn
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := t.runOnce(ctx, fn)
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (t *Transactor) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx) //nolint:errcheck // the fn or commit error takes precedence
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		committed = true // a failed commit has already ended the transaction
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	committed = true
	return nil
}

// retryable reports whether err is a serialization-class failure worth retrying.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}
