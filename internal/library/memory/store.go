// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

// Package memory provides in-memory library repositories for tests and local runs.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/libraryhub/libraryhub/internal/library"
)

// tables holds one consistent version of every record.
type tables struct {
	books      map[ulid.ULID]library.Book
	users      map[ulid.ULID]library.User
	borrowings map[ulid.ULID]library.Borrowing
}

func (t *tables) clone() *tables {
	return &tables{
		books:      maps.Clone(t.books),
		users:      maps.Clone(t.users),
		borrowings: maps.Clone(t.borrowings),
	}
}

// Store is an in-memory backend. Transactions hold the store lock for their
// whole duration and work on a staged copy that replaces the live tables
// only when the transaction function succeeds.
type Store struct {
	mu   sync.RWMutex
	data *tables
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: &tables{
		books:      make(map[ulid.ULID]library.Book),
		users:      make(map[ulid.ULID]library.User),
		borrowings: make(map[ulid.ULID]library.Borrowing),
	}}
}

// Bundle returns the store's repositories.
func (s *Store) Bundle() library.Store {
	return library.Store{
		Books:      &BookRepository{s: s},
		Users:      &UserRepository{s: s},
		Borrowings: &BorrowingRepository{s: s},
		Tx:         s,
	}
}

type txKey struct{}

type txState struct {
	store  *Store
	staged *tables
}

// InTransaction runs fn with exclusive access to the store. Calls nested in
// an open transaction join it.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // context errors pass through
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txState{store: s, staged: s.data.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	s.data = tx.staged
	return nil
}

func (s *Store) txFrom(ctx context.Context) *txState {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok && tx.store == s {
		return tx
	}
	return nil
}

// read runs fn against the tables visible to ctx.
func (s *Store) read(ctx context.Context, fn func(t *tables) error) error {
	if tx := s.txFrom(ctx); tx != nil {
		return fn(tx.staged)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// write runs fn with exclusive access to the tables visible to ctx.
// fn must check every precondition before mutating.
func (s *Store) write(ctx context.Context, fn func(t *tables) error) error {
	if tx := s.txFrom(ctx); tx != nil {
		return fn(tx.staged)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// newestFirst orders records by creation time, then id, descending.
func newestFirst[T any](items []*T, created func(*T) time.Time, id func(*T) ulid.ULID) {
	slices.SortFunc(items, func(a, b *T) int {
		if c := created(b).Compare(created(a)); c != 0 {
			return c
		}
		return cmp.Compare(id(b).String(), id(a).String())
	})
}
