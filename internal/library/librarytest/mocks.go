// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

// Package librarytest provides testify mocks of the library repository contracts.
package librarytest

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/libraryhub/libraryhub/internal/library"
)

// MockBookRepository is a mock library.BookRepository.
type MockBookRepository struct {
	mock.Mock
}

// NewMockBookRepository creates a MockBookRepository that asserts its expectations on cleanup.
func NewMockBookRepository(t mock.TestingT) *MockBookRepository {
	m := &MockBookRepository{}
	m.Test(t)
	registerCleanup(t, func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBookRepository) Get(ctx context.Context, id ulid.ULID) (*library.Book, error) {
	args := m.Called(ctx, id)
	return bookArg(args, 0), args.Error(1)
}

func (m *MockBookRepository) GetByISBN(ctx context.Context, isbn string) (*library.Book, error) {
	args := m.Called(ctx, isbn)
	return bookArg(args, 0), args.Error(1)
}

func (m *MockBookRepository) List(ctx context.Context) ([]*library.Book, error) {
	args := m.Called(ctx)
	books, _ := args.Get(0).([]*library.Book)
	return books, args.Error(1)
}

func (m *MockBookRepository) Create(ctx context.Context, b *library.Book) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookRepository) Update(ctx context.Context, b *library.Book) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookRepository) ReserveCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockBookRepository) ReleaseCopy(ctx context.Context, id ulid.ULID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

// MockUserRepository is a mock library.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository that asserts its expectations on cleanup.
func NewMockUserRepository(t mock.TestingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	registerCleanup(t, func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Get(ctx context.Context, id ulid.ULID) (*library.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*library.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*library.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*library.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *library.User) error {
	return m.Called(ctx, u).Error(0)
}

// MockBorrowingRepository is a mock library.BorrowingRepository.
type MockBorrowingRepository struct {
	mock.Mock
}

// NewMockBorrowingRepository creates a MockBorrowingRepository that asserts its expectations on cleanup.
func NewMockBorrowingRepository(t mock.TestingT) *MockBorrowingRepository {
	m := &MockBorrowingRepository{}
	m.Test(t)
	registerCleanup(t, func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBorrowingRepository) Get(ctx context.Context, id ulid.ULID) (*library.Borrowing, error) {
	args := m.Called(ctx, id)
	return borrowingArg(args, 0), args.Error(1)
}

func (m *MockBorrowingRepository) Create(ctx context.Context, b *library.Borrowing) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBorrowingRepository) Transition(ctx context.Context, t library.Transition) (*library.Borrowing, error) {
	args := m.Called(ctx, t)
	return borrowingArg(args, 0), args.Error(1)
}

func (m *MockBorrowingRepository) FindActive(ctx context.Context, userID, bookID ulid.ULID) (*library.Borrowing, error) {
	args := m.Called(ctx, userID, bookID)
	return borrowingArg(args, 0), args.Error(1)
}

func (m *MockBorrowingRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*library.Borrowing, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]*library.Borrowing)
	return list, args.Error(1)
}

func (m *MockBorrowingRepository) List(ctx context.Context) ([]*library.Borrowing, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*library.Borrowing)
	return list, args.Error(1)
}

func (m *MockBorrowingRepository) CountActiveByBook(ctx context.Context) (map[ulid.ULID]int, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[ulid.ULID]int)
	return counts, args.Error(1)
}

// MockMetricsRecorder is a mock library.MetricsRecorder.
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordTransition(op, outcome string) {
	m.Called(op, outcome)
}

// PassthroughTransactor runs fn directly. It records how many transactions
// were opened and whether the last one failed.
type PassthroughTransactor struct {
	Calls   int
	LastErr error
}

// InTransaction calls fn with ctx.
func (p *PassthroughTransactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.Calls++
	p.LastErr = fn(ctx)
	return p.LastErr
}

func bookArg(args mock.Arguments, i int) *library.Book {
	b, _ := args.Get(i).(*library.Book)
	return b
}

func borrowingArg(args mock.Arguments, i int) *library.Borrowing {
	b, _ := args.Get(i).(*library.Borrowing)
	return b
}

type cleanupT interface {
	Cleanup(func())
}

func registerCleanup(t mock.TestingT, fn func()) {
	if c, ok := t.(cleanupT); ok {
		c.Cleanup(fn)
	}
}
