// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CatalogConfig holds dependencies for CatalogService.
type CatalogConfig struct {
	Books      BookRepository
	Users      UserRepository
	Borrowings BorrowingRepository
	Transactor Transactor
	Logger     *slog.Logger
	Clock      func() time.Time
}

// CatalogService handles admin upkeep of books and user registration.
type CatalogService struct {
	books      BookRepository
	users      UserRepository
	borrowings BorrowingRepository
	tx         Transactor
	logger     *slog.Logger
	now        func() time.Time
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(cfg CatalogConfig) *CatalogService {
	s := &CatalogService{
		books:      cfg.Books,
		users:      cfg.Users,
		borrowings: cfg.Borrowings,
		tx:         cfg.Transactor,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NewStoreCatalog creates a CatalogService over a backend bundle.
func NewStoreCatalog(st Store, logger *slog.Logger) *CatalogService {
	return NewCatalogService(CatalogConfig{
		Books:      st.Books,
		Users:      st.Users,
		Borrowings: st.Borrowings,
		Transactor: st.Tx,
		Logger:     logger,
	})
}

// AddBook validates and stores a new book with every copy available.
func (s *CatalogService) AddBook(ctx context.Context, actor Actor, in BookInput) (*Book, error) {
	if err := requireAdminFor(actor, "add book"); err != nil {
		return nil, err
	}
	now := s.now()
	if err := in.Validate(now); err != nil {
		return nil, oops.Code("INVALID_BOOK").With("isbn", in.ISBN).Wrap(err)
	}
	if _, err := s.books.GetByISBN(ctx, in.ISBN); err == nil {
		return nil, DuplicateISBN(in.ISBN)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.With("operation", "check isbn").With("isbn", in.ISBN).Wrap(err)
	}

	book := NewBook(in, now)
	if err := s.books.Create(ctx, book); err != nil {
		return nil, oops.With("operation", "add book").With("isbn", in.ISBN).Wrap(err)
	}
	s.logger.InfoContext(ctx, "book added",
		"book_id", book.ID.String(),
		"isbn", book.ISBN,
		"total_copies", book.TotalCopies)
	return book, nil
}

// UpdateBook applies a patch to a book. Lowering the total below the number
// of copies on loan fails with ErrConflict.
func (s *CatalogService) UpdateBook(ctx context.Context, actor Actor, id ulid.ULID, patch BookPatch) (*Book, error) {
	if err := requireAdminFor(actor, "update book"); err != nil {
		return nil, err
	}

	var out *Book
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		current, err := s.books.Get(ctx, id)
		if err != nil {
			return oops.With("operation", "update book").Wrap(err)
		}
		loans := 0
		if patch.TotalCopies != nil {
			counts, err := s.borrowings.CountActiveByBook(ctx)
			if err != nil {
				return oops.With("operation", "count active loans").Wrap(err)
			}
			loans = counts[id]
		}
		next, err := patch.Apply(current, loans, s.now())
		if errors.Is(err, ErrConflict) {
			return oops.Code("COPIES_ON_LOAN").With("book_id", id.String()).With("active_loans", loans).Wrap(err)
		}
		if err != nil {
			return oops.Code("INVALID_BOOK_UPDATE").With("book_id", id.String()).Wrap(err)
		}
		if next.ISBN != current.ISBN {
			if _, err := s.books.GetByISBN(ctx, next.ISBN); err == nil {
				return DuplicateISBN(next.ISBN)
			} else if !errors.Is(err, ErrNotFound) {
				return oops.With("operation", "check isbn").With("isbn", next.ISBN).Wrap(err)
			}
		}
		if err := s.books.Update(ctx, next); err != nil {
			return oops.With("operation", "update book").With("book_id", id.String()).Wrap(err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "book updated", "book_id", id.String(), "total_copies", out.TotalCopies)
	return out, nil
}

// DeleteBook removes a book. Borrowings that reference it are left in place.
func (s *CatalogService) DeleteBook(ctx context.Context, actor Actor, id ulid.ULID) error {
	if err := requireAdminFor(actor, "delete book"); err != nil {
		return err
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return oops.With("operation", "delete book").Wrap(err)
	}
	s.logger.InfoContext(ctx, "book deleted", "book_id", id.String())
	return nil
}

// GetBook retrieves a book by ID.
func (s *CatalogService) GetBook(ctx context.Context, id ulid.ULID) (*Book, error) {
	b, err := s.books.Get(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "get book").Wrap(err)
	}
	return b, nil
}

// ListBooks returns every book, newest first.
func (s *CatalogService) ListBooks(ctx context.Context) ([]*Book, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, oops.With("operation", "list books").Wrap(err)
	}
	return books, nil
}

// GetUser retrieves a user by ID.
func (s *CatalogService) GetUser(ctx context.Context, id ulid.ULID) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "get user").Wrap(err)
	}
	return u, nil
}

// FindUser retrieves a user by email.
func (s *CatalogService) FindUser(ctx context.Context, email string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, oops.With("operation", "find user").Wrap(err)
	}
	return u, nil
}

// RegisterUser validates and stores a new user. The role defaults to user.
func (s *CatalogService) RegisterUser(ctx context.Context, in UserInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, oops.Code("INVALID_USER").Wrap(err)
	}
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, DuplicateEmail(in.Email)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.With("operation", "check email").Wrap(err)
	}

	now := s.now()
	u := &User{
		ID:        NewID(),
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		Phone:     in.Phone,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, oops.With("operation", "register user").Wrap(err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID.String(), "role", u.Role.String())
	return u, nil
}

// EnsureAdmin returns the user registered under in.Email, creating an admin
// account when there is none. created reports whether a new account was made.
func (s *CatalogService) EnsureAdmin(ctx context.Context, in UserInput) (u *User, created bool, err error) {
	in.Role = RoleAdmin
	u, err = s.users.GetByEmail(ctx, NormalizeEmail(in.Email))
	if err == nil {
		if !u.IsAdmin() {
			s.logger.WarnContext(ctx, "admin email belongs to a non-admin user", "user_id", u.ID.String())
		}
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, oops.With("operation", "ensure admin").Wrap(err)
	}
	u, err = s.RegisterUser(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Added   []*Book
	Skipped []string // isbns already present
}

// Seed adds each book whose isbn is not yet in the catalog.
func (s *CatalogService) Seed(ctx context.Context, actor Actor, books []BookInput) (*SeedResult, error) {
	res := &SeedResult{}
	for _, in := range books {
		b, err := s.AddBook(ctx, actor, in)
		if errors.Is(err, ErrConflict) {
			res.Skipped = append(res.Skipped, in.ISBN)
			continue
		}
		if err != nil {
			return res, err
		}
		res.Added = append(res.Added, b)
	}
	return res, nil
}
