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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("libraryhub/library")

// ServiceConfig holds dependencies for BorrowingService.
type ServiceConfig struct {
	Books      BookRepository
	Users      UserRepository
	Borrowings BorrowingRepository
	Transactor Transactor
	Metrics    MetricsRecorder // optional
	Logger     *slog.Logger    // optional, defaults to slog.Default()
	LoanPeriod time.Duration   // optional, defaults to LoanPeriod
	Clock      func() time.Time
}

// BorrowingService owns the borrowing lifecycle and the copy counter it drives.
//
// Approve and Return change a borrowing and its book's counter in one
// transaction using guarded conditional updates, so concurrent callers
// cannot oversell the last copy or push the counter past the total.
type BorrowingService struct {
	books      BookRepository
	users      UserRepository
	borrowings BorrowingRepository
	tx         Transactor
	metrics    MetricsRecorder
	logger     *slog.Logger
	loanPeriod time.Duration
	now        func() time.Time
}

// NewService creates a BorrowingService with the given configuration.
func NewService(cfg ServiceConfig) *BorrowingService {
	s := &BorrowingService{
		books:      cfg.Books,
		users:      cfg.Users,
		borrowings: cfg.Borrowings,
		tx:         cfg.Transactor,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		loanPeriod: cfg.LoanPeriod,
		now:        cfg.Clock,
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.loanPeriod <= 0 {
		s.loanPeriod = LoanPeriod
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// NewStoreService creates a BorrowingService over a backend bundle.
func NewStoreService(st Store, metrics MetricsRecorder, logger *slog.Logger, loanPeriod time.Duration) *BorrowingService {
	return NewService(ServiceConfig{
		Books:      st.Books,
		Users:      st.Users,
		Borrowings: st.Borrowings,
		Transactor: st.Tx,
		Metrics:    metrics,
		Logger:     logger,
		LoanPeriod: loanPeriod,
	})
}

// Create files a pending borrowing request for the actor. It does not
// reserve a copy; that happens on approval.
func (s *BorrowingService) Create(ctx context.Context, actor Actor, bookID ulid.ULID) (view *BorrowingView, err error) {
	ctx, done := s.begin(ctx, "create",
		attribute.String("user.id", actor.UserID.String()),
		attribute.String("book.id", bookID.String()))
	defer done(&err)

	if actor.Anonymous() {
		return nil, missingIdentity("create")
	}
	// The stored role is authoritative here, not the one the caller claims.
	user, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return nil, oops.With("operation", "create borrowing").With("user_id", actor.UserID.String()).Wrap(err)
	}
	if user.IsAdmin() {
		return nil, oops.Code("ADMIN_CANNOT_BORROW").
			With("user_id", user.ID.String()).
			Wrapf(ErrForbidden, "admins cannot borrow books")
	}

	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, oops.With("operation", "create borrowing").With("book_id", bookID.String()).Wrap(err)
	}
	if book.AvailableCopies <= 0 {
		return nil, oops.Code("BOOK_UNAVAILABLE").
			With("book_id", book.ID.String()).
			With("available_copies", book.AvailableCopies).
			Wrapf(ErrUnavailable, "book %q is not available for borrowing", book.Title)
	}

	existing, err := s.borrowings.FindActive(ctx, user.ID, book.ID)
	switch {
	case err == nil:
		return nil, oops.Code("DUPLICATE_REQUEST").
			With("user_id", user.ID.String()).
			With("book_id", book.ID.String()).
			With("existing_id", existing.ID.String()).
			With("existing_status", existing.Status.String()).
			Wrapf(ErrConflict, "an active request for this book already exists")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.With("operation", "find active borrowing").Wrap(err)
	}

	b := NewBorrowing(user.ID, book.ID, s.now(), s.loanPeriod)
	if err := s.borrowings.Create(ctx, b); err != nil {
		return nil, oops.With("operation", "create borrowing").With("borrowing_id", b.ID.String()).Wrap(err)
	}

	s.logger.InfoContext(ctx, "borrowing requested",
		"borrowing_id", b.ID.String(),
		"user_id", user.ID.String(),
		"book_id", book.ID.String(),
		"due_date", b.DueDate)

	return &BorrowingView{Borrowing: *b, Book: summarizeBook(book), User: summarizeUser(user)}, nil
}

// Approve moves a pending borrowing to approved and takes one copy of the book.
func (s *BorrowingService) Approve(ctx context.Context, actor Actor, id ulid.ULID) (out *Borrowing, err error) {
	ctx, done := s.begin(ctx, "approve", attribute.String("borrowing.id", id.String()))
	defer done(&err)

	if err := requireAdmin(actor, ActionApprove); err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		b, err := s.loadFor(ctx, id, ActionApprove)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.books.ReserveCopy(ctx, b.BookID, now); err != nil {
			if errors.Is(err, ErrNotFound) {
				return oops.Code("BOOK_UNAVAILABLE").
					With("book_id", b.BookID.String()).
					With("borrowing_id", b.ID.String()).
					Wrapf(ErrUnavailable, "book no longer exists")
			}
			return oops.With("borrowing_id", b.ID.String()).Wrap(err)
		}

		approver := actor.UserID
		t := NewTransition(b.ID, ActionApprove, now)
		t.ApprovedBy = &approver
		out, err = s.borrowings.Transition(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "borrowing approved",
		"borrowing_id", out.ID.String(),
		"book_id", out.BookID.String(),
		"approved_by", actor.UserID.String())
	return out, nil
}

// Reject moves a pending borrowing to rejected. Non-empty notes replace the stored notes.
func (s *BorrowingService) Reject(ctx context.Context, actor Actor, id ulid.ULID, notes string) (out *Borrowing, err error) {
	ctx, done := s.begin(ctx, "reject", attribute.String("borrowing.id", id.String()))
	defer done(&err)

	if err := requireAdmin(actor, ActionReject); err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		b, err := s.loadFor(ctx, id, ActionReject)
		if err != nil {
			return err
		}
		t := NewTransition(b.ID, ActionReject, s.now())
		t.Notes = notes
		out, err = s.borrowings.Transition(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "borrowing rejected",
		"borrowing_id", out.ID.String(),
		"rejected_by", actor.UserID.String())
	return out, nil
}

// Return closes an active loan and puts its copy back on the shelf.
// A loan whose book was deleted is still returned.
func (s *BorrowingService) Return(ctx context.Context, actor Actor, id ulid.ULID) (out *Borrowing, err error) {
	ctx, done := s.begin(ctx, "return", attribute.String("borrowing.id", id.String()))
	defer done(&err)

	if err := requireAdmin(actor, ActionReturn); err != nil {
		return nil, err
	}

	bookMissing := false
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		bookMissing = false
		b, err := s.loadFor(ctx, id, ActionReturn)
		if err != nil {
			return err
		}

		now := s.now()
		out, err = s.borrowings.Transition(ctx, NewTransition(b.ID, ActionReturn, now))
		if err != nil {
			return err
		}

		err = s.books.ReleaseCopy(ctx, b.BookID, now)
		if errors.Is(err, ErrNotFound) {
			bookMissing = true
			return nil
		}
		if err != nil {
			return oops.With("borrowing_id", b.ID.String()).Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if bookMissing {
		s.logger.WarnContext(ctx, "returned borrowing references a deleted book",
			"borrowing_id", out.ID.String(),
			"book_id", out.BookID.String())
	}
	s.logger.InfoContext(ctx, "borrowing returned",
		"borrowing_id", out.ID.String(),
		"book_id", out.BookID.String(),
		"returned_to", actor.UserID.String())
	return out, nil
}

// ListForUser returns the actor's own borrowings, newest first, with book fields resolved.
func (s *BorrowingService) ListForUser(ctx context.Context, actor Actor) ([]*BorrowingView, error) {
	if actor.Anonymous() {
		return nil, missingIdentity("list")
	}
	list, err := s.borrowings.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, oops.With("operation", "list borrowings").With("user_id", actor.UserID.String()).Wrap(err)
	}

	r := s.newResolver()
	views := make([]*BorrowingView, 0, len(list))
	for _, b := range list {
		book, err := r.book(ctx, b.BookID)
		if err != nil {
			return nil, err
		}
		views = append(views, &BorrowingView{Borrowing: *b, Book: summarizeBook(book)})
	}
	return views, nil
}

// ListAll returns every borrowing, newest first, with user, book, and approver resolved.
func (s *BorrowingService) ListAll(ctx context.Context, actor Actor) ([]*BorrowingView, error) {
	if err := requireAdminFor(actor, "list all"); err != nil {
		return nil, err
	}
	list, err := s.borrowings.List(ctx)
	if err != nil {
		return nil, oops.With("operation", "list all borrowings").Wrap(err)
	}

	r := s.newResolver()
	views := make([]*BorrowingView, 0, len(list))
	for _, b := range list {
		v, err := r.view(ctx, b)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Get returns a single borrowing with user, book, and approver resolved.
// Users other than admins may only read their own borrowings.
func (s *BorrowingService) Get(ctx context.Context, actor Actor, id ulid.ULID) (*BorrowingView, error) {
	if actor.Anonymous() {
		return nil, missingIdentity("get")
	}
	b, err := s.borrowings.Get(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "get borrowing").Wrap(err)
	}
	if !actor.IsAdmin() && b.UserID != actor.UserID {
		return nil, oops.Code("NOT_BORROWING_OWNER").
			With("borrowing_id", id.String()).
			With("user_id", actor.UserID.String()).
			Wrapf(ErrForbidden, "borrowing belongs to another user")
	}
	return s.newResolver().view(ctx, b)
}

// loadFor reads a borrowing inside the transaction and checks that action may leave its status.
func (s *BorrowingService) loadFor(ctx context.Context, id ulid.ULID, action Action) (*Borrowing, error) {
	b, err := s.borrowings.Get(ctx, id)
	if err != nil {
		return nil, oops.With("operation", string(action)).Wrap(err)
	}
	if !action.Allows(b.Status) {
		return nil, InvalidTransition(b.ID, b.Status, action)
	}
	return b, nil
}

// begin starts the span for a lifecycle operation. The returned func ends it
// and records the outcome metric.
func (s *BorrowingService) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "borrowing."+op, trace.WithAttributes(attrs...))
	return ctx, func(err *error) {
		outcome := OutcomeOf(*err)
		span.SetAttributes(attribute.String("outcome", outcome))
		if *err != nil {
			span.RecordError(*err)
			span.SetStatus(codes.Error, (*err).Error())
		}
		span.End()
		s.metrics.RecordTransition(op, outcome)
	}
}

// InvalidTransition builds the error for an action that cannot leave status.
func InvalidTransition(id ulid.ULID, status Status, action Action) error {
	return oops.Code("INVALID_TRANSITION").
		With("borrowing_id", id.String()).
		With("status", status.String()).
		With("action", string(action)).
		Wrapf(ErrInvalidState, "cannot %s a %s borrowing", action, status)
}

func requireAdmin(actor Actor, action Action) error {
	return requireAdminFor(actor, string(action))
}

func requireAdminFor(actor Actor, op string) error {
	if actor.Anonymous() {
		return missingIdentity(op)
	}
	if !actor.IsAdmin() {
		return oops.Code("ADMIN_REQUIRED").
			With("operation", op).
			With("user_id", actor.UserID.String()).
			Wrapf(ErrForbidden, "%s requires an admin", op)
	}
	return nil
}

func missingIdentity(op string) error {
	return oops.Code("MISSING_IDENTITY").
		With("operation", op).
		Wrapf(ErrForbidden, "%s requires an identity", op)
}

// resolver caches display lookups for one read projection.
type resolver struct {
	s     *BorrowingService
	books map[ulid.ULID]*Book
	users map[ulid.ULID]*User
}

func (s *BorrowingService) newResolver() *resolver {
	return &resolver{s: s, books: map[ulid.ULID]*Book{}, users: map[ulid.ULID]*User{}}
}

// book returns nil without error when the book has been deleted.
func (r *resolver) book(ctx context.Context, id ulid.ULID) (*Book, error) {
	if b, ok := r.books[id]; ok {
		return b, nil
	}
	b, err := r.s.books.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.With("operation", "resolve book").With("book_id", id.String()).Wrap(err)
	}
	r.books[id] = b
	return b, nil
}

func (r *resolver) user(ctx context.Context, id ulid.ULID) (*User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	u, err := r.s.users.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, oops.With("operation", "resolve user").With("user_id", id.String()).Wrap(err)
	}
	r.users[id] = u
	return u, nil
}

func (r *resolver) view(ctx context.Context, b *Borrowing) (*BorrowingView, error) {
	book, err := r.book(ctx, b.BookID)
	if err != nil {
		return nil, err
	}
	user, err := r.user(ctx, b.UserID)
	if err != nil {
		return nil, err
	}
	v := &BorrowingView{Borrowing: *b, Book: summarizeBook(book), User: summarizeUser(user)}
	if b.ApprovedBy != nil {
		approver, err := r.user(ctx, *b.ApprovedBy)
		if err != nil {
			return nil, err
		}
		v.Approver = summarizeUser(approver)
	}
	return v, nil
}
