// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Sentinel errors used to classify failures with errors.Is. Repositories and
// services wrap them with oops codes and context.
var (
	// ErrNotFound is returned when a book, user, or borrowing does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller's role does not allow the action.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when a borrowing cannot make the requested transition.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnavailable is returned when a book has no copies left to lend.
	ErrUnavailable = errors.New("unavailable")

	// ErrConflict is returned for duplicate records: an active request for the
	// same book, an existing isbn, or an existing email.
	ErrConflict = errors.New("conflict")

	// ErrCopyCountInvariant is returned when a copy count change would leave
	// availableCopies outside [0, totalCopies].
	ErrCopyCountInvariant = errors.New("copy count invariant violated")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is reports ValidationError as ErrValidation so callers can classify it.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Error constructors shared by the store backends so every backend reports
// the same codes for the same failure.

// NotFoundError wraps ErrNotFound with a KIND_NOT_FOUND code.
func NotFoundError(kind, field, value string) error {
	return oops.Code(strings.ToUpper(kind)+"_NOT_FOUND").With(field, value).Wrap(ErrNotFound)
}

// BookNotFound reports a missing book.
func BookNotFound(id ulid.ULID) error {
	return NotFoundError("book", "book_id", id.String())
}

// UserNotFound reports a missing user.
func UserNotFound(id ulid.ULID) error {
	return NotFoundError("user", "user_id", id.String())
}

// BorrowingNotFound reports a missing borrowing.
func BorrowingNotFound(id ulid.ULID) error {
	return NotFoundError("borrowing", "borrowing_id", id.String())
}

// NoCopyLeft reports a reservation against a book with no available copy.
func NoCopyLeft(bookID ulid.ULID) error {
	return oops.Code("BOOK_UNAVAILABLE").
		With("book_id", bookID.String()).
		Wrapf(ErrUnavailable, "no copies available")
}

// AllCopiesShelved reports a release that would push availableCopies past totalCopies.
func AllCopiesShelved(bookID ulid.ULID) error {
	return oops.Code("COPY_COUNT_INVARIANT").
		With("book_id", bookID.String()).
		Wrapf(ErrCopyCountInvariant, "every copy is already available")
}

// DuplicateRequest reports a second active borrowing for the same user and book.
func DuplicateRequest(userID, bookID ulid.ULID) error {
	return oops.Code("DUPLICATE_REQUEST").
		With("user_id", userID.String()).
		With("book_id", bookID.String()).
		Wrapf(ErrConflict, "an active request for this book already exists")
}

// DuplicateISBN reports an isbn already in the catalog.
func DuplicateISBN(isbn string) error {
	return oops.Code("DUPLICATE_ISBN").With("isbn", isbn).Wrapf(ErrConflict, "a book with isbn %s already exists", isbn)
}

// DuplicateEmail reports an email already registered.
func DuplicateEmail(email string) error {
	return oops.Code("DUPLICATE_EMAIL").With("email", email).Wrapf(ErrConflict, "a user with email %s already exists", email)
}

// CopiesOnLoan reports a total-copies change that would drop below the copies lent out.
func CopiesOnLoan(bookID ulid.ULID, total int) error {
	return oops.Code("COPIES_ON_LOAN").
		With("book_id", bookID.String()).
		With("total_copies", total).
		Wrapf(ErrConflict, "total copies cannot drop below the copies on loan")
}

// InvalidTransitionTo reports a guarded status change whose guard did not match.
func InvalidTransitionTo(id ulid.ULID, status, target Status) error {
	return oops.Code("INVALID_TRANSITION").
		With("borrowing_id", id.String()).
		With("status", status.String()).
		With("target", target.String()).
		Wrapf(ErrInvalidState, "cannot move a %s borrowing to %s", status, target)
}
