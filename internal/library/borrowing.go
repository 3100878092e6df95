// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle state of a borrowing.
type Status string

// Borrowing statuses.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
	StatusRejected Status = "rejected"
)

// AllStatuses lists every status value in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusApproved, StatusBorrowed, StatusReturned, StatusRejected}

// ActiveStatuses are the statuses that block a second request for the same book.
var ActiveStatuses = []Status{StatusPending, StatusApproved, StatusBorrowed}

// LoanStatuses are the statuses that hold a copy of the book.
var LoanStatuses = []Status{StatusApproved, StatusBorrowed}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(AllStatuses, s)
}

// Active reports whether s is pending or holds a copy.
func (s Status) Active() bool {
	return slices.Contains(ActiveStatuses, s)
}

// OnLoan reports whether s holds a copy of the book.
func (s Status) OnLoan() bool {
	return slices.Contains(LoanStatuses, s)
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusReturned || s == StatusRejected
}

// Action is an admin-driven lifecycle edge.
type Action string

// Lifecycle actions.
const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionReturn  Action = "return"
)

// edges is the single authority on which statuses each action may leave from.
// No action targets StatusBorrowed; it is only ever read.
var edges = map[Action]struct {
	from []Status
	to   Status
}{
	ActionApprove: {from: []Status{StatusPending}, to: StatusApproved},
	ActionReject:  {from: []Status{StatusPending}, to: StatusRejected},
	ActionReturn:  {from: []Status{StatusApproved, StatusBorrowed}, to: StatusReturned},
}

// From returns the statuses the action may leave from.
func (a Action) From() []Status {
	return slices.Clone(edges[a].from)
}

// Target returns the status the action moves to.
func (a Action) Target() Status {
	return edges[a].to
}

// Allows reports whether the action may leave from s.
func (a Action) Allows(s Status) bool {
	return slices.Contains(edges[a].from, s)
}

// LoanPeriod is the default time between request and due date.
const LoanPeriod = 14 * 24 * time.Hour

// Borrowing is one user's request, loan, and return cycle for one book copy.
type Borrowing struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	BookID     ulid.ULID
	Status     Status
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	ApprovedBy *ulid.ULID
	ApprovedAt *time.Time
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewBorrowing builds a pending borrowing due period after now.
func NewBorrowing(userID, bookID ulid.ULID, now time.Time, period time.Duration) *Borrowing {
	return &Borrowing{
		ID:         NewID(),
		UserID:     userID,
		BookID:     bookID,
		Status:     StatusPending,
		BorrowDate: now,
		DueDate:    now.Add(period),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Overdue reports whether a loan is still held after its due date.
func (b *Borrowing) Overdue(now time.Time) bool {
	return b.Status.OnLoan() && now.After(b.DueDate)
}

// Transition describes a guarded status change. Stores apply it only when the
// current status is one of From, and report ErrInvalidState otherwise.
type Transition struct {
	ID         ulid.ULID
	From       []Status
	To         Status
	At         time.Time
	ApprovedBy *ulid.ULID // set on approval
	Notes      string     // replaces stored notes when non-empty
}

// NewTransition builds the transition for action on borrowing id at time at.
func NewTransition(id ulid.ULID, action Action, at time.Time) Transition {
	return Transition{ID: id, From: action.From(), To: action.Target(), At: at}
}

// Apply returns a copy of b after the transition. It does not check the guard.
// Stores use it to compute the record they persist.
func (t Transition) Apply(b Borrowing) Borrowing {
	at := t.At
	b.Status = t.To
	b.UpdatedAt = at
	switch t.To {
	case StatusApproved:
		b.ApprovedAt = &at
		if t.ApprovedBy != nil {
			id := *t.ApprovedBy
			b.ApprovedBy = &id
		}
	case StatusReturned:
		b.ReturnDate = &at
	}
	if t.Notes != "" {
		b.Notes = t.Notes
	}
	return b
}

// BookSummary holds the book fields shown next to a borrowing.
type BookSummary struct {
	ID       ulid.ULID
	Title    string
	Author   string
	ISBN     string
	ImageURL string
}

// UserSummary holds the user fields shown next to a borrowing.
type UserSummary struct {
	ID    ulid.ULID
	Name  string
	Email string
}

// BorrowingView is a borrowing with display fields resolved. Book is nil when
// the book has since been deleted.
type BorrowingView struct {
	Borrowing
	Book     *BookSummary
	User     *UserSummary
	Approver *UserSummary
}

func summarizeBook(b *Book) *BookSummary {
	if b == nil {
		return nil
	}
	return &BookSummary{ID: b.ID, Title: b.Title, Author: b.Author, ISBN: b.ISBN, ImageURL: b.ImageURL}
}

func summarizeUser(u *User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
