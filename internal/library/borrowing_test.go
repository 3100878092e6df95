// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryhub/libraryhub/internal/library"
)

func TestAction_Allows(t *testing.T) {
	tests := []struct {
		action library.Action
		from   library.Status
		want   bool
	}{
		{library.ActionApprove, library.StatusPending, true},
		{library.ActionApprove, library.StatusApproved, false},
		{library.ActionApprove, library.StatusBorrowed, false},
		{library.ActionApprove, library.StatusReturned, false},
		{library.ActionApprove, library.StatusRejected, false},
		{library.ActionReject, library.StatusPending, true},
		{library.ActionReject, library.StatusApproved, false},
		{library.ActionReject, library.StatusRejected, false},
		{library.ActionReturn, library.StatusApproved, true},
		{library.ActionReturn, library.StatusBorrowed, true},
		{library.ActionReturn, library.StatusPending, false},
		{library.ActionReturn, library.StatusReturned, false},
		{library.ActionReturn, library.StatusRejected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+" from "+tt.from.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.action.Allows(tt.from))
		})
	}
}

func TestAction_NeverTargetsBorrowed(t *testing.T) {
	for _, a := range []library.Action{library.ActionApprove, library.ActionReject, library.ActionReturn} {
		assert.NotEqual(t, library.StatusBorrowed, a.Target())
	}
}

func TestAction_FromReturnsCopy(t *testing.T) {
	from := library.ActionReturn.From()
	from[0] = library.StatusPending
	assert.False(t, library.ActionReturn.Allows(library.StatusPending))
}

func TestStatus_Predicates(t *testing.T) {
	assert.True(t, library.StatusPending.Active())
	assert.False(t, library.StatusPending.OnLoan())
	assert.True(t, library.StatusBorrowed.OnLoan())
	assert.True(t, library.StatusReturned.Terminal())
	assert.True(t, library.StatusRejected.Terminal())
	assert.False(t, library.StatusApproved.Terminal())
	assert.False(t, library.Status("lost").Valid())
}

func TestNewBorrowing(t *testing.T) {
	user, book := ulid.Make(), ulid.Make()
	b := library.NewBorrowing(user, book, fixedNow, library.LoanPeriod)

	assert.Equal(t, library.StatusPending, b.Status)
	assert.Equal(t, fixedNow.AddDate(0, 0, 14), b.DueDate)
	assert.Nil(t, b.ReturnDate)
	assert.Nil(t, b.ApprovedBy)
	assert.False(t, b.ID.IsZero())
}

func TestTransition_Apply(t *testing.T) {
	base := *library.NewBorrowing(ulid.Make(), ulid.Make(), fixedNow, library.LoanPeriod)
	at := fixedNow.Add(time.Hour)

	t.Run("approval stamps approver", func(t *testing.T) {
		approver := ulid.Make()
		tr := library.NewTransition(base.ID, library.ActionApprove, at)
		tr.ApprovedBy = &approver

		out := tr.Apply(base)
		assert.Equal(t, library.StatusApproved, out.Status)
		require.NotNil(t, out.ApprovedBy)
		assert.Equal(t, approver, *out.ApprovedBy)
		require.NotNil(t, out.ApprovedAt)
		assert.Equal(t, at, *out.ApprovedAt)
		assert.Nil(t, base.ApprovedBy, "input must not be modified")
	})

	t.Run("return sets return date", func(t *testing.T) {
		out := library.NewTransition(base.ID, library.ActionReturn, at).Apply(base)
		require.NotNil(t, out.ReturnDate)
		assert.Equal(t, at, *out.ReturnDate)
	})

	t.Run("empty notes keep stored notes", func(t *testing.T) {
		withNotes := base
		withNotes.Notes = "first request"
		out := library.NewTransition(base.ID, library.ActionReject, at).Apply(withNotes)
		assert.Equal(t, "first request", out.Notes)
		assert.Equal(t, library.StatusRejected, out.Status)
	})
}

func TestBorrowing_Overdue(t *testing.T) {
	b := library.NewBorrowing(ulid.Make(), ulid.Make(), fixedNow, library.LoanPeriod)
	later := fixedNow.Add(15 * 24 * time.Hour)
	assert.False(t, b.Overdue(later), "pending requests are never overdue")

	b.Status = library.StatusApproved
	assert.True(t, b.Overdue(later))
	assert.False(t, b.Overdue(fixedNow))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, library.OutcomeSuccess, library.OutcomeOf(nil))
	assert.Equal(t, library.OutcomeUnavailable, library.OutcomeOf(library.NoCopyLeft(ulid.Make())))
	assert.Equal(t, library.OutcomeInvariant, library.OutcomeOf(library.AllCopiesShelved(ulid.Make())))
	assert.Equal(t, library.OutcomeConflict, library.OutcomeOf(library.DuplicateISBN("x")))
	assert.Equal(t, library.OutcomeValidation, library.OutcomeOf(&library.ValidationError{Field: "f"}))
}

func TestParseID(t *testing.T) {
	id := library.NewID()
	got, err := library.ParseID("book", id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = library.ParseID("book", "not-a-ulid")
	require.ErrorIs(t, err, library.ErrValidation)
}
