// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryhub/libraryhub/internal/library"
)

func TestBookInput_Validate(t *testing.T) {
	in := hobbit()
	in.Title = "  The Hobbit  "
	require.NoError(t, in.Validate(fixedNow))
	assert.Equal(t, "The Hobbit", in.Title)

	long := hobbit()
	long.Description = strings.Repeat("x", library.MaxDescriptionLength+1)
	var verr *library.ValidationError
	require.ErrorAs(t, long.Validate(fixedNow), &verr)
	assert.Equal(t, "description", verr.Field)
}

func TestBookPatch_Apply(t *testing.T) {
	in := hobbit()
	require.NoError(t, in.Validate(fixedNow))
	book := library.NewBook(in, fixedNow)
	book.AvailableCopies = 1 // two copies out

	t.Run("shifts available by the total delta", func(t *testing.T) {
		out, err := library.BookPatch{TotalCopies: ptr(5)}.Apply(book, 2, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, 3, out.AvailableCopies)
		assert.Equal(t, 1, book.AvailableCopies, "input must not be modified")
	})

	t.Run("refuses totals below loans", func(t *testing.T) {
		_, err := library.BookPatch{TotalCopies: ptr(1)}.Apply(book, 2, fixedNow)
		require.ErrorIs(t, err, library.ErrConflict)
	})

	t.Run("blank text fields are ignored", func(t *testing.T) {
		out, err := library.BookPatch{Title: ptr("  "), Author: ptr("Tolkien")}.Apply(book, 2, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, "The Hobbit", out.Title)
		assert.Equal(t, "Tolkien", out.Author)
	})

	t.Run("validates year", func(t *testing.T) {
		_, err := library.BookPatch{PublishedYear: ptr(1500)}.Apply(book, 2, fixedNow)
		require.ErrorIs(t, err, library.ErrValidation)
	})

	assert.True(t, library.BookPatch{}.Empty())
	assert.False(t, library.BookPatch{Genre: ptr("Classic")}.Empty())
}
