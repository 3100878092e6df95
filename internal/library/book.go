// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Validation limits for catalog records.
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 4000
	MinPublishedYear     = 1800
)

// DefaultImageURL is the cover shown for books added without one.
const DefaultImageURL = "https://via.placeholder.com/300x400?text=Book+Cover"

// Book is a catalog entry with a copy counter.
// AvailableCopies is only changed by the borrowing lifecycle.
type Book struct {
	ID              ulid.ULID
	Title           string
	Author          string
	ISBN            string
	Genre           string
	Description     string
	PublishedYear   int
	TotalCopies     int
	AvailableCopies int
	ImageURL        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OnLoan returns the number of copies the counter says are lent out.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

// CopiesConsistent reports whether 0 <= AvailableCopies <= TotalCopies.
func (b *Book) CopiesConsistent() bool {
	return b.AvailableCopies >= 0 && b.AvailableCopies <= b.TotalCopies
}

// BookInput carries the fields needed to add a book.
type BookInput struct {
	Title         string `yaml:"title"`
	Author        string `yaml:"author"`
	ISBN          string `yaml:"isbn"`
	Genre         string `yaml:"genre"`
	Description   string `yaml:"description"`
	PublishedYear int    `yaml:"publishedYear"`
	TotalCopies   int    `yaml:"totalCopies"`
	ImageURL      string `yaml:"imageUrl"`
}

// Validate trims the input and checks it against the catalog rules.
// now bounds the published year.
func (in *BookInput) Validate(now time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Genre = strings.TrimSpace(in.Genre)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)

	for _, f := range []struct{ name, value string }{
		{"title", in.Title},
		{"author", in.Author},
		{"isbn", in.ISBN},
		{"genre", in.Genre},
	} {
		if err := validateText(f.name, f.value, MaxNameLength); err != nil {
			return err
		}
	}
	if len(in.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("exceeds maximum length of %d", MaxDescriptionLength)}
	}
	if err := validateYear(in.PublishedYear, now); err != nil {
		return err
	}
	if in.TotalCopies < 1 {
		return &ValidationError{Field: "totalCopies", Message: "must be at least 1"}
	}
	return nil
}

// NewBook builds a book from validated input with every copy available.
func NewBook(in BookInput, now time.Time) *Book {
	img := in.ImageURL
	if img == "" {
		img = DefaultImageURL
	}
	return &Book{
		ID:              NewID(),
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		Genre:           in.Genre,
		Description:     in.Description,
		PublishedYear:   in.PublishedYear,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		ImageURL:        img,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// BookPatch holds optional replacements for an existing book.
// Nil fields are left unchanged.
type BookPatch struct {
	Title         *string
	Author        *string
	ISBN          *string
	Genre         *string
	Description   *string
	PublishedYear *int
	TotalCopies   *int
	ImageURL      *string
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.ISBN == nil && p.Genre == nil &&
		p.Description == nil && p.PublishedYear == nil && p.TotalCopies == nil && p.ImageURL == nil
}

// Apply copies the patch onto a clone of b and validates the result.
// A TotalCopies change shifts AvailableCopies by the same delta; activeLoans
// is the number of active borrowings and bounds how far the total may drop.
func (p BookPatch) Apply(b *Book, activeLoans int, now time.Time) (*Book, error) {
	out := *b
	setText := func(dst *string, src *string) {
		if src != nil && strings.TrimSpace(*src) != "" {
			*dst = strings.TrimSpace(*src)
		}
	}
	setText(&out.Title, p.Title)
	setText(&out.Author, p.Author)
	setText(&out.ISBN, p.ISBN)
	setText(&out.Genre, p.Genre)
	setText(&out.ImageURL, p.ImageURL)
	if p.Description != nil {
		out.Description = strings.TrimSpace(*p.Description)
	}
	if p.PublishedYear != nil {
		if err := validateYear(*p.PublishedYear, now); err != nil {
			return nil, err
		}
		out.PublishedYear = *p.PublishedYear
	}
	if len(out.Title) > MaxNameLength || len(out.Author) > MaxNameLength {
		return nil, &ValidationError{Field: "title", Message: fmt.Sprintf("exceeds maximum length of %d", MaxNameLength)}
	}
	if len(out.Description) > MaxDescriptionLength {
		return nil, &ValidationError{Field: "description", Message: fmt.Sprintf("exceeds maximum length of %d", MaxDescriptionLength)}
	}
	if p.TotalCopies != nil {
		total := *p.TotalCopies
		if total < 1 {
			return nil, &ValidationError{Field: "totalCopies", Message: "must be at least 1"}
		}
		available := out.AvailableCopies + total - out.TotalCopies
		if total < activeLoans || available < 0 {
			return nil, fmt.Errorf("%w: %d copies are on loan, total cannot drop to %d", ErrConflict, max(activeLoans, out.OnLoan()), total)
		}
		out.AvailableCopies = available
		out.TotalCopies = total
	}
	out.UpdatedAt = now
	return &out, nil
}

func validateText(field, value string, maxLen int) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "cannot be empty"}
	}
	if len(value) > maxLen {
		return &ValidationError{Field: field, Message: fmt.Sprintf("exceeds maximum length of %d", maxLen)}
	}
	return nil
}

func validateYear(year int, now time.Time) error {
	if year < MinPublishedYear || year > now.Year() {
		return &ValidationError{
			Field:   "publishedYear",
			Message: fmt.Sprintf("must be between %d and %d", MinPublishedYear, now.Year()),
		}
	}
	return nil
}
