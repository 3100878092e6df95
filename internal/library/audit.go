// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Discrepancy describes a book whose counter disagrees with its loans.
type Discrepancy struct {
	BookID          ulid.ULID
	Title           string
	TotalCopies     int
	AvailableCopies int
	ActiveLoans     int
	Expected        int
}

// AuditReport is the result of an invariant audit.
type AuditReport struct {
	BooksChecked  int
	Discrepancies []Discrepancy
	// OrphanedLoans counts active loans whose book was deleted.
	OrphanedLoans int
}

// Clean reports whether every counter matched.
func (r *AuditReport) Clean() bool {
	return len(r.Discrepancies) == 0
}

// Audit recomputes totalCopies minus active loans for every book and reports
// each book whose stored counter differs or lies outside [0, totalCopies].
func (s *BorrowingService) Audit(ctx context.Context) (*AuditReport, error) {
	books, err := s.books.List(ctx)
	if err != nil {
		return nil, oops.With("operation", "audit").Wrap(err)
	}
	loans, err := s.borrowings.CountActiveByBook(ctx)
	if err != nil {
		return nil, oops.With("operation", "audit").Wrap(err)
	}

	report := &AuditReport{BooksChecked: len(books)}
	seen := make(map[ulid.ULID]bool, len(books))
	for _, b := range books {
		seen[b.ID] = true
		expected := b.TotalCopies - loans[b.ID]
		if b.AvailableCopies == expected && b.CopiesConsistent() {
			continue
		}
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			BookID:          b.ID,
			Title:           b.Title,
			TotalCopies:     b.TotalCopies,
			AvailableCopies: b.AvailableCopies,
			ActiveLoans:     loans[b.ID],
			Expected:        expected,
		})
	}
	for id, n := range loans {
		if !seen[id] {
			report.OrphanedLoans += n
		}
	}

	for _, d := range report.Discrepancies {
		s.logger.WarnContext(ctx, "copy count discrepancy",
			"book_id", d.BookID.String(),
			"available_copies", d.AvailableCopies,
			"expected", d.Expected)
	}
	return report, nil
}
