// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/libraryhub/libraryhub/internal/library"
)

type discrepancyJSON struct {
	BookID          string `json:"bookId"`
	Title           string `json:"title"`
	TotalCopies     int    `json:"totalCopies"`
	AvailableCopies int    `json:"availableCopies"`
	ActiveLoans     int    `json:"activeLoans"`
	Expected        int    `json:"expected"`
}

type auditJSON struct {
	BooksChecked  int               `json:"booksChecked"`
	OrphanedLoans int               `json:"orphanedLoans"`
	Clean         bool              `json:"clean"`
	Discrepancies []discrepancyJSON `json:"discrepancies"`
}

func toAuditJSON(r *library.AuditReport) auditJSON {
	out := auditJSON{
		BooksChecked:  r.BooksChecked,
		OrphanedLoans: r.OrphanedLoans,
		Clean:         r.Clean(),
		Discrepancies: make([]discrepancyJSON, 0, len(r.Discrepancies)),
	}
	for _, d := range r.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, discrepancyJSON{
			BookID:          d.BookID.String(),
			Title:           d.Title,
			TotalCopies:     d.TotalCopies,
			AvailableCopies: d.AvailableCopies,
			ActiveLoans:     d.ActiveLoans,
			Expected:        d.Expected,
		})
	}
	return out
}

func newAuditCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check every book's available copies against its active loans",
		Long: `Recomputes totalCopies minus active loans for every book and reports each
book whose stored available count differs. Exits with status 9 when any
discrepancy is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, nil, func(ctx context.Context, a *app) error {
				report, err := a.borrowing.Audit(ctx)
				if err != nil {
					return err
				}
				if err := c.render(cmd, toAuditJSON(report), func(w io.Writer) { printAudit(w, report) }); err != nil {
					return err
				}
				if !report.Clean() {
					return oops.Code("AUDIT_FAILED").
						With("discrepancies", len(report.Discrepancies)).
						Wrap(errAuditFailed)
				}
				return nil
			})
		},
	}
}

func printAudit(w io.Writer, r *library.AuditReport) {
	if r.Clean() {
		fmt.Fprintf(w, "OK: %d books checked, no discrepancies\n", r.BooksChecked)
	} else {
		fmt.Fprintln(w, "BOOK\tTITLE\tTOTAL\tAVAILABLE\tLOANS\tEXPECTED")
		for _, d := range r.Discrepancies {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", d.BookID, d.Title, d.TotalCopies, d.AvailableCopies, d.ActiveLoans, d.Expected)
		}
	}
	if r.OrphanedLoans > 0 {
		fmt.Fprintf(w, "%d active loans reference deleted books\n", r.OrphanedLoans)
	}
}
