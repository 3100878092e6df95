// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

//go:build integration

package cli_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Seed Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupDatabase(ctx, env.pool)

		output, err := libraryhub(ctx, "migrate")
		Expect(err).NotTo(HaveOccurred(), "migrate failed: %s", output)
		Expect(output).To(ContainSubstring("Migrations completed successfully"))
	})

	Describe("Catalog seeding", func() {
		It("creates the admin and the bundled books", func() {
			output, err := libraryhub(ctx, "seed")
			Expect(err).NotTo(HaveOccurred(), "seed command failed: %s", output)
			Expect(output).To(ContainSubstring("Created admin admin@library.com"))
			Expect(output).To(ContainSubstring("Added 8 books, skipped 0 existing"))

			var role string
			err = env.pool.QueryRow(ctx,
				"SELECT role FROM users WHERE email = $1", "admin@library.com",
			).Scan(&role)
			Expect(err).NotTo(HaveOccurred())
			Expect(role).To(Equal("admin"))

			var books, inconsistent int
			err = env.pool.QueryRow(ctx,
				"SELECT COUNT(*), COUNT(*) FILTER (WHERE available_copies <> total_copies) FROM books",
			).Scan(&books, &inconsistent)
			Expect(err).NotTo(HaveOccurred())
			Expect(books).To(Equal(8))
			Expect(inconsistent).To(BeZero())
		})

		It("is idempotent (running twice succeeds without duplicates)", func() {
			output1, err := libraryhub(ctx, "seed")
			Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", output1)
			Expect(output1).To(ContainSubstring("Added 8 books"))

			output2, err := libraryhub(ctx, "seed")
			Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", output2)
			Expect(output2).To(ContainSubstring("Admin admin@library.com already exists"))
			Expect(output2).To(ContainSubstring("Added 0 books, skipped 8 existing"))

			var count int
			err = env.pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&count)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(8))
		})
	})

	Describe("Audit after seeding", func() {
		It("reports a clean catalog", func() {
			output, err := libraryhub(ctx, "seed")
			Expect(err).NotTo(HaveOccurred(), "seed failed: %s", output)

			output, err = libraryhub(ctx, "--json", "audit")
			Expect(err).NotTo(HaveOccurred(), "audit failed: %s", output)

			var report struct {
				BooksChecked  int   `json:"booksChecked"`
				Discrepancies []any `json:"discrepancies"`
			}
			Expect(json.Unmarshal([]byte(output), &report)).To(Succeed())
			Expect(report.BooksChecked).To(Equal(8))
			Expect(report.Discrepancies).To(BeEmpty())
		})
	})

	Describe("Status", func() {
		It("reports the postgres schema version", func() {
			output, err := libraryhub(ctx, "--json", "status")
			Expect(err).NotTo(HaveOccurred(), "status failed: %s", output)

			var status struct {
				Driver        string `json:"driver"`
				Reachable     bool   `json:"reachable"`
				SchemaVersion uint   `json:"schemaVersion"`
				LatestVersion uint   `json:"latestVersion"`
			}
			Expect(json.Unmarshal([]byte(output), &status)).To(Succeed())
			Expect(status.Driver).To(Equal("postgres"))
			Expect(status.Reachable).To(BeTrue())
			Expect(status.SchemaVersion).NotTo(BeZero())
			Expect(status.SchemaVersion).To(Equal(status.LatestVersion))
		})
	})
})
