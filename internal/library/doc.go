// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

// Package library contains the book, user, and borrowing domain types and
// the services that drive the borrowing lifecycle.
//
// A borrowing moves pending -> approved -> returned, or pending -> rejected.
// Approval takes a copy of the book and return gives it back, so for every
// book availableCopies equals totalCopies minus its approved or borrowed loans.
package library
