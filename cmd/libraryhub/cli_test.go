// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryhub/libraryhub/internal/config"
	"github.com/libraryhub/libraryhub/internal/library"
	"github.com/libraryhub/libraryhub/internal/library/memory"
)

// harness runs CLI invocations against one shared in-memory store.
type harness struct {
	t     *testing.T
	store *memory.Store
	deps  *Deps
	env   map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, store: memory.New(), env: map[string]string{}}
	missing := filepath.Join(t.TempDir(), "missing")
	h.deps = &Deps{
		BackendOpener: func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
			return memoryBackend(h.store), nil
		},
		ConfigFileGetter: func() (string, error) { return missing + ".yaml", nil },
		EnvFileGetter:    func() (string, error) { return missing + ".env", nil },
		LookupEnv: func(k string) (string, bool) {
			v, ok := h.env[k]
			return v, ok
		},
	}
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.DiscardHandler)) })
	return h
}

// exec runs one command line and returns stdout and the error.
func (h *harness) exec(args ...string) (string, error) {
	h.t.Helper()
	return h.execContext(context.Background(), args...)
}

func (h *harness) execContext(ctx context.Context, args ...string) (string, error) {
	h.t.Helper()
	out, _, err := h.execStreams(ctx, args...)
	return out, err
}

// execStreams runs a command and returns its stdout and stderr separately.
func (h *harness) execStreams(ctx context.Context, args ...string) (string, string, error) {
	h.t.Helper()
	cmd := NewRootCmd(h.deps)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level=error"}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

// mustJSON runs a command with --json and decodes its output into v.
func (h *harness) mustJSON(v any, args ...string) {
	h.t.Helper()
	out, err := h.exec(append(args, "--json")...)
	require.NoError(h.t, err, out)
	require.NoError(h.t, json.Unmarshal([]byte(out), v), out)
}

func (h *harness) seedAdmin() {
	h.t.Helper()
	_, err := h.exec("seed", "--admin-only")
	require.NoError(h.t, err)
}

func (h *harness) addMember(name, email string) string {
	h.t.Helper()
	var u userJSON
	h.mustJSON(&u, "user", "add", "--name", name, "--email", email)
	return u.ID
}

func (h *harness) addBook(isbn string, copies string) string {
	h.t.Helper()
	var b bookJSON
	h.mustJSON(&b, "book", "add", "--as", defaultAdminEmail,
		"--title", "The Hobbit", "--author", "J.R.R. Tolkien", "--isbn", isbn,
		"--genre", "Fantasy", "--year", "1937", "--copies", copies)
	return b.ID
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd(nil)

	want := []string{"serve", "migrate", "seed", "status", "audit", "book", "user", "borrow"}
	var got []string
	for _, sub := range cmd.Commands() {
		got = append(got, sub.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestRootCommand_Help(t *testing.T) {
	cmd := NewRootCmd(nil)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	for _, flag := range []string{"--config", "--store", "--loan-period", "--log-format", "--timeout", "--json"} {
		assert.Contains(t, out.String(), flag)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec("status", "--log-format=xml")
	require.Error(t, err)
	assert.Equal(t, exitInvalidInput, exitCode(err))

	_, err = h.exec("status", "--store=postgres")
	require.Error(t, err)
	assert.Equal(t, exitInvalidInput, exitCode(err), "postgres without DATABASE_URL")
}

func TestSeed(t *testing.T) {
	h := newHarness(t)

	out, err := h.exec("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Created admin admin@library.com")
	assert.Contains(t, out, "Added 8 books, skipped 0 existing")

	out, err = h.exec("seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Admin admin@library.com already exists")
	assert.Contains(t, out, "Added 0 books, skipped 8 existing")

	var books []bookJSON
	h.mustJSON(&books, "book", "list")
	assert.Len(t, books, 8)
}

func TestSeed_RejectsNonAdminEmail(t *testing.T) {
	h := newHarness(t)
	h.addMember("Reader", "reader@example.com")

	_, err := h.exec("seed", "--admin-email", "reader@example.com")
	require.Error(t, err)
	assert.Equal(t, exitForbidden, exitCode(err))
}

func TestParseCatalog(t *testing.T) {
	books, err := parseCatalog(defaultCatalog)
	require.NoError(t, err)
	require.Len(t, books, 8)
	assert.Equal(t, "1984", books[2].Title)
	assert.Equal(t, 4, books[2].TotalCopies)

	_, err = parseCatalog([]byte("books:\n  - title: X\n    copies: 2\n"))
	require.Error(t, err, "unknown keys are rejected")

	_, err = parseCatalog([]byte("books: []\n"))
	require.Error(t, err)
}

func TestBookCommands(t *testing.T) {
	h := newHarness(t)
	h.seedAdmin()
	id := h.addBook("978-0547928227", "3")

	out, err := h.exec("book", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "The Hobbit")
	assert.Contains(t, out, "3 of 3 available")

	var updated bookJSON
	h.mustJSON(&updated, "book", "update", id, "--as", defaultAdminEmail, "--copies", "5")
	assert.Equal(t, 5, updated.TotalCopies)
	assert.Equal(t, 5, updated.AvailableCopies)
	assert.Equal(t, "The Hobbit", updated.Title, "unset flags leave fields alone")

	_, err = h.exec("book", "delete", id, "--as", defaultAdminEmail)
	require.NoError(t, err)

	_, err = h.exec("book", "show", id)
	require.Error(t, err)
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestBookCommands_Errors(t *testing.T) {
	h := newHarness(t)
	h.seedAdmin()
	h.addMember("Reader", "reader@example.com")
	h.addBook("978-0547928227", "1")

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"member cannot add", []string{"book", "add", "--as", "reader@example.com", "--title", "T", "--author", "A",
			"--isbn", "1", "--genre", "G", "--year", "2000"}, exitForbidden},
		{"missing identity", []string{"book", "add", "--title", "T"}, exitForbidden},
		{"unknown actor", []string{"book", "add", "--as", "ghost@example.com"}, exitNotFound},
		{"duplicate isbn", []string{"book", "add", "--as", defaultAdminEmail, "--title", "T", "--author", "A",
			"--isbn", "978-0547928227", "--genre", "G", "--year", "2000"}, exitConflict},
		{"invalid book", []string{"book", "add", "--as", defaultAdminEmail, "--title", "T"}, exitInvalidInput},
		{"malformed id", []string{"book", "show", "not-an-id"}, exitInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.exec(tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err), "%v", err)
		})
	}
}

func TestUserCommands(t *testing.T) {
	h := newHarness(t)
	h.seedAdmin()

	id := h.addMember("Ada Reader", "Ada@Example.com")

	out, err := h.exec("user", "show", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Role:")

	out, err = h.exec("user", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")

	_, err = h.exec("user", "add", "--name", "Again", "--email", "ada@example.com")
	assert.Equal(t, exitConflict, exitCode(err))

	_, err = h.exec("user", "add", "--name", "Mallory", "--email", "m@example.com", "--role", "admin", "--as", "ada@example.com")
	assert.Equal(t, exitForbidden, exitCode(err))

	var admin userJSON
	h.mustJSON(&admin, "user", "add", "--name", "Second Admin", "--email", "admin2@library.com",
		"--role", "admin", "--as", defaultAdminEmail)
	assert.Equal(t, "admin", admin.Role)
}

func TestBorrowLifecycle(t *testing.T) {
	h := newHarness(t)
	h.seedAdmin()
	h.addMember("Reader", "reader@example.com")
	bookID := h.addBook("978-0547928227", "1")

	var req borrowingJSON
	h.mustJSON(&req, "borrow", "request", bookID, "--as", "reader@example.com")
	assert.Equal(t, "pending", req.Status)
	require.NotNil(t, req.Book)
	assert.Equal(t, "The Hobbit", req.Book.Title)

	var approved borrowingJSON
	h.mustJSON(&approved, "borrow", "approve", req.ID, "--as", defaultAdminEmail)
	assert.Equal(t, "approved", approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	var book bookJSON
	h.mustJSON(&book, "book", "show", bookID)
	assert.Equal(t, 0, book.AvailableCopies)

	var returned borrowingJSON
	_, err := h.exec("borrow", "return", req.ID, "--as", "reader@example.com")
	assert.Equal(t, exitForbidden, exitCode(err), "returns are recorded by an admin")

	h.mustJSON(&returned, "borrow", "return", req.ID, "--as", defaultAdminEmail)
	assert.Equal(t, "returned", returned.Status)
	assert.NotNil(t, returned.ReturnDate)

	h.mustJSON(&book, "book", "show", bookID)
	assert.Equal(t, 1, book.AvailableCopies)

	var mine []borrowingJSON
	h.mustJSON(&mine, "borrow", "list", "--as", "reader@example.com")
	require.Len(t, mine, 1)
	assert.Equal(t, "returned", mine[0].Status)

	_, err = h.exec("borrow", "approve", req.ID, "--as", defaultAdminEmail)
	assert.Equal(t, exitInvalidState, exitCode(err), "terminal states are final")
}

func TestBorrowCommands_Errors(t *testing.T) {
	h := newHarness(t)
	h.seedAdmin()
	h.addMember("Reader", "reader@example.com")
	h.addMember("Other", "other@example.com")
	bookID := h.addBook("978-0547928227", "1")

	var first, second borrowingJSON
	h.mustJSON(&first, "borrow", "request", bookID, "--as", "reader@example.com")
	h.mustJSON(&second, "borrow", "request", bookID, "--as", "other@example.com")

	_, err := h.exec("borrow", "request", bookID, "--as", defaultAdminEmail)
	assert.Equal(t, exitForbidden, exitCode(err), "admins cannot borrow")

	_, err = h.exec("borrow", "request", bookID, "--as", "reader@example.com")
	assert.Equal(t, exitConflict, exitCode(err), "duplicate request")

	_, err = h.exec("borrow", "approve", first.ID, "--as", "reader@example.com")
	assert.Equal(t, exitForbidden, exitCode(err), "members cannot approve")

	_, err = h.exec("borrow", "approve", first.ID, "--as", defaultAdminEmail)
	require.NoError(t, err)

	_, err = h.exec("borrow", "approve", second.ID, "--as", defaultAdminEmail)
	assert.Equal(t, exitUnavailable, exitCode(err), "last copy already lent")

	_, err = h.exec("borrow", "request", bookID, "--as", "reader@example.com")
	assert.Equal(t, exitUnavailable, exitCode(err), "no copy left to request")

	var rejected borrowingJSON
	h.mustJSON(&rejected, "borrow", "reject", second.ID, "--as", defaultAdminEmail, "--notes", "no copies")
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "no copies", rejected.Notes)

	_, err = h.exec("borrow", "show", first.ID, "--as", "other@example.com")
	assert.Equal(t, exitForbidden, exitCode(err), "members only see their own")

	_, err = h.exec("borrow", "list", "--all", "--as", "reader@example.com")
	assert.Equal(t, exitForbidden, exitCode(err))

	var all []borrowingJSON
	h.mustJSON(&all, "borrow", "list", "--all", "--as", defaultAdminEmail)
	assert.Len(t, all, 2)
}

func TestAuditCommand(t *testing.T) {
	h := newHarness(t)
	h.seedAdmin()
	bookID := h.addBook("978-0547928227", "2")

	out, err := h.exec("audit")
	require.NoError(t, err)
	assert.Contains(t, out, "no discrepancies")

	// Record a loan behind the service's back so the counter is stale.
	id, err := library.ParseID("book", bookID)
	require.NoError(t, err)
	loan := library.NewBorrowing(library.NewID(), id, time.Now(), library.LoanPeriod)
	loan.Status = library.StatusApproved
	require.NoError(t, h.store.Bundle().Borrowings.Create(context.Background(), loan))

	var report auditJSON
	out, err = h.exec("audit", "--json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errAuditFailed))
	assert.Equal(t, exitAuditDiscrepancy, exitCode(err))
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Clean)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, 1, report.Discrepancies[0].Expected)
	assert.Equal(t, 2, report.Discrepancies[0].AvailableCopies)
}

func TestStatusCommand(t *testing.T) {
	h := newHarness(t)
	h.seedAdmin()
	h.addBook("978-0547928227", "1")

	var st StoreStatus
	h.mustJSON(&st, "status")
	assert.Equal(t, config.DriverMemory, st.Driver)
	assert.True(t, st.Reachable)
	assert.Equal(t, 1, st.Books)
	assert.Empty(t, st.Error)
}

func TestStatusCommand_Unreachable(t *testing.T) {
	h := newHarness(t)
	h.deps.BackendOpener = func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
		b := memoryBackend(h.store)
		b.Ping = func(context.Context) error { return errors.New("connection refused") }
		return b, nil
	}

	out, err := h.exec("status")
	require.NoError(t, err)
	assert.Contains(t, out, "unreachable")
	assert.Contains(t, out, "connection refused")
}

func TestMemoryStoreWarning(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.execStreams(context.Background(), "--log-level=warn", "book", "list")
	require.NoError(t, err)
	assert.Contains(t, stderr, "in-memory store")
	assert.Contains(t, stderr, "libraryhub book list")

	_, stderr, err = h.execStreams(context.Background(), "book", "list")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	h.deps.BackendOpener = func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
		b := memoryBackend(h.store)
		b.Driver = config.DriverPostgres
		return b, nil
	}
	_, stderr, err = h.execStreams(context.Background(), "--log-level=warn", "book", "list")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "in-memory store")
}
