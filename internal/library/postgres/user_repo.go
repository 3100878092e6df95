// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/libraryhub/libraryhub/internal/library"
)

const userColumns = `id, name, email, role, phone, address, created_at, updated_at`

// UserRepository implements library.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id ulid.ULID) (*library.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.UserNotFound(id)
	}
	if err != nil {
		return nil, oops.With("operation", "get user").With("id", id.String()).Wrap(err)
	}
	return u, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*library.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, library.NotFoundError("user", "email", email)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by email").Wrap(err)
	}
	return u, nil
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *library.User) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID.String(), u.Name, u.Email, string(u.Role), u.Phone, u.Address, u.CreatedAt, u.UpdatedAt)
	if uniqueViolation(err) != "" {
		return library.DuplicateEmail(u.Email)
	}
	if err != nil {
		return oops.With("operation", "create user").With("id", u.ID.String()).Wrap(err)
	}
	return nil
}

func scanUser(row pgx.Row) (*library.User, error) {
	var (
		u       library.User
		idStr   string
		roleStr string
	)
	if err := row.Scan(&idStr, &u.Name, &u.Email, &roleStr, &u.Phone, &u.Address, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}
	id, err := parseULID(idStr, "user_id")
	if err != nil {
		return nil, err
	}
	u.ID = id
	u.Role = library.Role(roleStr)
	return &u, nil
}
