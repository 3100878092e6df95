// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package memory

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/libraryhub/libraryhub/internal/library"
)

// UserRepository implements library.UserRepository in memory.
type UserRepository struct {
	s *Store
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id ulid.ULID) (*library.User, error) {
	var out *library.User
	err := r.s.read(ctx, func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return library.UserNotFound(id)
		}
		out = &u
		return nil
	})
	return out, err
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*library.User, error) {
	var out *library.User
	err := r.s.read(ctx, func(t *tables) error {
		for _, u := range t.users {
			if u.Email == email {
				out = &u
				return nil
			}
		}
		return library.NotFoundError("user", "email", email)
	})
	return out, err
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *library.User) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, existing := range t.users {
			if existing.Email == u.Email {
				return library.DuplicateEmail(u.Email)
			}
		}
		t.users[u.ID] = *u
		return nil
	})
}
