// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LibraryHub Contributors

package library

import (
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role is the authorization role of a user.
type Role string

// Roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a library member or administrator.
type User struct {
	ID        ulid.ULID
	Name      string
	Email     string
	Role      Role
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserInput carries the fields needed to register a user.
type UserInput struct {
	Name    string
	Email   string
	Role    Role
	Phone   string
	Address string
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the input and fills the role default.
func (in *UserInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if len(in.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Message: "too long"}
	}
	if in.Email == "" {
		return &ValidationError{Field: "email", Message: "cannot be empty"}
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return &ValidationError{Field: "email", Message: "must be a valid address"}
	}
	if in.Role == "" {
		in.Role = RoleUser
	}
	if !in.Role.Valid() {
		return &ValidationError{Field: "role", Message: "must be user or admin"}
	}
	return nil
}

// Actor is an already-authenticated caller.
type Actor struct {
	UserID ulid.ULID
	Role   Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Anonymous reports whether no identity was supplied.
func (a Actor) Anonymous() bool {
	return a.UserID.IsZero()
}

// ActorFor returns the actor identity of a stored user.
func ActorFor(u *User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}
