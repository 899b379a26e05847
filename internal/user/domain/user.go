package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the core user entity. The password hash never leaves the
// repository/service layers; handlers serialize users without it.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is the user's authorization role. Roles are compared by exact
// membership in a route's required set; ADMIN does not imply USER.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// NormalizeRole upper-cases a role string for comparison against the
// declared role set of a route.
func NormalizeRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// Validate validates the user for persistence. Returns an error describing
// the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
