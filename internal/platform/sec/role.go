// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted access, including the admin console
	RoleAdmin UserRole = "admin"

	// Default role for standard registered users
	RoleUser UserRole = "user"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Toggled returns the opposite role. Used by the admin role flip operation.
func (r UserRole) Toggled() UserRole {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// # Identity

// Identity is the resolved caller attached to the request context after
// authentication. It is deliberately small: handlers that need the full
// account row load it through the user store.
type Identity struct {
	UserID int64
	Email  string
	Role   UserRole
}

// IsAdmin reports whether the identity may use the admin surface.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
