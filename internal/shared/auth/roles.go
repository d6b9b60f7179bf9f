package auth

import "strings"

// Role is the coarse identity class used for route gating.
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleViewer, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalizes raw and reports whether it names a known role.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	return r, r.Valid()
}
