package users

import (
	"time"

	"docmgmt-backend/internal/shared/auth"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Role         auth.Role `json:"role"`
	// RefreshTokenHash is empty while no session is active.
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasSession reports whether a refresh token is currently accepted for the user.
func (u User) HasSession() bool {
	return u.RefreshTokenHash != ""
}

// NewUser carries the fields needed to create a user.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     string
	Role         auth.Role
}

// UpdateInput holds optional admin changes. Nil fields are left untouched.
type UpdateInput struct {
	FullName *string `json:"fullName"`
	Role     *string `json:"role"`
}
