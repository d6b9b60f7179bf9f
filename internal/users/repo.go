package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidInput = errors.New("invalid user input")
)

type Repo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	// Update persists FullName and Role.
	Update(ctx context.Context, user User) (User, error)
	// SetRefreshTokenHash stores hash; an empty hash clears the session.
	SetRefreshTokenHash(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}
