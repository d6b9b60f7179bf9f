package permissions

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("permission not found")
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidInput = errors.New("invalid permission input")
)

type Repo interface {
	ListForUser(ctx context.Context, userID int64) ([]Permission, error)
	// Upsert inserts or replaces the (UserID, Module) row.
	Upsert(ctx context.Context, p Permission) (Permission, error)
	Delete(ctx context.Context, userID int64, module string) error
}
