package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/telemetry"
)

type Service struct {
	Repo Repo
	// OnDelete runs after a user row is removed. Postgres cascades on its own;
	// in-memory wiring uses it to drop dependent records.
	OnDelete func(ctx context.Context, userID int64) error
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Create(ctx context.Context, in NewUser) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email := NormalizeEmail(in.Email)
	if email == "" || in.PasswordHash == "" {
		return User{}, fmt.Errorf("%w: email and password hash are required", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = auth.RoleUser
	}
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	return s.Repo.Create(ctx, User{
		Email:        email,
		PasswordHash: in.PasswordHash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         role,
	})
}

func (s *Service) GetByID(ctx context.Context, id int64) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if id <= 0 {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByEmail(ctx, normalized)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Update applies admin changes. An empty input returns the record unchanged.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.FullName == nil && in.Role == nil {
		return user, nil
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Role != nil {
		role, ok := auth.ParseRole(*in.Role)
		if !ok {
			return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *in.Role)
		}
		user.Role = role
	}
	return s.Repo.Update(ctx, user)
}

func (s *Service) SetRefreshTokenHash(ctx context.Context, id int64, hash string) error {
	return s.Repo.SetRefreshTokenHash(ctx, id, hash)
}

// ClearRefreshTokenHash ends the user's session. Clearing twice is not an error.
func (s *Service) ClearRefreshTokenHash(ctx context.Context, id int64) error {
	return s.Repo.SetRefreshTokenHash(ctx, id, "")
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.OnDelete != nil {
		if err := s.OnDelete(ctx, id); err != nil {
			telemetry.Error("users.on_delete_failed", map[string]any{
				"user_id": id,
				"error":   err,
			})
		}
	}
	return nil
}
