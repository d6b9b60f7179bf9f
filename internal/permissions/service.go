package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docmgmt-backend/internal/shared/telemetry"
	"docmgmt-backend/internal/users"
)

const maxModuleLen = 64

// UserLookup confirms a user exists before permissions are granted.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (users.User, error)
}

type Service struct {
	Repo  Repo
	Users UserLookup
}

func NewService(repo Repo, lookup UserLookup) *Service {
	return &Service{Repo: repo, Users: lookup}
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Permission, error) {
	if userID <= 0 {
		return nil, ErrUserNotFound
	}
	return s.Repo.ListForUser(ctx, userID)
}

// Upsert replaces the flags userID holds on module.
func (s *Service) Upsert(ctx context.Context, userID int64, module string, flags Flags) (Permission, error) {
	module, err := normalizeModule(module)
	if err != nil {
		return Permission{}, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return Permission{}, err
	}
	p, err := s.Repo.Upsert(ctx, Permission{
		UserID: userID,
		Module: module,
		Read:   flags.Read,
		Write:  flags.Write,
		Update: flags.Update,
		Delete: flags.Delete,
	})
	if err != nil {
		return Permission{}, err
	}
	telemetry.Info("permissions.upserted", map[string]any{
		"user_id": userID,
		"module":  module,
	})
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID int64, module string) error {
	module, err := normalizeModule(module)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, module); err != nil {
		return err
	}
	telemetry.Info("permissions.deleted", map[string]any{
		"user_id": userID,
		"module":  module,
	})
	return nil
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrUserNotFound
	}
	if s.Users == nil {
		return nil
	}
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func normalizeModule(module string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(module))
	if m == "" || len(m) > maxModuleLen {
		return "", fmt.Errorf("%w: module must be 1-%d characters", ErrInvalidInput, maxModuleLen)
	}
	return m, nil
}
