package permissions

import (
	"context"
	"errors"
	"testing"

	"docmgmt-backend/internal/users"
)

func newTestService(t *testing.T) (*Service, *users.Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	userSvc := users.NewService(users.NewMemoryRepo())
	userSvc.OnDelete = repo.DeleteForUser
	return NewService(repo, userSvc), userSvc, repo
}

func TestAllows(t *testing.T) {
	p := Permission{Read: true, Update: true}
	if !p.Allows(ActionRead) || !p.Allows(ActionUpdate) {
		t.Fatalf("expected read and update")
	}
	if p.Allows(ActionWrite) || p.Allows(ActionDelete) || p.Allows("admin") {
		t.Fatalf("unexpected grant")
	}
}

func TestUpsertReplacesFlags(t *testing.T) {
	svc, userSvc, _ := newTestService(t)
	ctx := context.Background()
	u, _ := userSvc.Create(ctx, users.NewUser{Email: "p@x.com", PasswordHash: "h"})

	first, err := svc.Upsert(ctx, u.ID, " Documents ", Flags{Read: true, Write: true})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.Module != "documents" {
		t.Fatalf("module not normalized: %q", first.Module)
	}
	second, err := svc.Upsert(ctx, u.ID, "documents", Flags{Read: true})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if second.ID != first.ID || second.Write {
		t.Fatalf("expected replaced row, got %+v", second)
	}

	list, _ := svc.ListForUser(ctx, u.ID)
	if len(list) != 1 {
		t.Fatalf("expected one permission, got %d", len(list))
	}
}

func TestUpsertUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Upsert(context.Background(), 42, "documents", Flags{Read: true})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpsertRejectsEmptyModule(t *testing.T) {
	svc, userSvc, _ := newTestService(t)
	u, _ := userSvc.Create(context.Background(), users.NewUser{Email: "p@x.com", PasswordHash: "h"})
	if _, err := svc.Upsert(context.Background(), u.ID, "  ", Flags{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteMissingPermission(t *testing.T) {
	svc, userSvc, _ := newTestService(t)
	u, _ := userSvc.Create(context.Background(), users.NewUser{Email: "p@x.com", PasswordHash: "h"})
	if err := svc.Delete(context.Background(), u.ID, "documents"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserDeleteDropsPermissions(t *testing.T) {
	svc, userSvc, repo := newTestService(t)
	ctx := context.Background()
	u, _ := userSvc.Create(ctx, users.NewUser{Email: "p@x.com", PasswordHash: "h"})
	_, _ = svc.Upsert(ctx, u.ID, "documents", Flags{Read: true})

	if err := userSvc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ := repo.ListForUser(ctx, u.ID)
	if len(list) != 0 {
		t.Fatalf("expected permissions removed with user, got %d", len(list))
	}
}
