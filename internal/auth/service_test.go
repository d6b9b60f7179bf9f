package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	sharedauth "docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/users"
)

func newTestService(t *testing.T) (*Service, *users.Service) {
	t.Helper()
	issuer, err := sharedauth.NewIssuer("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	userSvc := users.NewService(users.NewMemoryRepo())
	svc, err := NewService(userSvc, issuer)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, userSvc
}

func TestRegisterTwiceConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != sharedauth.RoleUser {
		t.Fatalf("expected role user, got %s", user.Role)
	}
	if user.PasswordHash == "secret1" || !sharedauth.CheckPassword(user.PasswordHash, "secret1") {
		t.Fatalf("expected bcrypt hash to be stored")
	}

	if _, err := svc.Register(ctx, RegisterInput{Email: "A@x.com", Password: "secret1"}); !errors.Is(err, users.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "12345"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "a@x.com", "wrong")
	_, unknownEmail := svc.Login(ctx, "nobody@x.com", "secret1")
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v / %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("errors must not differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestLoginStoresRefreshHashAndRefreshWorks(t *testing.T) {
	svc, userSvc := newTestService(t)
	ctx := context.Background()
	user, _ := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})

	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}

	stored, _ := userSvc.GetByID(ctx, user.ID)
	if !stored.HasSession() || stored.RefreshTokenHash == pair.RefreshToken {
		t.Fatalf("expected hashed refresh token to be stored")
	}

	access, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := svc.Tokens.Verify(access.AccessToken, sharedauth.TokenAccess)
	if err != nil {
		t.Fatalf("Verify new access token: %v", err)
	}
	if id, _ := claims.UserID(); id != user.ID {
		t.Fatalf("expected subject %d, got %d", user.ID, id)
	}
}

func TestRefreshAcceptsPaddedToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := svc.Login(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	access, err := svc.Refresh(ctx, " "+pair.RefreshToken+"\n")
	if err != nil {
		t.Fatalf("Refresh with surrounding whitespace: %v", err)
	}
	if access.AccessToken == "" {
		t.Fatalf("expected access token")
	}
}

func TestRefreshWithoutStoredHashFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user, _ := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})

	refresh, err := svc.Tokens.IssueRefresh(sharedauth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := svc.Refresh(ctx, refresh); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshWithMismatchedTokenFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user, _ := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	if _, err := svc.Login(ctx, "a@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	other, _ := svc.Tokens.IssueRefresh(sharedauth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if _, err := svc.Refresh(ctx, other); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestSecondLoginInvalidatesFirstRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})

	first, _ := svc.Login(ctx, "a@x.com", "secret1")
	second, _ := svc.Login(ctx, "a@x.com", "secret1")

	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected first session to be replaced, got %v", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("expected second session valid, got %v", err)
	}
}

func TestRefreshRejectsAccessTokenAndGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	pair, _ := svc.Login(ctx, "a@x.com", "secret1")

	for _, token := range []string{pair.AccessToken, "garbage", ""} {
		if _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("token %q: expected ErrInvalidRefreshToken, got %v", token, err)
		}
	}
}

func TestLogoutThenRefreshFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user, _ := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	pair, _ := svc.Login(ctx, "a@x.com", "secret1")

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("second Logout must be idempotent: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}
}

func TestRefreshForDeletedUserFails(t *testing.T) {
	svc, userSvc := newTestService(t)
	ctx := context.Background()
	user, _ := svc.Register(ctx, RegisterInput{Email: "a@x.com", Password: "secret1"})
	pair, _ := svc.Login(ctx, "a@x.com", "secret1")

	if err := userSvc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestLoginExternalCreatesOnce(t *testing.T) {
	svc, userSvc := newTestService(t)
	ctx := context.Background()

	first, err := svc.LoginExternal(ctx, "g@x.com", "Gee")
	if err != nil {
		t.Fatalf("LoginExternal: %v", err)
	}
	if first.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}
	if _, err := svc.LoginExternal(ctx, "G@x.com", "Gee"); err != nil {
		t.Fatalf("second LoginExternal: %v", err)
	}

	list, _ := userSvc.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected one user, got %d", len(list))
	}
	if list[0].FullName != "Gee" || list[0].Role != sharedauth.RoleUser {
		t.Fatalf("unexpected user %+v", list[0])
	}
}
