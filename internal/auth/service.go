package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	sharedauth "docmgmt-backend/internal/shared/auth"
	"docmgmt-backend/internal/shared/metrics"
	"docmgmt-backend/internal/shared/telemetry"
	"docmgmt-backend/internal/users"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72
)

// UserStore is the slice of the users service the token flows depend on.
type UserStore interface {
	Create(ctx context.Context, in users.NewUser) (users.User, error)
	GetByID(ctx context.Context, id int64) (users.User, error)
	GetByEmail(ctx context.Context, email string) (users.User, error)
	SetRefreshTokenHash(ctx context.Context, id int64, hash string) error
	ClearRefreshTokenHash(ctx context.Context, id int64) error
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AccessToken is returned by a successful refresh.
type AccessToken struct {
	AccessToken string `json:"access_token"`
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

type Service struct {
	Users  UserStore
	Tokens *sharedauth.Issuer

	// dummyHash is compared against when the email is unknown so both
	// rejection paths cost one bcrypt comparison.
	dummyHash string
}

func NewService(usersStore UserStore, tokens *sharedauth.Issuer) (*Service, error) {
	if usersStore == nil || tokens == nil {
		return nil, errors.New("auth service requires a user store and token issuer")
	}
	dummy, err := sharedauth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Service{Users: usersStore, Tokens: tokens, dummyHash: dummy}, nil
}

// Register creates a user with role "user". A taken email yields users.ErrEmailTaken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (users.User, error) {
	if n := len(in.Password); n < minPasswordLen || n > maxPasswordLen {
		return users.User{}, ErrWeakPassword
	}
	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return users.User{}, users.ErrEmailTaken
	} else if !errors.Is(err, users.ErrNotFound) {
		return users.User{}, err
	}

	hash, err := sharedauth.HashPassword(in.Password)
	if err != nil {
		return users.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.Users.Create(ctx, users.NewUser{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         sharedauth.RoleUser,
	})
	if err != nil {
		return users.User{}, err
	}
	telemetry.Info("auth.registered", map[string]any{"user_id": user.ID})
	return user, nil
}

// Login checks credentials and starts a session, replacing any previous one.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return TokenPair{}, err
		}
		sharedauth.CheckPassword(s.dummyHash, password)
		metrics.IncLoginFailed()
		return TokenPair{}, ErrInvalidCredentials
	}
	if !sharedauth.CheckPassword(user.PasswordHash, password) {
		metrics.IncLoginFailed()
		return TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}
	metrics.IncLoginSucceeded()
	telemetry.Info("auth.login", map[string]any{"user_id": user.ID, "role": string(user.Role)})
	return pair, nil
}

// LoginExternal signs in a user vouched for by an identity provider,
// creating the account on first sight. The created account has no usable
// password.
func (s *Service) LoginExternal(ctx context.Context, email, fullName string) (TokenPair, error) {
	user, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		hash, hashErr := sharedauth.HashPassword(uuid.NewString())
		if hashErr != nil {
			return TokenPair{}, fmt.Errorf("hash placeholder password: %w", hashErr)
		}
		user, err = s.Users.Create(ctx, users.NewUser{
			Email:        email,
			PasswordHash: hash,
			FullName:     fullName,
			Role:         sharedauth.RoleUser,
		})
		if errors.Is(err, users.ErrEmailTaken) {
			user, err = s.Users.GetByEmail(ctx, email)
		}
	}
	if err != nil {
		return TokenPair{}, err
	}
	pair, err := s.startSession(ctx, user)
	if err != nil {
		return TokenPair{}, err
	}
	metrics.IncLoginSucceeded()
	telemetry.Info("auth.login_external", map[string]any{"user_id": user.ID})
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AccessToken, error) {
	access, err := s.refresh(ctx, refreshToken)
	if err != nil {
		metrics.IncRefreshRejected()
		if errors.Is(err, ErrInvalidRefreshToken) {
			telemetry.Warn("auth.refresh_rejected", map[string]any{"error": err})
			return AccessToken{}, ErrInvalidRefreshToken
		}
		return AccessToken{}, err
	}
	metrics.IncTokenRefreshed()
	return access, nil
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (AccessToken, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	claims, err := s.Tokens.Verify(refreshToken, sharedauth.TokenRefresh)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return AccessToken{}, fmt.Errorf("%w: unknown subject", ErrInvalidRefreshToken)
		}
		return AccessToken{}, err
	}
	if !user.HasSession() {
		return AccessToken{}, fmt.Errorf("%w: no active session", ErrInvalidRefreshToken)
	}
	ok, err := sharedauth.CompareToken(refreshToken, user.RefreshTokenHash)
	if err != nil || !ok {
		return AccessToken{}, fmt.Errorf("%w: hash mismatch", ErrInvalidRefreshToken)
	}

	access, err := s.Tokens.IssueAccess(identityOf(user))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{AccessToken: access}, nil
}

// Logout ends the user's session. It is idempotent.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.Users.ClearRefreshTokenHash(ctx, userID); err != nil && !errors.Is(err, users.ErrNotFound) {
		return err
	}
	telemetry.Info("auth.logout", map[string]any{"user_id": userID})
	return nil
}

func (s *Service) startSession(ctx context.Context, user users.User) (TokenPair, error) {
	id := identityOf(user)
	access, err := s.Tokens.IssueAccess(id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.Tokens.IssueRefresh(id)
	if err != nil {
		return TokenPair{}, err
	}
	hash, err := sharedauth.HashToken(refresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}
	if err := s.Users.SetRefreshTokenHash(ctx, user.ID, hash); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func identityOf(user users.User) sharedauth.Identity {
	return sharedauth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
}
