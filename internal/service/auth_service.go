package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"menuservice/internal/auth"
	apperrors "menuservice/internal/errors"
	"menuservice/internal/model"
	"menuservice/internal/repository"
)

const bcryptCost = 10

// Session is an issued token together with the user it was issued for.
type Session struct {
	User   *model.User
	Token  string
	Claims *auth.Claims
}

// AuthService handles the identity provider operations.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	ChangePassword(ctx context.Context, user *model.User, claims *auth.Claims, current, next string) (*Session, error)
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.RevocationStore
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.RevocationStore) AuthService {
	return &authService{
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		now:        time.Now,
	}
}

// Register creates a user with the user role and signs them in.
func (s *authService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.Validation("Duplicate field value entered")
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	}
	if err := s.users.Create(context.WithoutCancel(ctx), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperrors.Validation("Duplicate field value entered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(user)
}

// Login checks the credentials and issues a token.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.InvalidCredentials("Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.InvalidCredentials("Invalid credentials")
	}

	return s.issue(user)
}

// Logout revokes the token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	return s.tokenStore.BlacklistAccessToken(context.WithoutCancel(ctx), claims.ID, claims.Remaining())
}

// ChangePassword rotates the password. Tokens issued before the change stop
// working; the returned session carries a fresh one.
func (s *authService) ChangePassword(ctx context.Context, user *model.User, claims *auth.Claims, current, next string) (*Session, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return nil, apperrors.InvalidCredentials("Password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Stored with millisecond precision; the reissued token carries the same stamp.
	changedAt := s.now().Truncate(time.Millisecond)
	ctx = context.WithoutCancel(ctx)
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), changedAt); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.PasswordChangedAt = &changedAt

	if err := s.Logout(ctx, claims); err != nil {
		return nil, fmt.Errorf("revoke previous token: %w", err)
	}
	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*Session, error) {
	token, claims, err := s.jwtService.GenerateSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &Session{User: user, Token: token, Claims: claims}, nil
}
