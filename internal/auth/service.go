package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/playperu/alias/internal/alias"
)

type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (alias.User, error)
	User(ctx context.Context, id string) (alias.User, error)
	Credentials(ctx context.Context, username string) (alias.User, string, error)
}

// Service implements registration, login and token rotation.
type Service struct {
	users    UserStore
	tokens   *Tokens
	registry Registry
	logger   *slog.Logger
}

func NewService(users UserStore, tokens *Tokens, registry Registry, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, registry: registry, logger: logger}
}

func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// ValidateCredentials checks the length limits of a username and password.
// Empty values are skipped so partial updates can reuse it.
func ValidateCredentials(username, password string) error {
	if username != "" && utf8.RuneCountInString(username) < alias.MinUsernameLength {
		return alias.Errorf(alias.ErrBadRequest, "username must be at least %d characters", alias.MinUsernameLength)
	}
	if password != "" && utf8.RuneCountInString(password) < alias.MinPasswordLength {
		return alias.Errorf(alias.ErrBadRequest, "password must be at least %d characters", alias.MinPasswordLength)
	}
	if len(password) > alias.MaxPasswordBytes {
		return alias.Errorf(alias.ErrBadRequest, "password must be at most %d bytes", alias.MaxPasswordBytes)
	}
	return nil
}

func (s *Service) Register(ctx context.Context, username, password string) (alias.User, TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return alias.User{}, TokenPair{}, alias.Errorf(alias.ErrBadRequest, "username and password are required")
	}
	if err := ValidateCredentials(username, password); err != nil {
		return alias.User{}, TokenPair{}, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return alias.User{}, TokenPair{}, fmt.Errorf("hashing password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		return alias.User{}, TokenPair{}, err
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return alias.User{}, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, pair, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (alias.User, TokenPair, error) {
	user, hash, err := s.users.Credentials(ctx, strings.TrimSpace(username))
	if errors.Is(err, alias.ErrNotFound) {
		return alias.User{}, TokenPair{}, alias.Errorf(alias.ErrUnauthorized, "invalid credentials")
	}
	if err != nil {
		return alias.User{}, TokenPair{}, err
	}
	if !CheckPassword(hash, password) {
		return alias.User{}, TokenPair{}, alias.Errorf(alias.ErrUnauthorized, "invalid credentials")
	}

	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return alias.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh redeems a refresh token for a new pair. Each refresh token works
// once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %w", alias.ErrUnauthorized, err)
	}
	if err := s.consume(ctx, claims.ID); err != nil {
		return TokenPair{}, err
	}
	if _, err := s.users.User(ctx, claims.UserID()); err != nil {
		if errors.Is(err, alias.ErrNotFound) {
			return TokenPair{}, alias.Errorf(alias.ErrUnauthorized, "user no longer exists")
		}
		return TokenPair{}, err
	}
	return s.issue(ctx, claims.UserID())
}

// Logout revokes a refresh token. Revoking an already revoked token is not an
// error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if errors.Is(err, ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", alias.ErrUnauthorized, err)
	}
	err = s.registry.Consume(ctx, claims.ID)
	if err != nil && !errors.Is(err, alias.ErrNotFound) {
		return err
	}
	return nil
}

// Authenticate resolves an access token to its user id.
func (s *Service) Authenticate(accessToken string) (string, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", alias.ErrUnauthorized, err)
	}
	return claims.UserID(), nil
}

func (s *Service) consume(ctx context.Context, jti string) error {
	err := s.registry.Consume(ctx, jti)
	if errors.Is(err, alias.ErrNotFound) {
		return alias.Errorf(alias.ErrUnauthorized, "refresh token revoked")
	}
	return err
}

func (s *Service) issue(ctx context.Context, userID string) (TokenPair, error) {
	pair, claims, err := s.tokens.Pair(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("signing tokens: %w", err)
	}
	if err := s.registry.Save(ctx, claims.ID, userID, s.tokens.RefreshTTL()); err != nil {
		return TokenPair{}, fmt.Errorf("saving refresh token: %w", err)
	}
	return pair, nil
}
