package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chronocap/chronocap-backend/config"
	"github.com/chronocap/chronocap-backend/internal/apperr"
	"github.com/chronocap/chronocap-backend/internal/users"
)

// UserStore is the slice of the users repo the auth service needs.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string, name *string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	GetByID(ctx context.Context, id string) (*users.User, error)
	UpdateRefreshToken(ctx context.Context, id string, token *string, expiresAt *time.Time) error
}

// Mailer sends the verification mail after registration. Failures are
// logged, never surfaced to the registering user.
type Mailer interface {
	SendEmailVerification(ctx context.Context, userID, email string, name *string) error
}

// Service handles registration, login and refresh-token rotation.
type Service struct {
	store  UserStore
	mailer Mailer
	logger *slog.Logger
	cfg    config.AuthConfig
}

func NewService(store UserStore, mailer Mailer, logger *slog.Logger, cfg config.AuthConfig) *Service {
	return &Service{store: store, mailer: mailer, logger: logger, cfg: cfg}
}

// UserInfo is the account projection returned by auth endpoints.
type UserInfo struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Name          *string `json:"name"`
	EmailVerified bool    `json:"emailVerified"`
}

// Session carries a fresh token pair plus the account it belongs to.
type Session struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         UserInfo `json:"user"`
}

// TokenPair is the rotation result for POST /auth/refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Service) Register(ctx context.Context, email, password string, name *string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validationf("valid email required")
	}
	if len(password) < 8 {
		return nil, apperr.Validationf("password must be at least 8 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.Create(ctx, email, hash, name)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.ErrConflict
		}
		return nil, err
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	// Best-effort verification mail; registration succeeds either way.
	if s.mailer != nil {
		if err := s.mailer.SendEmailVerification(ctx, user.ID, user.Email, user.Name); err != nil {
			s.logger.Warn("verification mail failed", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return session, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperr.ErrUnauthorized
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return session, nil
}

// Refresh rotates the refresh token: the provided token must match the
// stored one and still be within its lifetime, and a new one replaces it
// atomically from the caller's view.
func (s *Service) Refresh(ctx context.Context, userID, provided string) (*TokenPair, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	if user.RefreshToken == nil || provided == "" || *user.RefreshToken != provided {
		return nil, apperr.ErrUnauthorized
	}
	if user.RefreshTokenExpiresAt != nil && time.Now().After(*user.RefreshTokenExpiresAt) {
		return nil, apperr.ErrUnauthorized
	}

	access, err := GenerateToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh := newRefreshToken()
	expiresAt := time.Now().Add(s.cfg.RefreshTokenTTL)
	if err := s.store.UpdateRefreshToken(ctx, user.ID, &refresh, &expiresAt); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.store.UpdateRefreshToken(ctx, userID, nil, nil)
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	return &UserInfo{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		EmailVerified: user.EmailVerifiedAt != nil,
	}, nil
}

func (s *Service) issueSession(ctx context.Context, user *users.User) (*Session, error) {
	access, err := GenerateToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh := newRefreshToken()
	expiresAt := time.Now().Add(s.cfg.RefreshTokenTTL)
	if err := s.store.UpdateRefreshToken(ctx, user.ID, &refresh, &expiresAt); err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User: UserInfo{
			ID:            user.ID,
			Email:         user.Email,
			Name:          user.Name,
			EmailVerified: user.EmailVerifiedAt != nil,
		},
	}, nil
}

func newRefreshToken() string {
	b := make([]byte, 48)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
