package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/horseshoedev/mythrilmerch/internal/models"
	"github.com/horseshoedev/mythrilmerch/internal/store"
	"github.com/horseshoedev/mythrilmerch/pkg/hash"
	"github.com/horseshoedev/mythrilmerch/pkg/logging"
	"github.com/horseshoedev/mythrilmerch/pkg/tokens"
)

var (
	ErrValidation         = errors.New("validation")
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized is the only verification failure surfaced to callers;
	// the specific reason is logged, never returned.
	ErrUnauthorized = errors.New("authentication required")
)

const (
	AccessTTL  = time.Hour
	RefreshTTL = 30 * 24 * time.Hour
)

type Service struct {
	Store         *store.Store
	Blocklist     *Blocklist
	JWTSecret     []byte
	RefreshSecret []byte
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register validates input, creates the user and issues the first token
// pair. Validation runs top to bottom; the first violated rule wins.
func (s *Service) Register(ctx context.Context, email, password, name string) (*models.User, *TokenPair, error) {
	if !ValidateEmail(email) {
		return nil, nil, fmt.Errorf("%w: Invalid email format", ErrValidation)
	}
	if ok, msg := ValidatePassword(password); !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrValidation, msg)
	}
	if !ValidateName(name) {
		return nil, nil, fmt.Errorf("%w: Name must be at least 2 characters long", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Store.CreateUser(ctx, email, trimmedName(name), pwHash)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.IssueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}

	logging.FromContext(ctx).Info("user created", "user_id", user.ID)
	return user, pair, nil
}

// Login authenticates by email and password. Both unknown email and wrong
// password come back as the same generic failure.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *TokenPair, error) {
	l := logging.FromContext(ctx)

	user, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("login failed", "reason", "unknown email")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "reason", "wrong password", "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.IssueTokens(user.ID)
	if err != nil {
		return nil, nil, err
	}

	l.Info("user authenticated", "user_id", user.ID)
	return user, pair, nil
}

// IssueTokens produces an access/refresh pair for the user, each carrying
// the user id as subject and a fresh jti.
func (s *Service) IssueTokens(userID uint) (*TokenPair, error) {
	subject := strconv.FormatUint(uint64(userID), 10)

	access, _, err := tokens.NewAccessToken(subject, AccessTTL, s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, _, err := tokens.NewRefreshToken(subject, RefreshTTL, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks signature, expiry and the blocklist. Every failure
// collapses into ErrUnauthorized for the caller.
func (s *Service) VerifyAccess(ctx context.Context, tokenStr string) (*tokens.AccessClaims, error) {
	l := logging.FromContext(ctx)

	claims, err := tokens.AccessClaimsFromToken(tokenStr, s.JWTSecret)
	if err != nil {
		l.Warn("authentication failed", "reason", "invalid or expired token", "error", err)
		return nil, ErrUnauthorized
	}
	if claims.Subject == "" {
		l.Warn("authentication failed", "reason", "token has no subject")
		return nil, ErrUnauthorized
	}
	if s.Blocklist.Contains(claims.ID) {
		l.Warn("authentication failed", "reason", "token revoked", "jti", claims.ID)
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Revoke blocklists the token's jti. Any token bearing it is rejected
// from now on, regardless of its remaining validity window.
func (s *Service) Revoke(ctx context.Context, claims *tokens.AccessClaims) {
	s.Blocklist.Add(claims.ID)
	logging.FromContext(ctx).Info("token revoked", "jti", claims.ID)
}

// UserID extracts the numeric user id from verified claims.
func UserID(claims *tokens.AccessClaims) (uint, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrUnauthorized
	}
	return uint(id), nil
}

func trimmedName(name string) string {
	return strings.TrimSpace(name)
}
