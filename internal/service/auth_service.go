package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/calculation-service/internal/auth"
	"github.com/spec-kit/calculation-service/internal/config"
	"github.com/spec-kit/calculation-service/internal/domain"
	"github.com/spec-kit/calculation-service/internal/events"
	"github.com/spec-kit/calculation-service/internal/repository"
	apperrors "github.com/spec-kit/calculation-service/pkg/util"
)

// TokenRevoker extends the revocation checker with the ability to record
// revocations, as the Redis blacklist does.
type TokenRevoker interface {
	auth.RevocationChecker
	Revoke(ctx context.Context, jti string, until time.Time) error
}

// TokenPair bundles the access and refresh tokens returned on login.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RegisterInput describes the registration payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

// AuthService coordinates registration, login and token lifecycle flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	revoker    TokenRevoker
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Revoker    TokenRevoker
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     auth.NewTokenManager(cfg.Auth),
		revoker:    deps.Revoker,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new active account. Email and username must be unique.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email:    user.Email,
		Username: user.Username,
	})
	return user, nil
}

// Login authenticates by username and password and issues a token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, auth.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, nil, auth.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, auth.ErrUserInactive
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, events.UserLoggedInPayload{Username: user.Username})
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The presented
// refresh token is revoked until its natural expiry, so it cannot be
// replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(ctx, refreshToken, auth.TokenTypeRefresh, auth.VerifyOptions{Revocations: s.revoker})
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, auth.ErrUserInactive
	}

	if err := s.revokeClaims(ctx, claims, auth.TokenTypeRefresh, "rotated"); err != nil {
		return nil, err
	}

	return s.issuePair(user.ID)
}

// Logout revokes the presented access token and, when supplied, the
// matching refresh token. Both tokens are verified before either is
// revoked, so a rejected request leaves the session untouched.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.tokens.Verify(ctx, accessToken, auth.TokenTypeAccess, auth.VerifyOptions{Revocations: s.revoker})
	if err != nil {
		return err
	}

	var refreshClaims *auth.Claims
	if refreshToken != "" {
		refreshClaims, err = s.tokens.Verify(ctx, refreshToken, auth.TokenTypeRefresh, auth.VerifyOptions{Revocations: s.revoker})
		if err != nil {
			return err
		}
	}

	if err := s.revokeClaims(ctx, claims, auth.TokenTypeAccess, "logout"); err != nil {
		return err
	}
	if refreshClaims != nil {
		if err := s.revokeClaims(ctx, refreshClaims, auth.TokenTypeRefresh, "logout"); err != nil {
			return err
		}
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) issuePair(userID string) (*TokenPair, error) {
	accessToken, accessExp, err := s.tokens.Issue(userID, auth.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.tokens.Issue(userID, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *AuthService) revokeClaims(ctx context.Context, claims *auth.Claims, typ auth.TokenType, reason string) error {
	if s.revoker == nil {
		return nil
	}
	expiresAt := claims.ExpiresAt.Time
	if err := s.revoker.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return err
	}
	s.publish(ctx, events.EventTokenRevoked, claims.Subject, events.TokenRevokedPayload{
		JTI:       claims.ID,
		TokenType: string(typ),
		ExpiresAt: expiresAt,
		Reason:    reason,
	})
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
