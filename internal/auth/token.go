package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/calculation-service/internal/config"
)

// TokenType discriminates the intended use of a token. The type selects
// the signing secret, so an access secret cannot mint refresh tokens and
// vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims describes the JWT payload. The jti (RegisteredClaims.ID) is
// generated fresh per issuance and serves as the revocation key.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// RevocationChecker answers whether a token identifier has been revoked
// before its natural expiry. A nil checker means nothing is revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// VerifyOptions tunes a single verification call. SkipExpiry is meant for
// internal flows that need to inspect claims of an already expired token.
type VerifyOptions struct {
	SkipExpiry  bool
	Revocations RevocationChecker
}

// TokenManager issues and verifies signed tokens. It is stateless and safe
// for concurrent use; all configuration is fixed at construction.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager builds a manager from auth configuration.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL(),
		refreshTTL:    cfg.RefreshTokenTTL(),
	}
}

// Issue signs a token for the subject using the type's default lifetime.
func (tm *TokenManager) Issue(subject string, typ TokenType) (string, time.Time, error) {
	return tm.IssueWithTTL(subject, typ, tm.defaultTTL(typ))
}

// IssueWithTTL signs a token with an explicit lifetime override.
func (tm *TokenManager) IssueWithTTL(subject string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		TokenType: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secretFor(typ))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrTokenCreation, err)
	}
	return signed, expiresAt, nil
}

// Verify decodes tokenStr and validates it against the expected type.
// Checks run in order: signature/structure, expiry (unless skipped),
// declared type, revocation. Each stage fails with its own sentinel; a
// revocation backend failure is reported as-is, not as unauthorized.
func (tm *TokenManager) Verify(ctx context.Context, tokenStr string, expected TokenType, opts VerifyOptions) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if opts.SkipExpiry {
		parserOpts = append(parserOpts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (interface{}, error) {
		return tm.secretFor(expected), nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	if claims.TokenType != string(expected) {
		return nil, ErrInvalidCredentials
	}

	if opts.Revocations != nil {
		revoked, err := opts.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

func (tm *TokenManager) secretFor(typ TokenType) []byte {
	if typ == TokenTypeRefresh {
		return tm.refreshSecret
	}
	return tm.accessSecret
}

func (tm *TokenManager) defaultTTL(typ TokenType) time.Duration {
	if typ == TokenTypeRefresh {
		return tm.refreshTTL
	}
	return tm.accessTTL
}
