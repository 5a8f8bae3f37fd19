package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/calculation-service/internal/domain"
)

// UserStore is the single-record lookup the resolver needs from the
// user persistence layer.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Resolver maps a verified access token to a live user record.
type Resolver struct {
	tokens      *TokenManager
	users       UserStore
	revocations RevocationChecker
}

// NewResolver constructs a resolver. revocations may be nil, in which case
// no token is considered revoked.
func NewResolver(tokens *TokenManager, users UserStore, revocations RevocationChecker) *Resolver {
	return &Resolver{tokens: tokens, users: users, revocations: revocations}
}

// Resolve verifies tokenStr as an access token and loads its subject.
// Missing and inactive accounts surface as distinct unauthorized sentinels;
// store failures propagate unchanged so connectivity problems are not
// mistaken for bad credentials.
func (r *Resolver) Resolve(ctx context.Context, tokenStr string) (*domain.User, error) {
	claims, err := r.tokens.Verify(ctx, tokenStr, TokenTypeAccess, VerifyOptions{Revocations: r.revocations})
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user %s: %w", claims.Subject, err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}
