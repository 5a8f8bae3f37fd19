package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "auth:blacklist:"

// Blacklist is a Redis-backed revocation record. Entries expire at the
// token's natural expiry, so the set never outgrows the live token window.
type Blacklist struct {
	client *redis.Client
}

// NewBlacklist wraps a Redis client.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

// Revoke marks jti as revoked until the token would have expired anyway.
// Revoking an already-expired token is a no-op.
func (b *Blacklist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked implements RevocationChecker.
func (b *Blacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	count, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
