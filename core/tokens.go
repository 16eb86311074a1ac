package core

import (
	"context"
	"time"
)

// TokenBlacklist keeps track of revoked auth tokens until they expire.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
