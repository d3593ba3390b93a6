package secrets

import (
	"context"
	"errors"
	"time"
)

// ErrSecretNotFound indicates the key holds no value, either because it
// was never set, was consumed, or has expired.
var ErrSecretNotFound = errors.New("secrets: not found")

// Store holds short-lived secrets (email verification codes) with a TTL
// applied by the backing store. Put overwrites any existing value for
// the key, so only the latest secret per key is ever valid.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
