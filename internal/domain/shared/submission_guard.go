package shared

import (
	"context"
	"time"
)

// SubmissionGuard serializes submissions per key.
// At most one holder owns a key at a time; a lease expires after its TTL so a
// crashed holder cannot block the key forever. Each lease carries an owner
// token, and only that token can release it.
type SubmissionGuard interface {
	// Acquire takes the lease for key and returns its owner token. It returns
	// false when another submission holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release gives the lease back when token still owns it. Releasing a key
	// that is not held, or that has passed to another holder, is a no-op.
	Release(ctx context.Context, key, token string) error

	// Held reports whether key is currently leased
	Held(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the guard
	Close() error
}

// OrderSubmissionKey returns the guard key for submissions against an order
func OrderSubmissionKey(orderID string) string {
	return "order:" + orderID
}
