package port

import "context"

type RequestGuard interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
	// Release forgets key so the request can be retried
	Release(ctx context.Context, key string) error
}
