package dispatch

import "context"

// RecipientRateLimiter defines the contract for per-recipient dispatch
// rate limiting. Implementations live in infra/ratelimit/.
type RecipientRateLimiter interface {
	// Allow checks whether another message may be dispatched to the
	// given recipient. Returns true if allowed, false if rate limited.
	Allow(ctx context.Context, recipient string) (bool, error)
}
