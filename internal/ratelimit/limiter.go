package ratelimit

import "context"

// RateLimiter bounds how fast deliveries are issued against the push provider.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}

// Noop admits every request. Used when no Redis backend is configured.
type Noop struct{}

func (Noop) Allow(ctx context.Context, scope string) (bool, error) { return true, nil }

func (Noop) Wait(ctx context.Context, scope string) error { return nil }
