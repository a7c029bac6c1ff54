// Package ratelimit implements the randomized delays inserted between
// outbound calls so external sites are never hammered on a fixed rhythm.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/leadharvest/buyerscout/internal/config"
	"github.com/leadharvest/buyerscout/internal/metrics"
)

// Kind selects which configured delay range applies.
type Kind string

// Delay kinds. Each maps to a fixed [min, max] range from configuration.
const (
	KindBetweenRequests Kind = "between_requests"
	KindBetweenSources  Kind = "between_sources"
	KindHeadlessWait    Kind = "headless_wait"
	KindErrorBackoff    Kind = "error_backoff"
)

// Limiter blocks callers for a uniformly-random duration per kind. It is not
// adaptive: it never observes response codes or adjusts its ranges.
type Limiter struct {
	ranges map[Kind]config.DelayRange
}

// New builds a Limiter from the configured ranges.
func New(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		ranges: map[Kind]config.DelayRange{
			KindBetweenRequests: cfg.BetweenRequests,
			KindBetweenSources:  cfg.BetweenSources,
			KindHeadlessWait:    cfg.HeadlessWait,
			KindErrorBackoff:    cfg.ErrorBackoff,
		},
	}
}

// Delay blocks for a random duration drawn from the range for kind,
// returning early with an error only if the context finishes first.
func (l *Limiter) Delay(ctx context.Context, kind Kind) error {
	r, ok := l.ranges[kind]
	if !ok {
		return fmt.Errorf("unknown delay kind %q", kind)
	}
	d := pick(r)
	if d <= 0 {
		return nil
	}
	metrics.ObserveRateLimitDelay(string(kind), d)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit delay canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func pick(r config.DelayRange) time.Duration {
	min, max := r.Min(), r.Max()
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}
