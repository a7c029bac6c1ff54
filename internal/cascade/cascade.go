// Package cascade runs the discovery sources in priority order, stopping as
// soon as a cycle's lead target is met. Cheap high-trust sources go first so
// most cycles never touch the noisy ones.
package cascade

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/metrics"
	"github.com/leadharvest/buyerscout/internal/ratelimit"
	"github.com/leadharvest/buyerscout/internal/source"
)

// Cascade holds the adapters in invocation order.
type Cascade struct {
	adapters []buyer.Adapter
	delay    source.Delayer
	logger   *zap.Logger
}

// New builds a cascade over the given adapters. Order is significant.
func New(adapters []buyer.Adapter, delay source.Delayer, logger *zap.Logger) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{adapters: adapters, delay: delay, logger: logger.Named("cascade")}
}

// Run walks the adapters until at least target valid candidates are collected
// or the list is exhausted. The target is advisory: a source's batch is never
// truncated, so the result may overshoot. Adapter failures are logged and
// counted but never abort the cycle; only context cancellation cuts a run
// short, returning whatever was gathered so far along with the context error.
func (c *Cascade) Run(ctx context.Context, term, city string, target int) ([]buyer.Candidate, error) {
	var collected []buyer.Candidate

	for i, adapter := range c.adapters {
		if len(collected) >= target {
			break
		}
		if i > 0 {
			if err := c.delay.Delay(ctx, ratelimit.KindBetweenSources); err != nil {
				return collected, err
			}
		}

		found, err := adapter.Discover(ctx, term, city)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return collected, err
			}
			c.logger.Warn("source failed",
				zap.String("source", adapter.Name()),
				zap.Error(err),
			)
			metrics.ObserveAdapterError(adapter.Name())
			if derr := c.delay.Delay(ctx, ratelimit.KindErrorBackoff); derr != nil {
				return collected, derr
			}
			continue
		}

		// The target is advisory and checked only between sources: an
		// adapter's whole valid batch is kept even when it overshoots.
		kept := 0
		for _, cand := range found {
			if !cand.Valid() {
				continue
			}
			collected = append(collected, cand)
			kept++
		}
		metrics.ObserveCandidates(adapter.Name(), kept)
		c.logger.Debug("source done",
			zap.String("source", adapter.Name()),
			zap.Int("found", len(found)),
			zap.Int("kept", kept),
			zap.Int("collected", len(collected)),
		)
	}

	return collected, nil
}
