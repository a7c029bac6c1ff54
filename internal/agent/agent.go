// Package agent drives the discovery loop: every interval it picks the next
// (term, city) target, runs the source cascade, and persists whatever survives
// deduplication.
package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/metrics"
	"github.com/leadharvest/buyerscout/internal/rotation"
)

// CandidateRunner runs one cascading discovery pass. Satisfied by
// cascade.Cascade.
type CandidateRunner interface {
	Run(ctx context.Context, term, city string, target int) ([]buyer.Candidate, error)
}

// Config controls the discovery cadence.
type Config struct {
	// TargetPerCycle is the lead count a cycle tries to reach before the
	// cascade short-circuits.
	TargetPerCycle int
	// Interval is the pause between cycle starts.
	Interval time.Duration
}

// Agent owns the periodic discovery loop.
type Agent struct {
	cfg      Config
	schedule *rotation.Scheduler
	runner   CandidateRunner
	store    buyer.Store
	logger   *zap.Logger

	// running guards against overlapping cycles when one overruns the tick.
	running sync.Mutex
}

// New assembles an Agent. All collaborators are required except the logger.
func New(cfg Config, schedule *rotation.Scheduler, runner CandidateRunner, store buyer.Store, logger *zap.Logger) *Agent {
	if cfg.TargetPerCycle <= 0 {
		cfg.TargetPerCycle = 5
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		cfg:      cfg,
		schedule: schedule,
		runner:   runner,
		store:    store,
		logger:   logger.Named("agent"),
	}
}

// Run executes an immediate first cycle, then one cycle per interval until the
// context is canceled.
func (a *Agent) Run(ctx context.Context) {
	a.RunCycle(ctx)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("discovery loop stopped")
			return
		case <-ticker.C:
			a.RunCycle(ctx)
		}
	}
}

// RunCycle performs a single discovery pass. The rotation advances regardless
// of outcome, so a persistently failing target cannot wedge the schedule. If a
// previous cycle is still in flight the call is skipped.
func (a *Agent) RunCycle(ctx context.Context) {
	if !a.running.TryLock() {
		a.logger.Warn("cycle still in flight, skipping tick")
		metrics.ObserveCycle("skipped")
		return
	}
	defer a.running.Unlock()

	term, city := a.schedule.NextTarget()
	log := a.logger.With(zap.String("term", term), zap.String("city", city))
	log.Info("cycle started", zap.Int("target", a.cfg.TargetPerCycle))

	start := time.Now()
	candidates, err := a.runner.Run(ctx, term, city, a.cfg.TargetPerCycle)
	if err != nil {
		log.Warn("cycle interrupted", zap.Error(err), zap.Int("gathered", len(candidates)))
	}

	stored := 0
	if len(candidates) > 0 {
		stored, err = a.store.InsertMany(ctx, city, candidates)
		if err != nil {
			log.Error("storing candidates failed", zap.Error(err), zap.Int("stored", stored))
			metrics.ObserveCycle("error")
			return
		}
	}

	metrics.ObserveStored(stored)
	metrics.ObserveCycle("ok")
	log.Info("cycle finished",
		zap.Int("found", len(candidates)),
		zap.Int("new", stored),
		zap.Duration("elapsed", time.Since(start)),
	)
}
