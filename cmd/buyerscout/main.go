// Package main wires together the buyer discovery service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leadharvest/buyerscout/internal/agent"
	"github.com/leadharvest/buyerscout/internal/api"
	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/cascade"
	"github.com/leadharvest/buyerscout/internal/config"
	"github.com/leadharvest/buyerscout/internal/fetcher"
	"github.com/leadharvest/buyerscout/internal/logging"
	"github.com/leadharvest/buyerscout/internal/metrics"
	"github.com/leadharvest/buyerscout/internal/ratelimit"
	"github.com/leadharvest/buyerscout/internal/rotation"
	"github.com/leadharvest/buyerscout/internal/source"
	"github.com/leadharvest/buyerscout/internal/storage/memory"
	"github.com/leadharvest/buyerscout/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer store.Close()

	limiter := ratelimit.New(cfg.RateLimit)
	client := fetcher.New(fetcher.Config{
		UserAgents:     cfg.HTTP.UserAgents,
		Timeout:        cfg.HTTP.Timeout(),
		PerDomainRPS:   cfg.HTTP.PerDomainRPS,
		PerDomainBurst: cfg.HTTP.PerDomainBurst,
	})

	adapters := buildAdapters(client, limiter)
	runner := cascade.New(adapters, limiter, logger)

	schedule, err := rotation.New(cfg.Discovery.SearchTerms, cfg.Discovery.Cities)
	if err != nil {
		logger.Fatal("rotation init failed", zap.Error(err))
	}

	discovery := agent.New(agent.Config{
		TargetPerCycle: cfg.Discovery.TargetPerCycle,
		Interval:       cfg.Discovery.Interval(),
	}, schedule, runner, store, logger)

	apiServer := api.NewServer(store, cfg, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("discovery loop started",
			zap.Duration("interval", cfg.Discovery.Interval()),
			zap.Int("target_per_cycle", cfg.Discovery.TargetPerCycle),
		)
		discovery.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// newStore selects Postgres when a DSN is configured and the in-memory store
// otherwise.
func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (buyer.Store, error) {
	if cfg.DB.DSN == "" {
		logger.Info("no database configured, using in-memory store")
		return memory.NewBuyerStore(nil), nil
	}
	store, err := postgres.NewBuyerStore(ctx, postgres.BuyerStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	logger.Info("postgres store ready", zap.String("table", cfg.DB.Table))
	return store, nil
}

// buildAdapters assembles the source cascade in priority order: trusted,
// structured sources first, keyword-gated free-text sources last.
func buildAdapters(client *fetcher.Client, limiter *ratelimit.Limiter) []buyer.Adapter {
	adapters := []buyer.Adapter{
		source.NewDirectory(source.DirectoryConfig{}, client, limiter),
		source.NewKnowledgePanel(source.KnowledgePanelConfig{}, client, limiter),
		source.NewIndustry(source.IndustryConfig{}, client, limiter),
	}
	for _, cfg := range source.DefaultFreeTextConfigs() {
		adapters = append(adapters, source.NewFreeText(cfg, client, limiter))
	}
	return adapters
}
