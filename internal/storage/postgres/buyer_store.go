// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/clock/system"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// BuyerStoreConfig controls the Postgres connection pool used for buyer rows.
type BuyerStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// BuyerStore writes and reads buyer rows in Postgres. A composite unique
// constraint on (company_name, phone, address) makes inserts idempotent:
// rediscovering a known buyer is a no-op.
type BuyerStore struct {
	pool  pgxPool
	table string
	clock buyer.Clock
}

// NewBuyerStore creates a Postgres-backed BuyerStore using the provided config.
func NewBuyerStore(ctx context.Context, cfg BuyerStoreConfig) (*BuyerStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "buyers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &BuyerStore{
		pool:  pool,
		table: table,
		clock: system.New(),
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the buyer table if it does not exist. The composite
// unique constraint is what the ON CONFLICT insert path relies on, so the
// store refuses to start without it.
func (s *BuyerStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("buyer store is not configured")
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	company_name TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	business_type TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	source_url TEXT NOT NULL DEFAULT '',
	discovered_at TIMESTAMPTZ NOT NULL,
	UNIQUE (company_name, phone, address)
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s schema: %w", s.table, err)
	}
	return nil
}

// NewBuyerStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewBuyerStoreWithPool(pool pgxPool, table string, clk buyer.Clock) (*BuyerStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "buyers"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if clk == nil {
		clk = system.New()
	}
	return &BuyerStore{pool: pool, table: table, clock: clk}, nil
}

// Close releases the underlying pool resources.
func (s *BuyerStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// InsertMany writes candidates for a city and reports how many rows were
// genuinely new. Duplicates collide with the unique constraint and are
// silently skipped.
func (s *BuyerStore) InsertMany(ctx context.Context, city string, candidates []buyer.Candidate) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("buyer store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	company_name,
	phone,
	email,
	address,
	website,
	business_type,
	city,
	confidence_score,
	source_url,
	discovered_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (company_name, phone, address) DO NOTHING`, s.table)

	now := s.clock.Now()
	inserted := 0
	var lastErr error
	for _, cand := range candidates {
		tag, err := s.pool.Exec(ctx, query,
			cand.CompanyName,
			cand.Phone,
			cand.Email,
			cand.Address,
			cand.Website,
			string(cand.BusinessType),
			city,
			cand.ConfidenceScore,
			cand.SourceURL,
			now,
		)
		if err != nil {
			// One bad row must not sink the rest of the batch.
			lastErr = fmt.Errorf("insert buyer %q: %w", cand.CompanyName, err)
			continue
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, lastErr
}

// QuerySince returns buyers discovered within the trailing window, newest first.
func (s *BuyerStore) QuerySince(ctx context.Context, window time.Duration) ([]buyer.Record, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("buyer store is not configured")
	}
	query := fmt.Sprintf(`
SELECT id, company_name, phone, email, address, website, business_type, city, confidence_score, source_url, discovered_at
FROM %s
WHERE discovered_at >= $1
ORDER BY discovered_at DESC`, s.table)

	cutoff := s.clock.Now().Add(-window)
	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query recent buyers: %w", err)
	}
	return scanRecords(rows)
}

// QueryAll returns every stored buyer, newest first.
func (s *BuyerStore) QueryAll(ctx context.Context) ([]buyer.Record, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("buyer store is not configured")
	}
	query := fmt.Sprintf(`
SELECT id, company_name, phone, email, address, website, business_type, city, confidence_score, source_url, discovered_at
FROM %s
ORDER BY discovered_at DESC`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query buyers: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]buyer.Record, error) {
	defer rows.Close()
	var out []buyer.Record
	for rows.Next() {
		var rec buyer.Record
		var businessType string
		if err := rows.Scan(
			&rec.ID,
			&rec.CompanyName,
			&rec.Phone,
			&rec.Email,
			&rec.Address,
			&rec.Website,
			&businessType,
			&rec.City,
			&rec.ConfidenceScore,
			&rec.SourceURL,
			&rec.DiscoveredAt,
		); err != nil {
			return nil, fmt.Errorf("scan buyer row: %w", err)
		}
		rec.BusinessType = buyer.SourceType(businessType)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buyer rows: %w", err)
	}
	return out, nil
}
