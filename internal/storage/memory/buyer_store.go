// Package memory provides an in-memory buyer store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/clock/system"
)

type identityKey struct {
	companyName string
	phone       string
	address     string
}

// BuyerStore keeps buyer records in a map keyed by the same composite identity
// the Postgres schema enforces, so both backends dedupe identically.
type BuyerStore struct {
	mu      sync.RWMutex
	records map[identityKey]buyer.Record
	nextID  int64
	clock   buyer.Clock
}

// NewBuyerStore constructs an empty BuyerStore.
func NewBuyerStore(clk buyer.Clock) *BuyerStore {
	if clk == nil {
		clk = system.New()
	}
	return &BuyerStore{
		records: make(map[identityKey]buyer.Record),
		nextID:  1,
		clock:   clk,
	}
}

// InsertMany stores candidates for a city, skipping exact identity duplicates,
// and returns the count genuinely new.
func (s *BuyerStore) InsertMany(_ context.Context, city string, candidates []buyer.Candidate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	inserted := 0
	for _, cand := range candidates {
		key := identityKey{
			companyName: cand.CompanyName,
			phone:       cand.Phone,
			address:     cand.Address,
		}
		if _, exists := s.records[key]; exists {
			continue
		}
		s.records[key] = buyer.Record{
			ID:              s.nextID,
			CompanyName:     cand.CompanyName,
			Phone:           cand.Phone,
			Email:           cand.Email,
			Address:         cand.Address,
			Website:         cand.Website,
			SourceURL:       cand.SourceURL,
			BusinessType:    cand.BusinessType,
			City:            city,
			ConfidenceScore: cand.ConfidenceScore,
			DiscoveredAt:    now,
		}
		s.nextID++
		inserted++
	}
	return inserted, nil
}

// QuerySince returns records discovered within the trailing window, newest first.
func (s *BuyerStore) QuerySince(_ context.Context, window time.Duration) ([]buyer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.clock.Now().Add(-window)
	var out []buyer.Record
	for _, rec := range s.records {
		if rec.DiscoveredAt.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	sortNewestFirst(out)
	return out, nil
}

// QueryAll returns every record, newest first.
func (s *BuyerStore) QueryAll(_ context.Context) ([]buyer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]buyer.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sortNewestFirst(out)
	return out, nil
}

// Close is a no-op; the store holds no external resources.
func (s *BuyerStore) Close() {}

func sortNewestFirst(records []buyer.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].DiscoveredAt.Equal(records[j].DiscoveredAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].DiscoveredAt.After(records[j].DiscoveredAt)
	})
}
