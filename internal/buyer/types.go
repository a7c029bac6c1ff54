// Package buyer defines core types shared across subsystems.
package buyer

import (
	"context"
	"time"
)

// SourceType tags which adapter produced a candidate. The set is closed;
// the cascade's priority order is defined over these values.
type SourceType string

// Source type values persisted in the buyer store.
const (
	SourceDirectoryListing  SourceType = "DirectoryListing"
	SourceKnowledgePanel    SourceType = "BusinessKnowledgePanel"
	SourceIndustryDirectory SourceType = "IndustryDirectory"
	SourceBusinessDirectory SourceType = "BusinessDirectoryGeneric"
	SourceRecyclingCenter   SourceType = "RecyclingCenterDirectory"
	SourceClassifiedAd      SourceType = "ClassifiedAd"
	SourceScrapYardListing  SourceType = "ScrapYardListing"
)

// Confidence returns the fixed trust weight assigned to candidates from this
// source. Scores are source-determined, never learned or adjusted.
func (s SourceType) Confidence() float64 {
	switch s {
	case SourceKnowledgePanel:
		return 0.8
	case SourceDirectoryListing:
		return 0.7
	case SourceScrapYardListing:
		return 0.7
	case SourceIndustryDirectory:
		return 0.6
	case SourceBusinessDirectory:
		return 0.6
	case SourceRecyclingCenter:
		return 0.5
	case SourceClassifiedAd:
		return 0.4
	default:
		return 0.5
	}
}

// Candidate is an unpersisted business contact proposed by one adapter.
type Candidate struct {
	CompanyName     string     `json:"company_name"`
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
	Address         string     `json:"address,omitempty"`
	Website         string     `json:"website,omitempty"`
	SourceURL       string     `json:"source_url,omitempty"`
	BusinessType    SourceType `json:"business_type"`
	ConfidenceScore float64    `json:"confidence_score"`
}

// Valid reports whether the candidate carries enough identity to store:
// a company name plus at least one of phone, email or address.
func (c Candidate) Valid() bool {
	if c.CompanyName == "" {
		return false
	}
	return c.Phone != "" || c.Email != "" || c.Address != ""
}

// Record is a persisted, deduplicated candidate. ID and DiscoveredAt are
// store-assigned at insert time and never mutated.
type Record struct {
	ID              int64      `json:"id"`
	CompanyName     string     `json:"company_name"`
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
	Address         string     `json:"address,omitempty"`
	Website         string     `json:"website,omitempty"`
	SourceURL       string     `json:"source_url,omitempty"`
	BusinessType    SourceType `json:"business_type"`
	City            string     `json:"city,omitempty"`
	ConfidenceScore float64    `json:"confidence_score"`
	DiscoveredAt    time.Time  `json:"discovered_at"`
}

// Adapter is a source-specific discovery strategy. Implementations swallow
// per-item parse failures; a page-level failure surfaces as an error which
// callers must treat as zero results for the cycle.
type Adapter interface {
	Name() string
	SourceType() SourceType
	Discover(ctx context.Context, term, city string) ([]Candidate, error)
}

// Store persists candidates under the (company_name, phone, address) identity
// key. Re-discovered entries are silently dropped, never updated.
type Store interface {
	// InsertMany attempts each candidate and returns the count genuinely new.
	// Duplicate keys and per-row storage failures skip the row; the rest of
	// the batch still runs.
	InsertMany(ctx context.Context, city string, candidates []Candidate) (int, error)
	// QuerySince returns records discovered within d, most recent first.
	QuerySince(ctx context.Context, d time.Duration) ([]Record, error)
	// QueryAll returns every record, most recent first.
	QueryAll(ctx context.Context) ([]Record, error)
	Close()
}

// Clock abstracts wall time for deterministic tests.
type Clock interface {
	Now() time.Time
}
