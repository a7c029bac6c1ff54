package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/fetcher"
	"github.com/leadharvest/buyerscout/internal/ratelimit"
)

// FreeTextConfig parameterizes one keyword-gated free-text source.
type FreeTextConfig struct {
	// Type is the provenance tag for candidates from this source.
	Type buyer.SourceType
	// Name labels the adapter in logs and metrics.
	Name string
	// URLs are the pages to scan.
	URLs []string
	// QueryKey, when set, sends the search term as this query parameter.
	QueryKey string
	// MaxItems caps candidates per invocation.
	MaxItems int
}

// FreeText scrapes loosely structured pages (classified boards, recycling
// locators, scrap yard rosters) with the neighborhood heuristic, keeping
// only candidates whose name mentions the trade.
type FreeText struct {
	cfg   FreeTextConfig
	fetch PageFetcher
	delay Delayer
}

// NewFreeText builds a keyword-gated free-text adapter.
func NewFreeText(cfg FreeTextConfig, fetch PageFetcher, delay Delayer) *FreeText {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 2
	}
	return &FreeText{cfg: cfg, fetch: fetch, delay: delay}
}

// Name identifies the adapter in logs and metrics.
func (a *FreeText) Name() string { return a.cfg.Name }

// SourceType reports the provenance tag stamped on candidates.
func (a *FreeText) SourceType() buyer.SourceType { return a.cfg.Type }

// Discover scans each configured page for topical contacts.
func (a *FreeText) Discover(ctx context.Context, term, _ string) ([]buyer.Candidate, error) {
	var candidates []buyer.Candidate
	var lastErr error

	for _, pageURL := range a.cfg.URLs {
		if len(candidates) >= a.cfg.MaxItems {
			break
		}
		if err := a.delay.Delay(ctx, ratelimit.KindBetweenRequests); err != nil {
			return candidates, err
		}

		req := fetcher.Request{URL: pageURL}
		if a.cfg.QueryKey != "" {
			req.Query = url.Values{a.cfg.QueryKey: {term}}
		}
		resp, err := a.fetch.Fetch(ctx, req)
		if err != nil {
			lastErr = fmt.Errorf("%s fetch %s: %w", a.cfg.Name, pageURL, err)
			continue
		}

		text, err := pageText(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("%s parse %s: %w", a.cfg.Name, pageURL, err)
			continue
		}

		remaining := a.cfg.MaxItems - len(candidates)
		candidates = append(candidates, scanFreeText(text, resp.URL, a.cfg.Type, remaining, true)...)
	}

	if len(candidates) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return candidates, nil
}

// DefaultFreeTextConfigs returns the standard free-text sources in the order
// the cascade invokes them.
func DefaultFreeTextConfigs() []FreeTextConfig {
	return []FreeTextConfig{
		{
			Type:     buyer.SourceBusinessDirectory,
			Name:     "business-directory",
			URLs:     []string{"https://www.superpages.com/search"},
			QueryKey: "search_terms",
			MaxItems: 2,
		},
		{
			Type:     buyer.SourceRecyclingCenter,
			Name:     "recycling-centers",
			URLs: []string{
				"https://earth911.com/recycling-center-search-guides/",
				"https://www.call2recycle.org/locator/",
			},
			MaxItems: 2,
		},
		{
			Type:     buyer.SourceClassifiedAd,
			Name:     "classifieds",
			URLs:     []string{"https://newyork.craigslist.org/search/bts"},
			QueryKey: "query",
			MaxItems: 2,
		},
		{
			Type:     buyer.SourceScrapYardListing,
			Name:     "scrap-yards",
			URLs:     []string{"https://www.iscrapapp.com/scrap-yard/united-states"},
			MaxItems: 3,
		},
	}
}
