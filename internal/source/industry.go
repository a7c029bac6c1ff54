package source

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/fetcher"
	"github.com/leadharvest/buyerscout/internal/ratelimit"
)

// defaultIndustryURLs are trade directories with no stable listing markup;
// contacts are dug out of the page text instead.
var defaultIndustryURLs = []string{
	"https://www.recyclingtoday.com/directories/",
	"https://www.waste360.com/directory",
	"https://www.batteriesplus.com/t-battery-recycling",
}

// IndustryConfig controls the industry-directory adapter.
type IndustryConfig struct {
	URLs []string
}

// Industry scrapes fixed industry directory pages using the free-text
// neighborhood heuristic. Only the first phone on a page is considered; if
// its neighbor line is not a plausible name the page yields nothing.
// Confidence 0.6.
type Industry struct {
	cfg   IndustryConfig
	fetch PageFetcher
	delay Delayer
}

// NewIndustry builds the IndustryDirectory adapter.
func NewIndustry(cfg IndustryConfig, fetch PageFetcher, delay Delayer) *Industry {
	if len(cfg.URLs) == 0 {
		cfg.URLs = defaultIndustryURLs
	}
	return &Industry{cfg: cfg, fetch: fetch, delay: delay}
}

// Name identifies the adapter in logs and metrics.
func (a *Industry) Name() string { return "industry-directory" }

// SourceType reports the provenance tag stamped on candidates.
func (a *Industry) SourceType() buyer.SourceType { return buyer.SourceIndustryDirectory }

// Discover walks the configured directory pages. The search term and city are
// unused: these pages are topical by construction, not searchable.
func (a *Industry) Discover(ctx context.Context, _, _ string) ([]buyer.Candidate, error) {
	var candidates []buyer.Candidate
	var lastErr error

	for _, pageURL := range a.cfg.URLs {
		if err := a.delay.Delay(ctx, ratelimit.KindBetweenRequests); err != nil {
			return candidates, err
		}

		resp, err := a.fetch.Fetch(ctx, fetcher.Request{URL: pageURL})
		if err != nil {
			// One unreachable directory must not sink the others.
			lastErr = fmt.Errorf("industry directory %s: %w", pageURL, err)
			continue
		}

		text, err := pageText(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("parse directory %s: %w", pageURL, err)
			continue
		}

		candidates = append(candidates, scanFirstPhone(text, pageURL, buyer.SourceIndustryDirectory)...)
	}

	if len(candidates) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return candidates, nil
}

// pageText strips markup and returns the page's visible text.
func pageText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return doc.Text(), nil
}
