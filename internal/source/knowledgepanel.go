package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/fetcher"
	"github.com/leadharvest/buyerscout/internal/ratelimit"
)

const (
	defaultPanelSearchURL = "https://www.google.com/search"
	panelMaxResults       = 2
)

// KnowledgePanelConfig controls the search-panel adapter.
type KnowledgePanelConfig struct {
	SearchURL string
}

// KnowledgePanel scrapes business side panels out of a search results page.
// These carry a curated name and phone, making them the most trusted source
// (confidence 0.8), but they yield few results per query.
type KnowledgePanel struct {
	cfg   KnowledgePanelConfig
	fetch PageFetcher
	delay Delayer
}

// NewKnowledgePanel builds the BusinessKnowledgePanel adapter.
func NewKnowledgePanel(cfg KnowledgePanelConfig, fetch PageFetcher, delay Delayer) *KnowledgePanel {
	if cfg.SearchURL == "" {
		cfg.SearchURL = defaultPanelSearchURL
	}
	return &KnowledgePanel{cfg: cfg, fetch: fetch, delay: delay}
}

// Name identifies the adapter in logs and metrics.
func (k *KnowledgePanel) Name() string { return "knowledge-panel" }

// SourceType reports the provenance tag stamped on candidates.
func (k *KnowledgePanel) SourceType() buyer.SourceType { return buyer.SourceKnowledgePanel }

// Discover searches for term plus city and parses any business panels found.
func (k *KnowledgePanel) Discover(ctx context.Context, term, city string) ([]buyer.Candidate, error) {
	if err := k.delay.Delay(ctx, ratelimit.KindBetweenRequests); err != nil {
		return nil, err
	}

	query := term
	if city != "" {
		query = term + " " + city
	}
	resp, err := k.fetch.Fetch(ctx, fetcher.Request{
		URL:   k.cfg.SearchURL,
		Query: url.Values{"q": {query}},
	})
	if err != nil {
		return nil, fmt.Errorf("panel search: %w", err)
	}

	// Panel content is injected late on the live site; give it a moment to
	// settle before trusting the markup.
	if err := k.delay.Delay(ctx, ratelimit.KindHeadlessWait); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse panel page: %w", err)
	}

	var candidates []buyer.Candidate
	doc.Find(`[data-attrid="kc:/business:phone"]`).EachWithBreak(func(_ int, phoneElem *goquery.Selection) bool {
		container := phoneElem.Closest("div.g")
		if container.Length() == 0 {
			return true
		}

		name := strings.TrimSpace(container.Find("h3").First().Text())
		phone := firstPhone(phoneElem.Text())
		if name == "" || phone == "" {
			return true
		}
		address := strings.TrimSpace(container.Find(`[data-attrid="kc:/business:address"]`).First().Text())

		candidates = append(candidates, buyer.Candidate{
			CompanyName:     name,
			Phone:           phone,
			Address:         address,
			SourceURL:       resp.URL,
			BusinessType:    buyer.SourceKnowledgePanel,
			ConfidenceScore: buyer.SourceKnowledgePanel.Confidence(),
		})
		return len(candidates) < panelMaxResults
	})

	return candidates, nil
}
