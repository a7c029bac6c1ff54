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
	defaultDirectoryURL  = "https://www.yellowpages.com/search"
	directoryMaxListings = 3
)

// DirectoryConfig controls the structured-directory adapter.
type DirectoryConfig struct {
	// SearchURL is the directory search endpoint. Defaults to Yellow Pages.
	SearchURL string
}

// Directory scrapes a structured business directory. Listings carry marked-up
// name/phone/address blocks, so extraction is selector-based rather than
// heuristic. Highest-volume source, confidence 0.7.
type Directory struct {
	cfg   DirectoryConfig
	fetch PageFetcher
	delay Delayer
}

// NewDirectory builds the DirectoryListing adapter.
func NewDirectory(cfg DirectoryConfig, fetch PageFetcher, delay Delayer) *Directory {
	if cfg.SearchURL == "" {
		cfg.SearchURL = defaultDirectoryURL
	}
	return &Directory{cfg: cfg, fetch: fetch, delay: delay}
}

// Name identifies the adapter in logs and metrics.
func (d *Directory) Name() string { return "directory" }

// SourceType reports the provenance tag stamped on candidates.
func (d *Directory) SourceType() buyer.SourceType { return buyer.SourceDirectoryListing }

// Discover searches the directory for term near city.
func (d *Directory) Discover(ctx context.Context, term, city string) ([]buyer.Candidate, error) {
	if err := d.delay.Delay(ctx, ratelimit.KindBetweenRequests); err != nil {
		return nil, err
	}

	resp, err := d.fetch.Fetch(ctx, fetcher.Request{
		URL: d.cfg.SearchURL,
		Query: url.Values{
			"search_terms":       {term},
			"geo_location_terms": {city},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("directory search: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse directory page: %w", err)
	}

	var candidates []buyer.Candidate
	doc.Find("div.result, div.organic").EachWithBreak(func(_ int, listing *goquery.Selection) bool {
		name := strings.TrimSpace(listing.Find("a.business-name").First().Text())
		if name == "" {
			return true // malformed listing, keep scanning siblings
		}

		phone := firstPhone(listing.Find("div.phones, div.phone").First().Text())
		address := strings.TrimSpace(listing.Find("div.adr, div.street-address").First().Text())
		website, _ := listing.Find("a.track-visit-website").First().Attr("href")

		if phone == "" && address == "" {
			return true
		}

		candidates = append(candidates, buyer.Candidate{
			CompanyName:     name,
			Phone:           phone,
			Address:         address,
			Website:         website,
			SourceURL:       resp.URL,
			BusinessType:    buyer.SourceDirectoryListing,
			ConfidenceScore: buyer.SourceDirectoryListing.Confidence(),
		})
		return len(candidates) < directoryMaxListings
	})

	return candidates, nil
}
