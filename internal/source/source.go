// Package source implements the discovery adapters, one per external site
// category. Adapters share one contract: given a search term and an optional
// city, return zero or more candidate leads. Failures never escape a cycle:
// a broken page means an empty result, not an aborted cascade.
package source

import (
	"context"
	"strings"

	"github.com/leadharvest/buyerscout/internal/buyer"
	"github.com/leadharvest/buyerscout/internal/extract"
	"github.com/leadharvest/buyerscout/internal/fetcher"
	"github.com/leadharvest/buyerscout/internal/ratelimit"
)

// PageFetcher retrieves raw pages. Satisfied by fetcher.Client.
type PageFetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) (fetcher.Response, error)
}

// Delayer blocks between outbound calls. Satisfied by ratelimit.Limiter.
type Delayer interface {
	Delay(ctx context.Context, kind ratelimit.Kind) error
}

// Company names accepted by the free-text heuristic must fall in this length
// band: shorter strings are navigation fragments, longer ones are prose.
const (
	minNameLen = 6
	maxNameLen = 49
)

// scanFreeText applies the neighborhood heuristic to unstructured page text:
// when a line yields a phone number, the line immediately above it is taken as
// the company name if its length fits the accepted band. With topicGate set,
// names that never mention the trade are dropped.
func scanFreeText(text, pageURL string, st buyer.SourceType, max int, topicGate bool) []buyer.Candidate {
	_, pageEmails := extract.Contacts(text)
	email := ""
	if len(pageEmails) > 0 {
		email = pageEmails[0]
	}

	var out []buyer.Candidate
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		phones, _ := extract.Contacts(line)
		if len(phones) == 0 {
			continue
		}

		name := ""
		if i > 0 {
			name = strings.TrimSpace(lines[i-1])
		}
		if len(name) < minNameLen || len(name) > maxNameLen {
			continue
		}
		if topicGate && !buyer.MatchesTopic(name) {
			continue
		}

		out = append(out, buyer.Candidate{
			CompanyName:     name,
			Phone:           phones[0],
			Email:           email,
			Website:         pageURL,
			SourceURL:       pageURL,
			BusinessType:    st,
			ConfidenceScore: st.Confidence(),
		})
		if len(out) >= max {
			break
		}
	}
	return out
}

// scanFirstPhone applies the neighborhood heuristic to the first phone match
// on the page only. When that phone's neighbor line fails the name band the
// page yields nothing; later phones are never considered.
func scanFirstPhone(text, pageURL string, st buyer.SourceType) []buyer.Candidate {
	_, pageEmails := extract.Contacts(text)
	email := ""
	if len(pageEmails) > 0 {
		email = pageEmails[0]
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		phones, _ := extract.Contacts(line)
		if len(phones) == 0 {
			continue
		}

		name := ""
		if i > 0 {
			name = strings.TrimSpace(lines[i-1])
		}
		if len(name) < minNameLen || len(name) > maxNameLen {
			return nil
		}
		return []buyer.Candidate{{
			CompanyName:     name,
			Phone:           phones[0],
			Email:           email,
			Website:         pageURL,
			SourceURL:       pageURL,
			BusinessType:    st,
			ConfidenceScore: st.Confidence(),
		}}
	}
	return nil
}

// firstPhone normalizes a raw scraped phone field, falling back to the
// trimmed original when no ten-digit number can be recovered.
func firstPhone(raw string) string {
	phones, _ := extract.Contacts(raw)
	if len(phones) > 0 {
		return phones[0]
	}
	return strings.TrimSpace(raw)
}
