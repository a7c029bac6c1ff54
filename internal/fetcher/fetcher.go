// Package fetcher implements page retrieval using gocolly.
package fetcher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	// UserAgents is the pool a random agent is drawn from per request.
	UserAgents     []string
	Timeout        time.Duration
	PerDomainRPS   float64
	PerDomainBurst int
}

// Request captures everything needed to fetch one page.
type Request struct {
	URL     string
	Query   url.Values
	Headers http.Header
}

// Response is the result of a single fetch. A non-200 StatusCode arrives as
// an error from Fetch; callers degrade to an empty result rather than retry.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Client fetches pages through a shared Colly collector with randomized
// browser-like headers and a per-domain courtesy rate limit.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
	domains       *domainLimiter
}

// New builds a Client.
func New(cfg Config) *Client {
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	c.IgnoreRobotsTxt = true

	return &Client{
		cfg:           cfg,
		baseCollector: c,
		domains:       newDomainLimiter(cfg.PerDomainRPS, cfg.PerDomainBurst),
	}
}

// Fetch executes a single HTTP GET. Query parameters are appended to the URL
// and a randomized header set is applied on top of any caller headers.
func (c *Client) Fetch(ctx context.Context, request Request) (Response, error) {
	target := request.URL
	if len(request.Query) > 0 {
		u, err := url.Parse(request.URL)
		if err != nil {
			return Response{}, fmt.Errorf("parse url: %w", err)
		}
		q := u.Query()
		for key, values := range request.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	if err := c.domains.Wait(ctx, target); err != nil {
		return Response{}, err
	}

	var (
		result   Response
		fetchErr error
	)
	start := time.Now()
	collector := c.buildCollector(request, start, &result, &fetchErr)

	if err := c.runCollector(ctx, collector, target, &fetchErr); err != nil {
		return result, err
	}
	if result.StatusCode != http.StatusOK {
		return result, fmt.Errorf("unexpected status %d for %s", result.StatusCode, target)
	}
	return result, nil
}

func (c *Client) buildCollector(
	request Request,
	start time.Time,
	result *Response,
	fetchErr *error,
) *colly.Collector {
	collector := c.baseCollector.Clone()
	if len(c.cfg.UserAgents) > 0 {
		collector.UserAgent = c.cfg.UserAgents[rand.IntN(len(c.cfg.UserAgents))]
	}
	timeout := c.cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range browserHeaders() {
			r.Headers.Set(key, value)
		}
		for key, values := range request.Headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		*result = Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
			result.URL = r.Request.URL.String()
		}
		*fetchErr = err
	})

	return collector
}

func (c *Client) runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", target, err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch %s: %w", target, *fetchErr)
		}
		return nil
	}
}

// browserHeaders is the fixed header set sent alongside the rotating agent.
func browserHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
