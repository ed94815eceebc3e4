package discovery

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"PriceScout/utils"

	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0"

// SearchDiscoverer is the built-in Discoverer: it fetches the
// competitor's search results page over plain HTTP and scores every
// same-host link against the product name. No browser is involved, so
// it is cheap enough to run for every stale match.
type SearchDiscoverer struct {
	// Threshold is the minimum token-overlap confidence to accept a
	// candidate. Defaults to 0.5.
	Threshold float64
	UserAgent string
	Timeout   time.Duration
}

func (d *SearchDiscoverer) threshold() float64 {
	if d.Threshold > 0 {
		return d.Threshold
	}
	return 0.5
}

// DiscoverProductURL visits the search URL and returns the best-scoring
// product link, or ErrNoCandidate if none clears the threshold.
func (d *SearchDiscoverer) DiscoverProductURL(ctx context.Context, searchURL, productName string) (*Candidate, error) {
	base, err := url.Parse(searchURL)
	if err != nil {
		return nil, fmt.Errorf("discovery: bad search url %q: %w", searchURL, err)
	}

	ua := d.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := colly.NewCollector(
		colly.UserAgent(ua),
		colly.AllowedDomains(base.Hostname()),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	c.SetRequestTimeout(timeout)

	want := utils.Tokenize(productName)
	best := Candidate{}

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if href == "" {
			return
		}
		score := utils.TokenOverlap(want, utils.Tokenize(e.Text))
		if score > best.Confidence {
			best = Candidate{URL: href, Confidence: score}
		}
	})

	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("discovery: search fetch failed: %w", err)
	}
	c.Wait()

	if best.Confidence < d.threshold() {
		return nil, fmt.Errorf("%w: best score %.2f for %q", ErrNoCandidate, best.Confidence, productName)
	}
	return &best, nil
}
