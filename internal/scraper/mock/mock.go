// Package mock provides a deterministic scraper for tests and offline
// runs. It needs no browser and no network: outcomes are drawn from a
// seeded generator against configurable success rates, with plausible
// price variance, so downstream aggregation logic can be exercised
// end-to-end.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"PriceScout/internal/scraper"
)

// Reference success rates: search-driven scraping carries matching
// uncertainty, direct scraping skips it.
const (
	DefaultSearchSuccessRate = 0.30
	DefaultDirectSuccessRate = 0.95
)

// Scraper is a seeded, deterministic implementation of the capability
// contract.
type Scraper struct {
	mu  sync.Mutex
	rng *rand.Rand

	SearchSuccessRate float64
	DirectSuccessRate float64

	// BasePrice anchors the synthesized prices; each observation varies
	// within ±20% of it.
	BasePrice float64

	// NotFoundURLs forces a not_found outcome for specific direct URLs,
	// for driving the revalidation transition in tests.
	NotFoundURLs map[string]bool

	// SessionDead makes every call fail with a SessionError, simulating
	// a browser that could not be launched.
	SessionDead bool
}

// New returns a mock scraper with the reference rates and the given
// seed. The same seed always produces the same outcome sequence.
func New(seed int64) *Scraper {
	return &Scraper{
		rng:               rand.New(rand.NewSource(seed)),
		SearchSuccessRate: DefaultSearchSuccessRate,
		DirectSuccessRate: DefaultDirectSuccessRate,
		BasePrice:         100,
	}
}

func (s *Scraper) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// price synthesizes a value in [0.8, 1.2] * BasePrice.
func (s *Scraper) price() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.BasePrice * (0.8 + 0.4*s.rng.Float64())
}

// ScrapeViaSearch simulates a search-driven pass with the configured
// success rate. Failures surface as per-product extraction errors, never
// as a batch abort.
func (s *Scraper) ScrapeViaSearch(ctx context.Context, info scraper.CompetitorInfo) (*scraper.ScraperResult, error) {
	if s.SessionDead {
		return nil, &scraper.SessionError{Err: fmt.Errorf("mock session is dead")}
	}

	result := &scraper.ScraperResult{}
	for _, q := range info.Products {
		if ctx.Err() != nil {
			return result, nil
		}
		if s.roll() >= s.SearchSuccessRate {
			result.AddFailure(info.CompetitorURL, scraper.KindExtraction,
				fmt.Sprintf("no search result matched %q", q.Name))
			continue
		}
		result.AddProduct(scraper.ScrapedProduct{
			ProductID: q.ID,
			URL:       fmt.Sprintf("%s/p/%s", info.CompetitorURL, q.ID),
			Name:      q.Name,
			SKU:       q.SKU,
			Price:     s.price(),
			Currency:  "USD",
			InStock:   true,
		})
	}
	return result, nil
}

// ScrapeDirect simulates direct-URL scraping. An empty input returns an
// empty result without touching the generator.
func (s *Scraper) ScrapeDirect(ctx context.Context, products []scraper.DirectProduct) (*scraper.ScraperResult, error) {
	if s.SessionDead {
		return nil, &scraper.SessionError{Err: fmt.Errorf("mock session is dead")}
	}

	result := &scraper.ScraperResult{}
	if len(products) == 0 {
		return result, nil
	}

	for _, p := range products {
		if ctx.Err() != nil {
			return result, nil
		}
		if s.NotFoundURLs[p.URL] {
			result.AddFailure(p.URL, scraper.KindNotFound, (&scraper.NotFoundError{URL: p.URL}).Error())
			continue
		}
		if s.roll() >= s.DirectSuccessRate {
			result.AddFailure(p.URL, scraper.KindNavigation, "simulated navigation timeout")
			continue
		}
		result.AddProduct(scraper.ScrapedProduct{
			ProductID: p.ID,
			URL:       p.URL,
			Name:      "mock product",
			Price:     s.price(),
			Currency:  "USD",
			InStock:   true,
		})
	}
	return result, nil
}
