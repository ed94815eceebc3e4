// Package generic implements the configuration-driven scraper. It needs
// zero competitor-specific code: search URL construction, pagination,
// selector fallbacks and price parsing are all interpreted from the
// competitor's scraperconfig. Site-specific quirks are supplied as
// strategy overrides, see Strategies.
package generic

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"PriceScout/internal/scraper"
	"PriceScout/internal/scraperconfig"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
)

const defaultNavTimeout = 30 * time.Second

// Generic interprets a scraperconfig.Config against a live browser
// session.
type Generic struct {
	browser    *rod.Browser
	cfg        scraperconfig.Config
	strat      Strategies
	navTimeout time.Duration
}

// New builds a generic scraper with the default strategies. This is what
// every competitor without a registered custom implementation gets.
func New(browser *rod.Browser, cfg scraperconfig.Config) *Generic {
	return NewWithStrategies(browser, cfg, Strategies{})
}

// NewWithStrategies builds a generic scraper with selected steps
// overridden. Any nil strategy falls back to the default, so a custom
// implementation only supplies the steps that actually differ.
func NewWithStrategies(browser *rod.Browser, cfg scraperconfig.Config, strat Strategies) *Generic {
	return &Generic{
		browser:    browser,
		cfg:        cfg,
		strat:      strat.withDefaults(),
		navTimeout: defaultNavTimeout,
	}
}

// SetNavTimeout overrides the per-navigation timeout.
func (g *Generic) SetNavTimeout(d time.Duration) { g.navTimeout = d }

// ScrapeDirect navigates straight to each known URL and extracts price
// and stock. An empty list is a no-op without any network call.
func (g *Generic) ScrapeDirect(ctx context.Context, products []scraper.DirectProduct) (*scraper.ScraperResult, error) {
	result := &scraper.ScraperResult{}
	if len(products) == 0 {
		return result, nil
	}

	for i, p := range products {
		if i > 0 {
			if err := pause(ctx, g.cfg.RateLimiting.ProductDelayMs); err != nil {
				return result, nil
			}
		}
		if ctx.Err() != nil {
			return result, nil
		}

		log.Printf("Direct scrape %d/%d: %s", i+1, len(products), p.URL)
		sp, err := g.scrapeProductPage(ctx, p.ID, p.URL)
		if err != nil {
			var se *scraper.SessionError
			if errors.As(err, &se) {
				return result, err
			}
			result.AddFailure(p.URL, scraper.KindOf(err), err.Error())
			continue
		}
		result.AddProduct(*sp)
	}
	return result, nil
}

// ScrapeViaSearch runs the search-driven pass: for each product it
// collects candidate links from the competitor's search results, picks
// the best match by name-token overlap, then extracts from the winning
// product page.
func (g *Generic) ScrapeViaSearch(ctx context.Context, info scraper.CompetitorInfo) (*scraper.ScraperResult, error) {
	result := &scraper.ScraperResult{}

	for i, q := range info.Products {
		if i > 0 {
			if err := pause(ctx, g.cfg.RateLimiting.ProductDelayMs); err != nil {
				return result, nil
			}
		}
		if ctx.Err() != nil {
			return result, nil
		}

		log.Printf("Search scrape %d/%d: %q on %s", i+1, len(info.Products), q.Name, info.CompetitorName)
		candidateURL, err := g.findCandidate(ctx, q)
		if err != nil {
			var se *scraper.SessionError
			if errors.As(err, &se) {
				return result, err
			}
			result.AddFailure(g.cfg.Search.URL, scraper.KindOf(err), err.Error())
			continue
		}

		sp, err := g.scrapeProductPage(ctx, q.ID, candidateURL)
		if err != nil {
			var se *scraper.SessionError
			if errors.As(err, &se) {
				return result, err
			}
			result.AddFailure(candidateURL, scraper.KindOf(err), err.Error())
			continue
		}
		result.AddProduct(*sp)
	}
	return result, nil
}

// findCandidate walks the paginated search results and returns the URL
// of the best-scoring candidate link for the query.
func (g *Generic) findCandidate(ctx context.Context, q scraper.ProductQuery) (string, error) {
	maxPages := 1
	if g.cfg.Pagination.Enabled && g.cfg.Pagination.MaxPages > maxPages {
		maxPages = g.cfg.Pagination.MaxPages
	}

	var all []Candidate
	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if pageNum > 1 {
			if err := pause(ctx, g.cfg.RateLimiting.RequestDelayMs); err != nil {
				break
			}
		}

		searchURL, err := g.strat.BuildSearchURL(g.cfg.Search, q.Name, pageNum)
		if err != nil {
			return "", &scraper.NavigationError{URL: g.cfg.Search.URL, Err: err}
		}

		doc, err := g.loadDocument(ctx, searchURL)
		if err != nil {
			if pageNum == 1 {
				return "", err
			}
			break // later pages are best-effort
		}

		page := collectCandidates(doc, g.cfg.Search.URL)
		if len(page) == 0 {
			break // ran past the last results page
		}
		all = append(all, page...)
	}

	all = g.strat.Dedupe(all)
	best, ok := bestCandidate(all, q.Name)
	if !ok {
		return "", &scraper.ExtractionError{URL: g.cfg.Search.URL, Field: "search results for " + q.Name}
	}
	return best, nil
}

// scrapeProductPage opens one product page and extracts a ScrapedProduct
// from its rendered DOM.
func (g *Generic) scrapeProductPage(ctx context.Context, productID uuid.UUID, pageURL string) (*scraper.ScrapedProduct, error) {
	doc, err := g.loadDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	sp, err := ExtractProduct(doc, g.cfg.Selectors, g.strat.ParsePrice, pageURL)
	if err != nil {
		return nil, err
	}
	sp.ProductID = productID
	return sp, nil
}

// loadDocument navigates a fresh page to the URL and parses the rendered
// HTML with goquery. Navigation failures are per-product errors; failing
// to even open a tab means the browser is gone.
func (g *Generic) loadDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var page *rod.Page
	var err error
	if g.cfg.Advanced.StealthMode {
		page, err = stealth.Page(g.browser)
	} else {
		page, err = g.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, &scraper.SessionError{Err: err}
	}
	defer page.Close()

	if vp := g.cfg.Advanced.Viewport; vp != nil {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: 1,
		})
	}

	if err := page.Context(ctx).Timeout(g.navTimeout).Navigate(pageURL); err != nil {
		return nil, &scraper.NavigationError{URL: pageURL, Err: err}
	}
	if err := page.Timeout(g.navTimeout).WaitLoad(); err != nil {
		return nil, &scraper.NavigationError{URL: pageURL, Err: err}
	}

	if sel := g.cfg.Advanced.WaitForSelector; sel != "" {
		// Best effort: extraction decides whether the page is usable.
		if _, err := page.Timeout(10 * time.Second).Element(sel); err != nil {
			log.Printf("waitForSelector %q did not appear on %s", sel, pageURL)
		}
	}

	if err := pause(ctx, g.cfg.RateLimiting.RequestDelayMs); err != nil {
		return nil, &scraper.NavigationError{URL: pageURL, Err: err}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &scraper.NavigationError{URL: pageURL, Err: err}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// pause sleeps for the configured delay, honoring cancellation.
func pause(ctx context.Context, ms int) error {
	if ms <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
