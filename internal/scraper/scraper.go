// Package scraper defines the capability contract every scraper
// implementation must provide, plus the error taxonomy the orchestrator
// dispatches on. Concrete implementations live in the generic, custom and
// mock subpackages; selection happens in the resolve subpackage.
package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductQuery identifies one of the tenant's products to find on a
// competitor site during search-driven scraping.
type ProductQuery struct {
	ID   uuid.UUID
	Name string
	SKU  string
}

// CompetitorInfo is the input to a search-driven discovery-and-extraction
// pass.
type CompetitorInfo struct {
	CompetitorName string
	CompetitorURL  string
	Products       []ProductQuery
}

// DirectProduct is a product whose competitor page URL is already known.
type DirectProduct struct {
	ID  uuid.UUID
	URL string
}

// ScrapedProduct is one successfully extracted product observation.
type ScrapedProduct struct {
	ProductID       uuid.UUID
	URL             string
	Name            string
	SKU             string
	Price           float64
	Currency        string
	InStock         bool
	ImageURL        string
	Characteristics map[string]string
}

// ScrapeError records one per-product failure. Kind keeps navigation,
// extraction and not-found failures distinct because they drive different
// match transitions downstream.
type ScrapeError struct {
	URL       string
	Kind      FailureKind
	Error     string
	Timestamp time.Time
}

// ScraperResult aggregates one batch. Per-product failures land in
// Errors and never abort the batch; only a session-level failure is
// returned as an error from the contract methods.
type ScraperResult struct {
	ScrapedProducts []ScrapedProduct
	ProductsScraped int
	ProductsFailed  int
	Errors          []ScrapeError
}

// AddFailure appends one per-product failure and bumps the counter.
func (r *ScraperResult) AddFailure(url string, kind FailureKind, msg string) {
	r.ProductsFailed++
	r.Errors = append(r.Errors, ScrapeError{
		URL:       url,
		Kind:      kind,
		Error:     msg,
		Timestamp: time.Now(),
	})
}

// AddProduct appends one successful extraction and bumps the counter.
func (r *ScraperResult) AddProduct(p ScrapedProduct) {
	r.ProductsScraped++
	r.ScrapedProducts = append(r.ScrapedProducts, p)
}

// Scraper is the capability contract. Both methods swallow per-product
// failures into the result; a non-nil error means the underlying
// session/browser/connection is unusable and the scan must stop.
type Scraper interface {
	// ScrapeViaSearch performs a search-driven discovery-and-extraction
	// pass for the given products on the competitor site.
	ScrapeViaSearch(ctx context.Context, info CompetitorInfo) (*ScraperResult, error)

	// ScrapeDirect navigates straight to each known product URL and
	// extracts price and stock, skipping search and matching entirely.
	// Called with an empty list it returns an empty result without any
	// network call.
	ScrapeDirect(ctx context.Context, products []DirectProduct) (*ScraperResult, error)
}
