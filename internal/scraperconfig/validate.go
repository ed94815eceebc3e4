package scraperconfig

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError reports why a configuration was rejected. Validation
// fails closed: an active competitor with an invalid configuration aborts
// the scan before any network call, it never silently defaults.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scraper configuration: %s: %s", e.Field, e.Reason)
}

// Validate checks the variant selected by ScraperType. It returns the
// first problem found as a *ValidationError.
func (c *Config) Validate() error {
	if !c.ScraperType.Known() {
		return &ValidationError{Field: "scraperType", Reason: fmt.Sprintf("unknown type %q", string(c.ScraperType))}
	}

	switch c.ScraperType {
	case TypeHeadlessBrowser, TypeManagedCrawler:
		if err := c.validateSelectors(); err != nil {
			return err
		}
		if err := c.validateSearch(); err != nil {
			return err
		}
		if c.Pagination.Enabled && c.Pagination.MaxPages < 1 {
			return &ValidationError{Field: "pagination.maxPages", Reason: "must be >= 1 when pagination is enabled"}
		}
	case TypeDirectAPI:
		if c.API == nil {
			return &ValidationError{Field: "api", Reason: "required for direct-api configurations"}
		}
		if _, err := url.ParseRequestURI(c.API.Endpoint); err != nil {
			return &ValidationError{Field: "api.endpoint", Reason: "not a valid URL"}
		}
		if c.API.PriceField == "" {
			return &ValidationError{Field: "api.priceField", Reason: "required"}
		}
		if c.API.NameField == "" {
			return &ValidationError{Field: "api.nameField", Reason: "required"}
		}
	}

	if c.RateLimiting.RequestDelayMs < 0 || c.RateLimiting.ProductDelayMs < 0 {
		return &ValidationError{Field: "rateLimiting", Reason: "delays must not be negative"}
	}
	if vp := c.Advanced.Viewport; vp != nil && (vp.Width <= 0 || vp.Height <= 0) {
		return &ValidationError{Field: "advanced.viewport", Reason: "width and height must be positive"}
	}
	return nil
}

func (c *Config) validateSelectors() error {
	if len(c.Selectors.ProductName) == 0 {
		return &ValidationError{Field: "selectors.productName", Reason: "at least one selector required"}
	}
	if len(c.Selectors.ProductPrice) == 0 {
		return &ValidationError{Field: "selectors.productPrice", Reason: "at least one selector required"}
	}
	for _, list := range [][]string{c.Selectors.ProductName, c.Selectors.ProductPrice, c.Selectors.ProductSku, c.Selectors.ProductImage} {
		for _, sel := range list {
			if strings.TrimSpace(sel) == "" {
				return &ValidationError{Field: "selectors", Reason: "empty selector in fallback list"}
			}
		}
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.URL == "" {
		return &ValidationError{Field: "search.url", Reason: "required"}
	}
	if _, err := url.ParseRequestURI(c.Search.URL); err != nil {
		return &ValidationError{Field: "search.url", Reason: "not a valid URL"}
	}
	switch strings.ToUpper(c.Search.Method) {
	case "GET", "POST":
	default:
		return &ValidationError{Field: "search.method", Reason: "must be GET or POST"}
	}
	if c.Search.Param == "" {
		return &ValidationError{Field: "search.param", Reason: "required"}
	}
	return nil
}
