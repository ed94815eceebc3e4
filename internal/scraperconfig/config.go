// Package scraperconfig holds the per-competitor scraping configuration:
// a tagged union discriminated by ScraperType, persisted as JSON on the
// competitor row. The configuration is validated once at scan start and
// treated as an immutable snapshot for the whole scan.
package scraperconfig

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the configuration variants. Keeping this a distinct
// type forces every dispatch site through an explicit switch instead of
// free-text string matching.
type Type string

const (
	TypeHeadlessBrowser Type = "headless-browser"
	TypeManagedCrawler  Type = "managed-crawler"
	TypeDirectAPI       Type = "direct-api"
)

// Known reports whether t is one of the three supported discriminators.
func (t Type) Known() bool {
	switch t {
	case TypeHeadlessBrowser, TypeManagedCrawler, TypeDirectAPI:
		return true
	}
	return false
}

// Selectors are ordered fallback lists, most specific first. The first
// selector that yields non-empty text wins.
type Selectors struct {
	ProductName  []string `json:"productName"`
	ProductPrice []string `json:"productPrice"`
	ProductSku   []string `json:"productSku,omitempty"`
	ProductImage []string `json:"productImage,omitempty"`
}

// Search describes how to reach the competitor's search results page.
type Search struct {
	URL    string `json:"url"`
	Method string `json:"method"` // GET or POST
	Param  string `json:"param"`  // query parameter carrying the search term
}

// Pagination bounds result-page collection during search scraping.
type Pagination struct {
	Enabled  bool `json:"enabled"`
	MaxPages int  `json:"maxPages"`
}

// RateLimiting holds cooperative pacing delays. These are sleeps between
// network operations, not a concurrency limit.
type RateLimiting struct {
	RequestDelayMs int `json:"requestDelayMs"`
	ProductDelayMs int `json:"productDelayMs"`
}

// Viewport is the emulated browser window size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Advanced carries browser behavior hints.
type Advanced struct {
	StealthMode     bool      `json:"stealthMode"`
	WaitForSelector string    `json:"waitForSelector,omitempty"`
	Viewport        *Viewport `json:"viewport,omitempty"`
}

// API maps a direct-api competitor's request/response shape. No DOM
// selectors are involved for this variant.
type API struct {
	Endpoint   string `json:"endpoint"`
	Method     string `json:"method"`
	PriceField string `json:"priceField"`
	NameField  string `json:"nameField"`
	StockField string `json:"stockField,omitempty"`
}

// Config is the full per-competitor scraping configuration. Which fields
// are meaningful depends on ScraperType: selector/search/pagination fields
// apply to headless-browser and managed-crawler, API applies to
// direct-api only.
type Config struct {
	ScraperType  Type         `json:"scraperType"`
	IsDefault    bool         `json:"isDefault,omitempty"` // true when synthesized by GenerateDefault, unverified by an operator
	Selectors    Selectors    `json:"selectors"`
	Search       Search       `json:"search"`
	Pagination   Pagination   `json:"pagination"`
	RateLimiting RateLimiting `json:"rateLimiting"`
	Advanced     Advanced     `json:"advanced"`
	API          *API         `json:"api,omitempty"`
}

// Parse unmarshals and validates a stored configuration in one step, so
// callers never get their hands on an unvalidated Config.
func Parse(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Field: "scraperType", Reason: "configuration is missing"}
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ValidationError{Field: "(root)", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal serializes the configuration for storage.
func (c *Config) Marshal() ([]byte, error) {
	return json.Marshal(c)
}
