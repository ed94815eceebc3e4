// Package custom holds competitor-specific scraper overrides. Each entry
// wraps the generic scraper and replaces only the strategy steps that
// site actually does differently; everything else is inherited.
package custom

import (
	"net/url"
	"strings"

	"PriceScout/internal/scraper"
	"PriceScout/internal/scraper/generic"
	"PriceScout/internal/scraperconfig"
	"PriceScout/utils"

	"github.com/go-rod/rod"
)

// Constructor builds a custom scraper against a live browser session.
type Constructor func(browser *rod.Browser, cfg scraperconfig.Config) scraper.Scraper

// Registry maps a lowercase fragment of the competitor's domain or name
// to its specialized implementation. The resolver does a
// case-insensitive substring check against this table.
var Registry = map[string]Constructor{
	"megastore":   NewMegastore,
	"outlet-king": NewOutletKing,
}

// NewMegastore handles megastore's European price notation
// ("1.299,50 €"): thousands separated by dots, comma as the decimal
// mark. Only the price parser differs from the generic scraper.
func NewMegastore(browser *rod.Browser, cfg scraperconfig.Config) scraper.Scraper {
	return generic.NewWithStrategies(browser, cfg, generic.Strategies{
		ParsePrice: parseEuropeanPrice,
	})
}

func parseEuropeanPrice(text string) float64 {
	normalized := strings.ReplaceAll(text, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	return utils.ParsePrice(normalized)
}

// NewOutletKing strips outlet-king's per-session tracking parameters
// from result links before de-duplication, otherwise every search run
// sees the same product as a new URL.
func NewOutletKing(browser *rod.Browser, cfg scraperconfig.Config) scraper.Scraper {
	return generic.NewWithStrategies(browser, cfg, generic.Strategies{
		Dedupe: dedupeWithoutTracking,
	})
}

func dedupeWithoutTracking(candidates []generic.Candidate) []generic.Candidate {
	cleaned := make([]generic.Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.URL = stripTrackingParams(c.URL)
		cleaned = append(cleaned, c)
	}
	return generic.DedupeByURL(cleaned)
}

func stripTrackingParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for param := range q {
		if strings.HasPrefix(param, "utm_") || param == "sid" || param == "ref" {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
