// Package resolve picks the concrete scraper implementation for a
// tenant/competitor/configuration triple. Selection is pure: no browser
// is launched and nothing is cached, so the decision is trivially
// table-testable.
package resolve

import (
	"sort"
	"strings"

	"PriceScout/internal/scraper"
	"PriceScout/internal/scraper/custom"
	"PriceScout/internal/scraper/generic"
	"PriceScout/internal/scraperconfig"

	"github.com/go-rod/rod"
)

// Factory builds the selected scraper once the scan's browser session
// exists.
type Factory func(browser *rod.Browser) scraper.Scraper

// ForCompetitor resolves the implementation for one competitor. Only
// headless-browser configurations have an implementation today; other
// types fail loudly instead of silently falling back. Among
// headless-browser competitors, a case-insensitive substring match
// against the custom registry decides between a specialized scraper and
// the generic one.
func ForCompetitor(tenantID, competitorName, competitorURL string, cfg scraperconfig.Config) (Factory, error) {
	switch cfg.ScraperType {
	case scraperconfig.TypeHeadlessBrowser:
		// resolvable below
	default:
		return nil, &scraper.NotSupportedError{Type: cfg.ScraperType}
	}

	if fragment, ok := CustomFragment(competitorName, competitorURL); ok {
		build := custom.Registry[fragment]
		return func(browser *rod.Browser) scraper.Scraper {
			return build(browser, cfg)
		}, nil
	}

	return func(browser *rod.Browser) scraper.Scraper {
		return generic.New(browser, cfg)
	}, nil
}

// CustomFragment returns the registry key matching the competitor's name
// or URL, if any. Matching is a case-insensitive substring check against
// the known custom domains.
func CustomFragment(competitorName, competitorURL string) (string, bool) {
	key := strings.ToLower(competitorName + " " + competitorURL)
	for _, fragment := range registryFragments() {
		if strings.Contains(key, fragment) {
			return fragment, true
		}
	}
	return "", false
}

// registryFragments returns the custom registry keys in stable order so
// resolution is deterministic when fragments overlap.
func registryFragments() []string {
	fragments := make([]string, 0, len(custom.Registry))
	for fragment := range custom.Registry {
		fragments = append(fragments, fragment)
	}
	sort.Strings(fragments)
	return fragments
}
