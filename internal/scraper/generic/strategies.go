package generic

import (
	"net/url"
	"strconv"

	"PriceScout/internal/scraperconfig"
	"PriceScout/utils"
)

// Strategies are the composable override points of the generic scraper.
// A custom competitor implementation replaces only the functions that
// differ and inherits the rest, instead of re-implementing the whole
// contract.
type Strategies struct {
	// ParsePrice turns extracted price text into a number.
	ParsePrice func(text string) float64

	// Dedupe collapses duplicate candidate links from search results.
	Dedupe func(candidates []Candidate) []Candidate

	// BuildSearchURL constructs the results-page URL for a query and a
	// 1-based page number.
	BuildSearchURL func(search scraperconfig.Search, query string, pageNum int) (string, error)
}

func (s Strategies) withDefaults() Strategies {
	if s.ParsePrice == nil {
		s.ParsePrice = utils.ParsePrice
	}
	if s.Dedupe == nil {
		s.Dedupe = DedupeByURL
	}
	if s.BuildSearchURL == nil {
		s.BuildSearchURL = BuildSearchURL
	}
	return s
}

// DedupeByURL keeps the first candidate seen for each URL.
func DedupeByURL(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

// BuildSearchURL is the default search URL builder: the configured query
// parameter carries the search term and pages beyond the first add a
// page parameter. Only GET search forms are supported by the generic
// scraper.
func BuildSearchURL(search scraperconfig.Search, query string, pageNum int) (string, error) {
	u, err := url.Parse(search.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(search.Param, query)
	if pageNum > 1 {
		q.Set("page", strconv.Itoa(pageNum))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
