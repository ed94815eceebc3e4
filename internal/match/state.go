// Package match implements the revalidation state machine for
// product-competitor matches. It is pure state logic with no I/O, so the
// orchestrator's routing decisions stay unit-testable without a browser
// or a database.
package match

import (
	"time"

	"PriceScout/internal/models"
)

// State of a match with respect to its cached page location.
type State int

const (
	// Fresh means the cached URL is trusted and eligible for direct
	// scraping.
	Fresh State = iota
	// Stale means the URL is missing or flagged for revalidation; the
	// next scan must rediscover the page before any price can be read.
	Stale
)

func (s State) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "stale"
}

// Event is a transition trigger: discovery outcomes, direct-scrape
// outcomes, and operator intervention.
type Event int

const (
	// EventDiscoverySucceeded fires when search/AI discovery found a
	// product page for a stale match.
	EventDiscoverySucceeded Event = iota
	// EventDiscoveryFailed fires when discovery produced no usable
	// candidate. The match stays stale.
	EventDiscoveryFailed
	// EventDirectScrapeSucceeded fires on a successful price read from
	// the cached URL.
	EventDirectScrapeSucceeded
	// EventDirectScrapeNotFound fires when the cached URL no longer
	// resolves to a valid product page. The match turns stale so the
	// next scan rediscovers it instead of failing repeatedly.
	EventDirectScrapeNotFound
	// EventForceRevalidation is the operator override.
	EventForceRevalidation
)

// Outcome carries the event payload applied to the match.
type Outcome struct {
	URL   string
	Price float64
	At    time.Time
}

// StateOf derives the state from the match row. An empty URL or a set
// revalidation flag both mean the cached location cannot be trusted.
func StateOf(m *models.Match) State {
	if m.URL == "" || m.NeedsRevalidation {
		return Stale
	}
	return Fresh
}

// Partition splits matches into direct-eligible (fresh) and
// discovery-required (stale) batches.
func Partition(ms []models.Match) (fresh, stale []models.Match) {
	for _, m := range ms {
		if StateOf(&m) == Fresh {
			fresh = append(fresh, m)
		} else {
			stale = append(stale, m)
		}
	}
	return fresh, stale
}

// Apply mutates the match according to the transition table and returns
// the resulting state. It is the single source of truth for how scan
// outcomes change match rows.
func Apply(m *models.Match, ev Event, out Outcome) State {
	switch ev {
	case EventDiscoverySucceeded:
		m.URL = out.URL
		m.NeedsRevalidation = false
	case EventDiscoveryFailed:
		// Stays stale, URL left unset. The failure itself is logged by
		// the caller.
	case EventDirectScrapeSucceeded:
		m.LastPrice = out.Price
		at := out.At
		m.LastScrapedAt = &at
	case EventDirectScrapeNotFound:
		m.NeedsRevalidation = true
	case EventForceRevalidation:
		m.NeedsRevalidation = true
	}
	return StateOf(m)
}
