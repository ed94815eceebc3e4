// Package discovery finds candidate competitor product URLs for stale
// matches. The orchestrator only depends on the Discoverer interface;
// the rest of the discovery pipeline (AI matching, external search
// services) lives behind it.
package discovery

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoCandidate means discovery produced nothing above the confidence
// threshold. It is a recoverable condition: the match simply stays
// stale until the next scan.
var ErrNoCandidate = errors.New("discovery: no candidate above confidence threshold")

// Candidate is one discovered product page with its confidence signal.
type Candidate struct {
	URL        string
	Confidence float64
}

// Discoverer resolves a product description to a candidate page on the
// competitor's site. Implementations return ErrNoCandidate (possibly
// wrapped) when nothing usable was found.
type Discoverer interface {
	DiscoverProductURL(ctx context.Context, searchURL, productName string) (*Candidate, error)
}

// Stub is a canned Discoverer for tests and offline runs.
type Stub struct {
	// URLs maps product names to the URL the stub "discovers".
	URLs map[string]string
	// Confidence reported for every hit.
	Confidence float64
	// Err, when set, is returned for every lookup.
	Err error

	Calls int
	// LastSearchURL records what the most recent lookup was asked to
	// visit.
	LastSearchURL string
}

func (s *Stub) DiscoverProductURL(_ context.Context, searchURL string, productName string) (*Candidate, error) {
	s.Calls++
	s.LastSearchURL = searchURL
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.URLs[productName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCandidate, productName)
	}
	conf := s.Confidence
	if conf == 0 {
		conf = 0.9
	}
	return &Candidate{URL: u, Confidence: conf}, nil
}
