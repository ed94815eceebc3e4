package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"PriceScout/internal/scraper/generic"
	"PriceScout/internal/scraperconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchResultsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/p/1">Acme Anvil 10kg Black</a>
			<a href="/p/2">Acme Hammer</a>
			<a href="/faq">Help and FAQ</a>
		</body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchDiscoverer_FindsBestCandidate(t *testing.T) {
	srv := searchResultsServer(t)
	d := &SearchDiscoverer{}

	cand, err := d.DiscoverProductURL(context.Background(), srv.URL+"/search?q=anvil", "Acme Anvil 10kg")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/p/1", cand.URL)
	assert.GreaterOrEqual(t, cand.Confidence, 0.5)
}

func TestSearchDiscoverer_NothingAboveThreshold(t *testing.T) {
	srv := searchResultsServer(t)
	d := &SearchDiscoverer{}

	_, err := d.DiscoverProductURL(context.Background(), srv.URL+"/search?q=widget", "Glow Widget 3000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCandidate))
}

func TestStub(t *testing.T) {
	s := &Stub{URLs: map[string]string{"Acme Anvil": "https://shop.example.com/p/1"}}

	cand, err := s.DiscoverProductURL(context.Background(), "", "Acme Anvil")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/p/1", cand.URL)

	_, err = s.DiscoverProductURL(context.Background(), "", "Unknown")
	assert.True(t, errors.Is(err, ErrNoCandidate))
	assert.Equal(t, 2, s.Calls)
}

func TestSearchDiscoverer_QueryTermReachesServer(t *testing.T) {
	var sawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawQuery = r.URL.Query().Get("q")
		if sawQuery == "" {
			// Empty search form: no product links at all.
			fmt.Fprint(w, `<html><body><form action="/search"></form></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><a href="/p/1">Acme Anvil 10kg Black</a></body></html>`)
	}))
	t.Cleanup(srv.Close)

	searchURL, err := generic.BuildSearchURL(
		scraperconfig.Search{URL: srv.URL + "/search", Method: "GET", Param: "q"},
		"Acme Anvil 10kg", 1)
	require.NoError(t, err)

	d := &SearchDiscoverer{}
	cand, err := d.DiscoverProductURL(context.Background(), searchURL, "Acme Anvil 10kg")
	require.NoError(t, err)
	assert.Equal(t, "Acme Anvil 10kg", sawQuery)
	assert.Equal(t, srv.URL+"/p/1", cand.URL)
}

func TestSearchDiscoverer_HonorsContext(t *testing.T) {
	srv := searchResultsServer(t)
	d := &SearchDiscoverer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DiscoverProductURL(ctx, srv.URL+"/search?q=anvil", "Acme Anvil 10kg")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoCandidate), "a dead context is a fetch failure, not a miss")
}
