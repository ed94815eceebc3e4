package mock

import (
	"context"
	"fmt"
	"testing"

	"PriceScout/internal/scraper"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directBatch(n int) []scraper.DirectProduct {
	out := make([]scraper.DirectProduct, n)
	for i := range out {
		out[i] = scraper.DirectProduct{ID: uuid.New(), URL: fmt.Sprintf("https://shop.example.com/p/%d", i)}
	}
	return out
}

func TestScrapeDirect_EmptyBatchIsNoOp(t *testing.T) {
	s := New(1)
	res, err := s.ScrapeDirect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.ScrapedProducts)
	assert.Zero(t, res.ProductsScraped)
	assert.Zero(t, res.ProductsFailed)
	assert.Empty(t, res.Errors)
}

func TestDeterminismBySeed(t *testing.T) {
	batch := directBatch(50)

	a, err := New(42).ScrapeDirect(context.Background(), batch)
	require.NoError(t, err)
	b, err := New(42).ScrapeDirect(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, a.ProductsScraped, b.ProductsScraped)
	assert.Equal(t, a.ProductsFailed, b.ProductsFailed)
	require.Equal(t, len(a.ScrapedProducts), len(b.ScrapedProducts))
	for i := range a.ScrapedProducts {
		assert.Equal(t, a.ScrapedProducts[i].Price, b.ScrapedProducts[i].Price)
	}
}

func TestSuccessRatesRoughlyHold(t *testing.T) {
	s := New(7)
	res, err := s.ScrapeDirect(context.Background(), directBatch(1000))
	require.NoError(t, err)
	// 95% direct success, generous tolerance.
	assert.InDelta(t, 950, res.ProductsScraped, 40)

	queries := make([]scraper.ProductQuery, 1000)
	for i := range queries {
		queries[i] = scraper.ProductQuery{ID: uuid.New(), Name: fmt.Sprintf("product %d", i)}
	}
	searchRes, err := New(7).ScrapeViaSearch(context.Background(), scraper.CompetitorInfo{
		CompetitorName: "MegaStore",
		CompetitorURL:  "https://megastore.example.com",
		Products:       queries,
	})
	require.NoError(t, err)
	assert.InDelta(t, 300, searchRes.ProductsScraped, 50)
}

func TestPriceVarianceStaysWithinBounds(t *testing.T) {
	s := New(3)
	s.DirectSuccessRate = 1.0
	s.BasePrice = 200

	res, err := s.ScrapeDirect(context.Background(), directBatch(200))
	require.NoError(t, err)
	for _, p := range res.ScrapedProducts {
		assert.GreaterOrEqual(t, p.Price, 160.0)
		assert.LessOrEqual(t, p.Price, 240.0)
	}
}

func TestForcedNotFound(t *testing.T) {
	s := New(1)
	s.DirectSuccessRate = 1.0
	s.NotFoundURLs = map[string]bool{"https://shop.example.com/p/gone": true}

	res, err := s.ScrapeDirect(context.Background(), []scraper.DirectProduct{
		{ID: uuid.New(), URL: "https://shop.example.com/p/gone"},
		{ID: uuid.New(), URL: "https://shop.example.com/p/here"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProductsScraped)
	assert.Equal(t, 1, res.ProductsFailed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, scraper.KindNotFound, res.Errors[0].Kind)
}

func TestDeadSessionPropagates(t *testing.T) {
	s := New(1)
	s.SessionDead = true

	_, err := s.ScrapeDirect(context.Background(), directBatch(1))
	var se *scraper.SessionError
	require.ErrorAs(t, err, &se)
}
