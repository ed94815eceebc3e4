package generic

import (
	"errors"
	"strings"
	"testing"

	"PriceScout/internal/scraper"
	"PriceScout/internal/scraperconfig"
	"PriceScout/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

var testSelectors = scraperconfig.Selectors{
	ProductName:  []string{"h1.product-title", "h1"},
	ProductPrice: []string{".price .amount", ".price"},
	ProductSku:   []string{".sku"},
	ProductImage: []string{".product-image img"},
}

const productPage = `<html><head><title>Acme Anvil | MegaStore</title></head><body>
<h1 class="product-title">Acme Anvil 10kg</h1>
<div class="price"><span class="amount">$ 1,299.50</span></div>
<span class="sku">ANV-10</span>
<div class="product-image"><img src="/img/anvil.jpg"></div>
</body></html>`

func TestExtractProduct_HappyPath(t *testing.T) {
	sp, err := ExtractProduct(doc(t, productPage), testSelectors, utils.ParsePrice, "https://shop.example.com/p/1")
	require.NoError(t, err)

	assert.Equal(t, "Acme Anvil 10kg", sp.Name)
	assert.Equal(t, 1299.50, sp.Price)
	assert.Equal(t, "USD", sp.Currency)
	assert.Equal(t, "ANV-10", sp.SKU)
	assert.Equal(t, "/img/anvil.jpg", sp.ImageURL)
	assert.True(t, sp.InStock)
}

func TestExtractProduct_FallbackSelectorWins(t *testing.T) {
	// No .product-title, so the bare h1 fallback must kick in; no
	// .amount inside .price, so the broader price selector wins.
	html := `<html><body><h1>Garden Hose 25m</h1><div class="price">19.99</div></body></html>`
	sp, err := ExtractProduct(doc(t, html), testSelectors, utils.ParsePrice, "https://shop.example.com/p/2")
	require.NoError(t, err)
	assert.Equal(t, "Garden Hose 25m", sp.Name)
	assert.Equal(t, 19.99, sp.Price)
}

func TestExtractProduct_OutOfStock(t *testing.T) {
	html := `<html><body><h1>Acme Anvil</h1><div class="price">$99</div><p>Currently unavailable</p></body></html>`
	sp, err := ExtractProduct(doc(t, html), testSelectors, utils.ParsePrice, "https://shop.example.com/p/3")
	require.NoError(t, err)
	assert.False(t, sp.InStock)
}

func TestExtractProduct_NotFoundPage(t *testing.T) {
	testCases := []struct {
		name string
		html string
	}{
		{"404 title", `<html><head><title>404 - MegaStore</title></head><body></body></html>`},
		{"not found heading", `<html><body><h1>Page not found</h1></body></html>`},
		{"nothing extractable", `<html><head><title>MegaStore</title></head><body><p>Welcome</p></body></html>`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractProduct(doc(t, tc.html), testSelectors, utils.ParsePrice, "https://shop.example.com/p/gone")
			var nf *scraper.NotFoundError
			require.True(t, errors.As(err, &nf), "want NotFoundError, got %v", err)
			assert.Equal(t, scraper.KindNotFound, scraper.KindOf(err))
		})
	}
}

func TestExtractProduct_ExtractionErrors(t *testing.T) {
	t.Run("price selectors all empty", func(t *testing.T) {
		html := `<html><body><h1>Acme Anvil</h1></body></html>`
		_, err := ExtractProduct(doc(t, html), testSelectors, utils.ParsePrice, "u")
		var ex *scraper.ExtractionError
		require.True(t, errors.As(err, &ex))
		assert.Equal(t, "productPrice", ex.Field)
	})

	t.Run("price text not a positive number", func(t *testing.T) {
		html := `<html><body><h1>Acme Anvil</h1><div class="price">call us</div></body></html>`
		_, err := ExtractProduct(doc(t, html), testSelectors, utils.ParsePrice, "u")
		var ex *scraper.ExtractionError
		require.True(t, errors.As(err, &ex))
	})
}

const searchPage = `<html><body>
<a href="/p/1">Acme Anvil 10kg Black</a>
<a href="/p/2">Acme Hammer</a>
<a href="https://other.example.net/p/9">Acme Anvil 10kg</a>
<a href="/about">About us</a>
<a href="/p/1">Acme Anvil 10kg Black</a>
</body></html>`

func TestCollectAndScoreCandidates(t *testing.T) {
	cands := collectCandidates(doc(t, searchPage), "https://shop.example.com/search?q=anvil")

	// The off-host link must be dropped already at collection time.
	for _, c := range cands {
		assert.Contains(t, c.URL, "shop.example.com")
	}

	deduped := DedupeByURL(cands)
	assert.Less(t, len(deduped), len(cands), "duplicate /p/1 link should collapse")

	best, ok := bestCandidate(deduped, "Acme Anvil 10kg")
	require.True(t, ok)
	assert.Equal(t, "https://shop.example.com/p/1", best)

	_, ok = bestCandidate(deduped, "Completely Unrelated Widget")
	assert.False(t, ok, "no candidate above threshold for an unrelated name")
}

func TestBuildSearchURL(t *testing.T) {
	search := scraperconfig.Search{URL: "https://shop.example.com/search", Method: "GET", Param: "q"}

	u, err := BuildSearchURL(search, "acme anvil", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/search?q=acme+anvil", u)

	u, err = BuildSearchURL(search, "acme anvil", 3)
	require.NoError(t, err)
	assert.Contains(t, u, "page=3")
}
