package scraperconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBrowserConfig() Config {
	return Config{
		ScraperType: TypeHeadlessBrowser,
		Selectors: Selectors{
			ProductName:  []string{"h1.product-title", "h1"},
			ProductPrice: []string{".price"},
		},
		Search:       Search{URL: "https://shop.example.com/search", Method: "GET", Param: "q"},
		Pagination:   Pagination{Enabled: true, MaxPages: 3},
		RateLimiting: RateLimiting{RequestDelayMs: 1000, ProductDelayMs: 2000},
	}
}

func TestValidate_AcceptsWellFormedBrowserConfig(t *testing.T) {
	cfg := validBrowserConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadConfigs(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown type", func(c *Config) { c.ScraperType = "selenium" }, "scraperType"},
		{"empty type", func(c *Config) { c.ScraperType = "" }, "scraperType"},
		{"no name selectors", func(c *Config) { c.Selectors.ProductName = nil }, "selectors.productName"},
		{"no price selectors", func(c *Config) { c.Selectors.ProductPrice = nil }, "selectors.productPrice"},
		{"blank selector", func(c *Config) { c.Selectors.ProductPrice = []string{"  "} }, "selectors"},
		{"missing search url", func(c *Config) { c.Search.URL = "" }, "search.url"},
		{"relative search url", func(c *Config) { c.Search.URL = "search?q=" }, "search.url"},
		{"bad method", func(c *Config) { c.Search.Method = "FETCH" }, "search.method"},
		{"missing search param", func(c *Config) { c.Search.Param = "" }, "search.param"},
		{"zero max pages", func(c *Config) { c.Pagination.MaxPages = 0 }, "pagination.maxPages"},
		{"negative delay", func(c *Config) { c.RateLimiting.RequestDelayMs = -1 }, "rateLimiting"},
		{"bad viewport", func(c *Config) { c.Advanced.Viewport = &Viewport{Width: 0, Height: 768} }, "advanced.viewport"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBrowserConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestValidate_DirectAPIRequiresMapping(t *testing.T) {
	cfg := Config{ScraperType: TypeDirectAPI}
	err := cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "api", verr.Field)

	cfg.API = &API{Endpoint: "https://api.example.com/v1/products", Method: "GET", PriceField: "price", NameField: "title"}
	require.NoError(t, cfg.Validate())
}

func TestParse_FailsClosed(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err, "missing configuration must not default")

	_, err = Parse([]byte(`{"scraperType": "headless-browser"`))
	require.Error(t, err, "malformed JSON must not default")

	_, err = Parse([]byte(`{"scraperType": "headless-browser"}`))
	require.Error(t, err, "incomplete configuration must not default")
}

func TestParse_RoundTrip(t *testing.T) {
	cfg := validBrowserConfig()
	data, err := cfg.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, *parsed)
}

func TestGenerateDefault_IsTaggedAndValid(t *testing.T) {
	cfg := GenerateDefault("https://shop.example.com/")

	assert.True(t, cfg.IsDefault, "generated config must be tagged as unverified default")
	assert.Equal(t, TypeHeadlessBrowser, cfg.ScraperType)
	assert.Equal(t, "https://shop.example.com/search", cfg.Search.URL)
	require.NoError(t, cfg.Validate(), "generated default must pass its own validation")

	// Fallback lists go most specific first; the bare h1 catch-all is last.
	require.NotEmpty(t, cfg.Selectors.ProductName)
	assert.Equal(t, "h1", cfg.Selectors.ProductName[len(cfg.Selectors.ProductName)-1])
}
