package scraperconfig

import "strings"

// GenerateDefault synthesizes a headless-browser configuration for a
// competitor that has none yet. The selector lists are generic guesses,
// ordered most specific first, so the result is usable for a first scan
// but is tagged IsDefault so operators know it is unverified.
func GenerateDefault(siteURL string) Config {
	base := strings.TrimRight(siteURL, "/")
	return Config{
		ScraperType: TypeHeadlessBrowser,
		IsDefault:   true,
		Selectors: Selectors{
			ProductName: []string{
				"h1[itemprop='name']",
				"h1.product-title",
				".product-name h1",
				".product-info h1",
				"h1",
			},
			ProductPrice: []string{
				"[itemprop='price']",
				".product-price .amount",
				".price .amount",
				"span.product-price",
				".price",
			},
			ProductSku: []string{
				"[itemprop='sku']",
				".product-sku",
				".sku",
			},
			ProductImage: []string{
				"img[itemprop='image']",
				".product-image img",
				".product-gallery img",
			},
		},
		Search: Search{
			URL:    base + "/search",
			Method: "GET",
			Param:  "q",
		},
		Pagination: Pagination{
			Enabled:  true,
			MaxPages: 3,
		},
		RateLimiting: RateLimiting{
			RequestDelayMs: 1500,
			ProductDelayMs: 2500,
		},
		Advanced: Advanced{
			StealthMode: true,
			Viewport:    &Viewport{Width: 1366, Height: 768},
		},
	}
}
