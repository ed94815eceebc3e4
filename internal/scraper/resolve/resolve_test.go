package resolve

import (
	"testing"

	"PriceScout/internal/scraper"
	"PriceScout/internal/scraperconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func browserConfig() scraperconfig.Config {
	cfg := scraperconfig.GenerateDefault("https://shop.example.com")
	cfg.IsDefault = false
	return cfg
}

func TestForCompetitor_UnsupportedTypes(t *testing.T) {
	testCases := []struct {
		name string
		typ  scraperconfig.Type
	}{
		{"managed crawler", scraperconfig.TypeManagedCrawler},
		{"direct api", scraperconfig.TypeDirectAPI},
		{"unknown", scraperconfig.Type("selenium")},
		{"empty", scraperconfig.Type("")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := browserConfig()
			cfg.ScraperType = tc.typ

			factory, err := ForCompetitor("tenant-1", "Some Shop", "https://shop.example.com", cfg)
			assert.Nil(t, factory)

			var nse *scraper.NotSupportedError
			require.ErrorAs(t, err, &nse)
			assert.Equal(t, tc.typ, nse.Type)
		})
	}
}

func TestForCompetitor_Selection(t *testing.T) {
	testCases := []struct {
		name           string
		competitorName string
		competitorURL  string
		wantCustom     bool
	}{
		{"registry match on url", "Shop 42", "https://www.megastore.de", true},
		{"registry match on name, case-insensitive", "MegaStore DE", "https://example.com", true},
		{"hyphenated domain match", "OK", "https://outlet-king.example.com", true},
		{"no match falls back to generic", "Acme Shop", "https://acme.example.com", false},
		{"near miss is not a match", "Mega Store", "https://mega-store.example.com", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fragment, isCustom := CustomFragment(tc.competitorName, tc.competitorURL)
			assert.Equal(t, tc.wantCustom, isCustom, "fragment=%q", fragment)

			factory, err := ForCompetitor("tenant-1", tc.competitorName, tc.competitorURL, browserConfig())
			require.NoError(t, err)
			require.NotNil(t, factory)

			// Selection must be pure: resolving twice gives the same
			// decision with no side effects.
			fragmentAgain, isCustomAgain := CustomFragment(tc.competitorName, tc.competitorURL)
			assert.Equal(t, fragment, fragmentAgain)
			assert.Equal(t, isCustom, isCustomAgain)
		})
	}
}
