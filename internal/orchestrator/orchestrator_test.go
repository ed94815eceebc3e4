package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"PriceScout/internal/cache"
	"PriceScout/internal/database"
	"PriceScout/internal/discovery"
	"PriceScout/internal/models"
	"PriceScout/internal/scraper"
	"PriceScout/internal/scraper/mock"
	"PriceScout/internal/scraperconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig is a valid configuration with all pacing delays zeroed so
// scans run instantly.
func fastConfig(siteURL string) scraperconfig.Config {
	cfg := scraperconfig.GenerateDefault(siteURL)
	cfg.RateLimiting.RequestDelayMs = 0
	cfg.RateLimiting.ProductDelayMs = 0
	return cfg
}

type fixture struct {
	repo *database.Repository
	cch  *cache.Cache
	comp *models.Competitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := database.InitDB(filepath.Join(t.TempDir(), "scans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	comp := &models.Competitor{
		TenantID:      "acme",
		Name:          "MegaStore",
		WebsiteURL:    "https://megastore.example.com",
		ScraperConfig: fastConfig("https://megastore.example.com"),
		Active:        true,
		ScanEveryHrs:  24,
	}
	require.NoError(t, repo.CreateCompetitor(comp))
	return &fixture{repo: repo, cch: cache.New(0), comp: comp}
}

func (f *fixture) addMatch(t *testing.T, sku, url string, stale bool) (*models.Product, *models.Match) {
	t.Helper()
	p := &models.Product{TenantID: f.comp.TenantID, SKU: sku, Name: "Acme Anvil " + sku, Active: true, OwnPrice: 99}
	require.NoError(t, f.repo.CreateProduct(p))
	m := &models.Match{ProductID: p.ID, CompetitorID: f.comp.ID, URL: url, NeedsRevalidation: stale}
	require.NoError(t, f.repo.CreateMatch(m))
	return p, m
}

func (f *fixture) orchestrator(s scraper.Scraper, d discovery.Discoverer) (*Orchestrator, *int) {
	calls := new(int)
	provider := func(_ *models.Competitor, _ scraperconfig.Config) (scraper.Scraper, func(), error) {
		*calls++
		return s, func() {}, nil
	}
	return New(f.repo, f.cch, d, provider), calls
}

func TestScanMixedFreshAndStale(t *testing.T) {
	f := newFixture(t)

	// One fresh match, one stale the collaborator can rediscover, one
	// stale nobody can find.
	_, m1 := f.addMatch(t, "SKU-1", "https://megastore.example.com/p/anvil", false)
	p2, m2 := f.addMatch(t, "SKU-2", "https://megastore.example.com/p/old-anvil", true)
	_, m3 := f.addMatch(t, "SKU-3", "", true)

	ms := mock.New(7)
	ms.DirectSuccessRate = 1
	ms.SearchSuccessRate = 0
	stub := &discovery.Stub{URLs: map[string]string{p2.Name: "https://megastore.example.com/p/new-anvil"}}

	o, _ := f.orchestrator(ms, stub)
	job, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.ScanCompleted, job.Status)
	assert.Equal(t, 3, job.ProgressTotal)
	assert.Equal(t, 3, job.ProgressCurrent)
	assert.Equal(t, 2, job.ProductsScraped)
	assert.Equal(t, 0, job.ProductsFailed, "a discovery miss is not a scrape failure")

	assert.Contains(t, stub.LastSearchURL, "https://megastore.example.com/search?")
	assert.Contains(t, stub.LastSearchURL, "q=Acme+Anvil+SKU-", "product name must ride the configured search parameter")

	got1, err := f.repo.GetMatch(m1.ID)
	require.NoError(t, err)
	assert.False(t, got1.NeedsRevalidation)
	assert.Greater(t, got1.LastPrice, 0.0)
	assert.NotNil(t, got1.LastScrapedAt)

	got2, err := f.repo.GetMatch(m2.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://megastore.example.com/p/new-anvil", got2.URL)
	assert.False(t, got2.NeedsRevalidation, "rediscovered and scraped")
	assert.Greater(t, got2.LastPrice, 0.0)

	got3, err := f.repo.GetMatch(m3.ID)
	require.NoError(t, err)
	assert.True(t, got3.NeedsRevalidation, "unfound match stays flagged")
	assert.Empty(t, got3.URL)

	hist, err := f.repo.GetHistory(m2.ProductID, f.comp.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Greater(t, hist[0].Price, 0.0)

	hist3, err := f.repo.GetHistory(m3.ProductID, f.comp.ID)
	require.NoError(t, err)
	assert.Empty(t, hist3, "no observation without a scrape")
}

func TestScanIsolatesPerProductFailures(t *testing.T) {
	f := newFixture(t)

	_, ok := f.addMatch(t, "SKU-OK", "https://megastore.example.com/p/ok", false)
	_, gone := f.addMatch(t, "SKU-GONE", "https://megastore.example.com/p/gone", false)

	ms := mock.New(1)
	ms.DirectSuccessRate = 1
	ms.NotFoundURLs = map[string]bool{gone.URL: true}

	o, _ := f.orchestrator(ms, nil)
	job, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{SkipDiscovery: true})
	require.NoError(t, err)

	assert.Equal(t, models.ScanCompleted, job.Status, "per-product failures never fail the scan")
	assert.Equal(t, 1, job.ProductsScraped)
	assert.Equal(t, 1, job.ProductsFailed)

	flagged, err := f.repo.GetMatch(gone.ID)
	require.NoError(t, err)
	assert.True(t, flagged.NeedsRevalidation, "dead page flagged for rediscovery")
	assert.Equal(t, gone.URL, flagged.URL, "url kept until rediscovery replaces it")

	fine, err := f.repo.GetMatch(ok.ID)
	require.NoError(t, err)
	assert.False(t, fine.NeedsRevalidation)
}

func TestScanFailsOnSessionError(t *testing.T) {
	f := newFixture(t)
	f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)

	ms := mock.New(1)
	ms.SessionDead = true

	o, _ := f.orchestrator(ms, nil)
	job, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.ScanFailed, job.Status)
	assert.Contains(t, job.Error, "session")
}

func TestScanRejectsInvalidConfigBeforeScraping(t *testing.T) {
	f := newFixture(t)
	f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)
	// Blow away the selectors; validation must fail closed before the
	// provider is ever asked for a session.
	require.NoError(t, f.repo.UpdateCompetitorConfig(f.comp.ID,
		scraperconfig.Config{ScraperType: scraperconfig.TypeHeadlessBrowser}))

	o, calls := f.orchestrator(mock.New(1), nil)
	job, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.ScanFailed, job.Status)
	assert.NotEmpty(t, job.Error)
	assert.Zero(t, *calls, "no session for a rejected config")
}

func TestScanSkipDiscoveryLeavesStaleUntouched(t *testing.T) {
	f := newFixture(t)
	f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)
	_, stale := f.addMatch(t, "SKU-2", "", true)

	ms := mock.New(1)
	ms.DirectSuccessRate = 1
	stub := &discovery.Stub{URLs: map[string]string{}}

	o, _ := f.orchestrator(ms, stub)
	job, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{SkipDiscovery: true})
	require.NoError(t, err)

	assert.Equal(t, models.ScanCompleted, job.Status)
	assert.Equal(t, 1, job.ProgressTotal, "stale matches are not part of the batch")
	assert.Zero(t, stub.Calls)

	got, err := f.repo.GetMatch(stale.ID)
	require.NoError(t, err)
	assert.True(t, got.NeedsRevalidation)
}

func TestScanSingleProductScope(t *testing.T) {
	f := newFixture(t)
	target, tm := f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)
	_, other := f.addMatch(t, "SKU-2", "https://megastore.example.com/p/b", false)

	ms := mock.New(1)
	ms.DirectSuccessRate = 1

	o, _ := f.orchestrator(ms, nil)
	job, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{ProductID: &target.ID})
	require.NoError(t, err)

	assert.Equal(t, models.ScanCompleted, job.Status)
	assert.Equal(t, 1, job.ProgressTotal)

	gotTarget, err := f.repo.GetMatch(tm.ID)
	require.NoError(t, err)
	assert.NotNil(t, gotTarget.LastScrapedAt)

	gotOther, err := f.repo.GetMatch(other.ID)
	require.NoError(t, err)
	assert.Nil(t, gotOther.LastScrapedAt, "out-of-scope match untouched")
}

func TestScanHonorsCancellation(t *testing.T) {
	f := newFixture(t)
	_, m := f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ms := mock.New(1)
	o, _ := f.orchestrator(ms, nil)
	job, err := o.ScrapeCompetitor(ctx, f.comp.ID, ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.ScanCancelled, job.Status)
	assert.Zero(t, job.ProgressCurrent)
	assert.NotNil(t, job.FinishedAt)

	got, err := f.repo.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastScrapedAt, "cancelled before the first product")
}

func TestScanInvalidatesTenantCache(t *testing.T) {
	f := newFixture(t)
	f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)

	key := cache.Key(f.comp.TenantID, "dashboard")
	f.cch.Set(key, "stale view")
	otherKey := cache.Key("other-tenant", "dashboard")
	f.cch.Set(otherKey, "unrelated")

	ms := mock.New(1)
	ms.DirectSuccessRate = 1
	o, _ := f.orchestrator(ms, nil)
	_, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{})
	require.NoError(t, err)

	_, hit := f.cch.Get(key)
	assert.False(t, hit, "tenant cache dropped after the scan")
	_, hit = f.cch.Get(otherKey)
	assert.True(t, hit, "other tenants unaffected")
}

func TestScrapeAllCompetitorsIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)

	broken := &models.Competitor{
		TenantID:      f.comp.TenantID,
		Name:          "Outlet King",
		WebsiteURL:    "https://outlet-king.example.com",
		ScraperConfig: scraperconfig.Config{ScraperType: scraperconfig.TypeHeadlessBrowser},
		Active:        true,
	}
	require.NoError(t, f.repo.CreateCompetitor(broken))

	ms := mock.New(1)
	ms.DirectSuccessRate = 1
	o, _ := f.orchestrator(ms, nil)
	o.Workers = 2

	outcomes, err := o.ScrapeAllCompetitors(context.Background(), f.comp.TenantID, ScanOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	byName := map[string]CompetitorOutcome{}
	for _, oc := range outcomes {
		require.NoError(t, oc.Err)
		require.NotNil(t, oc.Job)
		byName[oc.CompetitorName] = oc
	}
	assert.Equal(t, models.ScanCompleted, byName["MegaStore"].Job.Status)
	assert.Equal(t, models.ScanFailed, byName["Outlet King"].Job.Status, "one bad config never blocks the rest")
}

func TestScanLogCarriesLifecycle(t *testing.T) {
	f := newFixture(t)
	f.addMatch(t, "SKU-1", "https://megastore.example.com/p/a", false)

	ms := mock.New(1)
	ms.DirectSuccessRate = 1
	o, _ := f.orchestrator(ms, nil)

	start := time.Now().UTC().Add(-time.Second)
	job, err := o.ScrapeCompetitor(context.Background(), f.comp.ID, ScanOptions{})
	require.NoError(t, err)

	require.NotEmpty(t, job.Logs)
	assert.Contains(t, job.Logs[0].Message, "Scan started")
	last := job.Logs[len(job.Logs)-1]
	assert.Contains(t, last.Message, "Scan finished")
	require.NotNil(t, last.Metadata)
	assert.EqualValues(t, 1, last.Metadata["scraped"])
	require.NotNil(t, job.FinishedAt)
	assert.True(t, job.FinishedAt.After(start))

}
