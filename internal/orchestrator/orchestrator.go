// Package orchestrator drives a scan end to end: it loads the
// competitor and its eligible matches, routes them through the
// revalidation state machine, resolves and runs the scraper, isolates
// per-product failures, and persists outcomes with an auditable
// progress log on the scan job.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"PriceScout/internal/cache"
	"PriceScout/internal/database"
	"PriceScout/internal/discovery"
	"PriceScout/internal/match"
	"PriceScout/internal/models"
	"PriceScout/internal/scraper"
	"PriceScout/internal/scraper/generic"
	"PriceScout/internal/scraper/resolve"
	"PriceScout/internal/scraperconfig"
	"PriceScout/utils"

	"github.com/google/uuid"
)

// ScraperProvider yields the scraper for one scan plus a release
// function for the underlying session. The provider is injectable so
// orchestration logic is testable without a browser.
type ScraperProvider func(comp *models.Competitor, cfg scraperconfig.Config) (scraper.Scraper, func(), error)

// BrowserProvider is the production provider: each scan acquires its
// own browser session and resolves the implementation for the
// competitor. The returned release function must run on every exit
// path.
func BrowserProvider(headless bool) ScraperProvider {
	return func(comp *models.Competitor, cfg scraperconfig.Config) (scraper.Scraper, func(), error) {
		factory, err := resolve.ForCompetitor(comp.TenantID, comp.Name, comp.WebsiteURL, cfg)
		if err != nil {
			return nil, nil, err
		}
		sess, err := scraper.NewSession(headless)
		if err != nil {
			return nil, nil, err
		}
		return factory(sess.Browser), sess.Close, nil
	}
}

// ScanOptions narrow or speed up a scan.
type ScanOptions struct {
	// ProductID limits the scan to a single product.
	ProductID *uuid.UUID
	// SkipDiscovery skips stale matches entirely instead of attempting
	// rediscovery (price-only fast mode).
	SkipDiscovery bool
}

// Orchestrator wires the engine together.
type Orchestrator struct {
	Repo       *database.Repository
	Cache      *cache.Cache
	Discoverer discovery.Discoverer
	Provider   ScraperProvider
	// Workers bounds the competitor fan-out of ScrapeAllCompetitors.
	Workers int
}

func New(repo *database.Repository, c *cache.Cache, d discovery.Discoverer, p ScraperProvider) *Orchestrator {
	return &Orchestrator{Repo: repo, Cache: c, Discoverer: d, Provider: p, Workers: 1}
}

// scanState tracks in-flight counters for one scan. Scrape failures and
// discovery failures are counted separately: they drive different match
// transitions and different scan-level outcomes.
type scanState struct {
	progress        int
	scraped         int
	failed          int
	discoveryFailed int
}

// ScrapeCompetitor runs one scan. The returned job carries the terminal
// state; a non-nil error is returned only when the scan could not even
// be set up (unknown competitor, storage failure). Scan-level failures
// are captured on the job itself.
func (o *Orchestrator) ScrapeCompetitor(ctx context.Context, competitorID uuid.UUID, opts ScanOptions) (*models.ScanJob, error) {
	comp, err := o.Repo.GetCompetitor(competitorID)
	if err != nil {
		return nil, fmt.Errorf("loading competitor: %w", err)
	}

	job := &models.ScanJob{TenantID: comp.TenantID, CompetitorID: &comp.ID, ProductID: opts.ProductID}
	if err := o.Repo.CreateScanJob(job); err != nil {
		return nil, fmt.Errorf("creating scan job: %w", err)
	}
	if err := o.Repo.SetScanStatus(job.ID, models.ScanRunning); err != nil {
		return nil, err
	}
	o.appendLog(job.ID, models.LogInfo, fmt.Sprintf("Scan started for %s", comp.Name), nil)

	// The configuration is snapshotted here and never re-read during
	// the scan. Validation fails closed before any network call.
	cfg := comp.ScraperConfig
	if err := cfg.Validate(); err != nil {
		return o.failScan(job.ID, err.Error())
	}

	matches, err := o.Repo.GetEligibleMatches(comp.ID, opts.ProductID)
	if err != nil {
		return o.failScan(job.ID, fmt.Sprintf("loading matches: %v", err))
	}

	freshMatches, staleMatches := match.Partition(matches)
	total := len(freshMatches)
	if !opts.SkipDiscovery {
		total += len(staleMatches)
	}
	if err := o.Repo.SetScanTotal(job.ID, total); err != nil {
		return o.failScan(job.ID, err.Error())
	}
	o.appendLog(job.ID, models.LogInfo,
		fmt.Sprintf("%d matches eligible: %d direct, %d need discovery", len(matches), len(freshMatches), len(staleMatches)),
		models.JSONMap{"direct": len(freshMatches), "discovery": len(staleMatches)})
	if opts.SkipDiscovery && len(staleMatches) > 0 {
		o.appendLog(job.ID, models.LogInfo,
			fmt.Sprintf("Skipping %d stale matches (discovery disabled for this run)", len(staleMatches)), nil)
	}

	sc, release, err := o.Provider(comp, cfg)
	if err != nil {
		// Resolver rejection or a session that would not come up; both
		// are fatal before any product was attempted.
		return o.failScan(job.ID, err.Error())
	}
	defer release()

	st := &scanState{}

	cancelled, job2, err := o.runDirectPhase(ctx, job.ID, sc, cfg, freshMatches, st)
	if job2 != nil || err != nil {
		return job2, err
	}
	if !cancelled && !opts.SkipDiscovery {
		cancelled, job2, err = o.runDiscoveryPhase(ctx, job.ID, comp, sc, cfg, staleMatches, st)
		if job2 != nil || err != nil {
			return job2, err
		}
	}

	status := models.ScanCompleted
	if cancelled {
		status = models.ScanCancelled
		o.appendLog(job.ID, models.LogInfo, "Scan cancelled at product boundary", nil)
	}
	o.appendLog(job.ID, models.LogInfo, "Scan finished",
		models.JSONMap{"scraped": st.scraped, "failed": st.failed, "discoveryFailed": st.discoveryFailed})
	if err := o.Repo.FinishScanJob(job.ID, status, ""); err != nil {
		log.Printf("finishing scan %s: %v", job.ID, err)
	}
	if err := o.Repo.TouchCompetitorScan(comp.ID, time.Now().UTC()); err != nil {
		log.Printf("updating last scan time for %s: %v", comp.Name, err)
	}
	o.Cache.InvalidateTenant(comp.TenantID)

	return o.Repo.GetScanJob(job.ID)
}

// runDirectPhase scrapes all fresh matches one product at a time so
// cancellation is honored between products. A non-nil job return means
// the scan terminated early (session failure).
func (o *Orchestrator) runDirectPhase(ctx context.Context, jobID uuid.UUID, sc scraper.Scraper, cfg scraperconfig.Config, fresh []models.Match, st *scanState) (bool, *models.ScanJob, error) {
	if len(fresh) == 0 {
		return false, nil, nil
	}
	if err := o.Repo.SetScanStep(jobID, "direct scrape"); err != nil {
		log.Printf("setting scan step: %v", err)
	}

	for i := range fresh {
		if o.cancelRequested(ctx, jobID) {
			return true, nil, nil
		}
		if i > 0 {
			if err := pause(ctx, cfg.RateLimiting.ProductDelayMs); err != nil {
				return true, nil, nil
			}
		}

		m := fresh[i]
		res, err := sc.ScrapeDirect(ctx, []scraper.DirectProduct{{ID: m.ProductID, URL: m.URL}})
		if err != nil {
			job, ferr := o.failScan(jobID, err.Error())
			return false, job, ferr
		}
		o.applyDirectResult(jobID, &m, res, st)

		st.progress++
		o.recordProgress(jobID, st)
	}
	return false, nil, nil
}

// runDiscoveryPhase handles stale matches: the discovery collaborator
// first, the scraper's own search pass as fallback. Discovery failures
// leave the match stale and are counted apart from scrape failures.
func (o *Orchestrator) runDiscoveryPhase(ctx context.Context, jobID uuid.UUID, comp *models.Competitor, sc scraper.Scraper, cfg scraperconfig.Config, stale []models.Match, st *scanState) (bool, *models.ScanJob, error) {
	if len(stale) == 0 {
		return false, nil, nil
	}
	if err := o.Repo.SetScanStep(jobID, "discovery"); err != nil {
		log.Printf("setting scan step: %v", err)
	}

	for i := range stale {
		if o.cancelRequested(ctx, jobID) {
			return true, nil, nil
		}
		if i > 0 {
			if err := pause(ctx, cfg.RateLimiting.ProductDelayMs); err != nil {
				return true, nil, nil
			}
		}

		m := stale[i]
		prod, err := o.Repo.GetProduct(m.ProductID)
		if err != nil {
			o.appendLog(jobID, models.LogError, fmt.Sprintf("loading product for match %s: %v", m.ID, err), nil)
			st.discoveryFailed++
			st.progress++
			o.recordProgress(jobID, st)
			continue
		}

		discoveredURL := ""
		if o.Discoverer != nil {
			// The collaborator gets the fully built query URL, not the
			// bare search endpoint.
			searchURL, berr := generic.BuildSearchURL(cfg.Search, prod.Name, 1)
			if berr != nil {
				o.appendLog(jobID, models.LogError,
					fmt.Sprintf("Cannot build search url for %q: %v", prod.Name, berr), nil)
			} else {
				cand, derr := o.Discoverer.DiscoverProductURL(ctx, searchURL, prod.Name)
				if derr == nil {
					discoveredURL = cand.URL
				} else {
					o.appendLog(jobID, models.LogInfo,
						fmt.Sprintf("Discovery collaborator found nothing for %q, falling back to search scrape", prod.Name),
						models.JSONMap{"reason": derr.Error()})
				}
			}
		}

		if discoveredURL != "" {
			match.Apply(&m, match.EventDiscoverySucceeded, match.Outcome{URL: discoveredURL})
			if err := o.Repo.UpdateMatch(&m); err != nil {
				log.Printf("persisting discovered url for match %s: %v", m.ID, err)
			}
			o.appendLog(jobID, models.LogSuccess,
				fmt.Sprintf("Discovered page for %q", prod.Name), models.JSONMap{"url": discoveredURL})

			res, err := sc.ScrapeDirect(ctx, []scraper.DirectProduct{{ID: m.ProductID, URL: m.URL}})
			if err != nil {
				job, ferr := o.failScan(jobID, err.Error())
				return false, job, ferr
			}
			o.applyDirectResult(jobID, &m, res, st)
		} else {
			res, err := sc.ScrapeViaSearch(ctx, scraper.CompetitorInfo{
				CompetitorName: comp.Name,
				CompetitorURL:  comp.WebsiteURL,
				Products:       []scraper.ProductQuery{{ID: prod.ID, Name: prod.Name, SKU: prod.SKU}},
			})
			if err != nil {
				job, ferr := o.failScan(jobID, err.Error())
				return false, job, ferr
			}
			o.applySearchResult(jobID, &m, prod.Name, res, st)
		}

		st.progress++
		o.recordProgress(jobID, st)
	}
	return false, nil, nil
}

// applyDirectResult folds one single-product direct batch into match
// state, history and the scan log.
func (o *Orchestrator) applyDirectResult(jobID uuid.UUID, m *models.Match, res *scraper.ScraperResult, st *scanState) {
	if len(res.ScrapedProducts) > 0 {
		sp := res.ScrapedProducts[0]
		if !utils.ValidPrice(sp.Price) {
			st.failed++
			o.appendLog(jobID, models.LogError,
				fmt.Sprintf("Rejected price %v for %s", sp.Price, sp.URL), models.JSONMap{"url": sp.URL})
			return
		}
		now := time.Now().UTC()
		match.Apply(m, match.EventDirectScrapeSucceeded, match.Outcome{Price: sp.Price, At: now})
		if err := o.Repo.UpdateMatch(m); err != nil {
			log.Printf("updating match %s: %v", m.ID, err)
		}
		if err := o.Repo.InsertHistory(&models.HistoryRecord{
			ProductID:    m.ProductID,
			CompetitorID: m.CompetitorID,
			Price:        sp.Price,
			InStock:      sp.InStock,
			RecordedAt:   now,
		}); err != nil {
			log.Printf("writing history for match %s: %v", m.ID, err)
		}
		st.scraped++
		o.appendLog(jobID, models.LogSuccess,
			fmt.Sprintf("Scraped %s", sp.URL),
			models.JSONMap{"url": sp.URL, "price": sp.Price, "inStock": sp.InStock})
		return
	}

	st.failed++
	if len(res.Errors) == 0 {
		o.appendLog(jobID, models.LogError, fmt.Sprintf("No result for %s", m.URL), models.JSONMap{"url": m.URL})
		return
	}
	e := res.Errors[0]
	if e.Kind == scraper.KindNotFound {
		// Self-healing: flag the match so the next scan rediscovers the
		// page instead of failing on it again.
		match.Apply(m, match.EventDirectScrapeNotFound, match.Outcome{})
		if err := o.Repo.UpdateMatch(m); err != nil {
			log.Printf("flagging match %s for revalidation: %v", m.ID, err)
		}
		o.appendLog(jobID, models.LogError,
			fmt.Sprintf("Page gone for %s, flagged for rediscovery", e.URL),
			models.JSONMap{"url": e.URL, "kind": string(e.Kind)})
		return
	}
	o.appendLog(jobID, models.LogError, e.Error, models.JSONMap{"url": e.URL, "kind": string(e.Kind)})
}

// applySearchResult folds one single-product search pass into match
// state. A miss here is a discovery failure, not a scrape failure.
func (o *Orchestrator) applySearchResult(jobID uuid.UUID, m *models.Match, productName string, res *scraper.ScraperResult, st *scanState) {
	if len(res.ScrapedProducts) > 0 {
		sp := res.ScrapedProducts[0]
		if !utils.ValidPrice(sp.Price) {
			st.discoveryFailed++
			o.appendLog(jobID, models.LogError,
				fmt.Sprintf("Search found %q but price %v is unusable", productName, sp.Price), models.JSONMap{"url": sp.URL})
			return
		}
		now := time.Now().UTC()
		match.Apply(m, match.EventDiscoverySucceeded, match.Outcome{URL: sp.URL})
		match.Apply(m, match.EventDirectScrapeSucceeded, match.Outcome{Price: sp.Price, At: now})
		if err := o.Repo.UpdateMatch(m); err != nil {
			log.Printf("updating match %s: %v", m.ID, err)
		}
		if err := o.Repo.InsertHistory(&models.HistoryRecord{
			ProductID:    m.ProductID,
			CompetitorID: m.CompetitorID,
			Price:        sp.Price,
			InStock:      sp.InStock,
			RecordedAt:   now,
		}); err != nil {
			log.Printf("writing history for match %s: %v", m.ID, err)
		}
		st.scraped++
		o.appendLog(jobID, models.LogSuccess,
			fmt.Sprintf("Found and scraped %q via search", productName),
			models.JSONMap{"url": sp.URL, "price": sp.Price})
		return
	}

	st.discoveryFailed++
	match.Apply(m, match.EventDiscoveryFailed, match.Outcome{})
	msg := fmt.Sprintf("Discovery failed for %q, match stays stale", productName)
	meta := models.JSONMap{}
	if len(res.Errors) > 0 {
		meta["reason"] = res.Errors[0].Error
	}
	o.appendLog(jobID, models.LogInfo, msg, meta)
}

func (o *Orchestrator) recordProgress(jobID uuid.UUID, st *scanState) {
	if err := o.Repo.BumpScanProgress(jobID, st.progress); err != nil {
		log.Printf("bumping progress for %s: %v", jobID, err)
	}
	if err := o.Repo.SetScanCounts(jobID, st.scraped, st.failed); err != nil {
		log.Printf("updating counts for %s: %v", jobID, err)
	}
	o.appendLog(jobID, models.LogProgress, fmt.Sprintf("Processed %d products", st.progress),
		models.JSONMap{"current": st.progress})
}

func (o *Orchestrator) cancelRequested(ctx context.Context, jobID uuid.UUID) bool {
	if ctx.Err() != nil {
		return true
	}
	flagged, err := o.Repo.ScanCancelRequested(jobID)
	if err != nil {
		log.Printf("checking cancel flag for %s: %v", jobID, err)
		return false
	}
	return flagged
}

func (o *Orchestrator) failScan(jobID uuid.UUID, msg string) (*models.ScanJob, error) {
	o.appendLog(jobID, models.LogError, msg, nil)
	if err := o.Repo.FinishScanJob(jobID, models.ScanFailed, msg); err != nil {
		log.Printf("marking scan %s failed: %v", jobID, err)
	}
	return o.Repo.GetScanJob(jobID)
}

func (o *Orchestrator) appendLog(jobID uuid.UUID, typ models.LogType, msg string, meta models.JSONMap) {
	if err := o.Repo.AppendScanLog(jobID, models.ScanLogEntry{Type: typ, Message: msg, Metadata: meta}); err != nil {
		log.Printf("appending scan log for %s: %v", jobID, err)
	}
}

func pause(ctx context.Context, ms int) error {
	if ms <= 0 {
		return nil
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
