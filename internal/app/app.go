// Package app wires the engine together for the CLI tasks: it owns the
// repository, cache, discovery collaborator and orchestrator, and maps
// each task onto them.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"PriceScout/internal/cache"
	"PriceScout/internal/database"
	"PriceScout/internal/discovery"
	"PriceScout/internal/history"
	"PriceScout/internal/models"
	"PriceScout/internal/orchestrator"
	"PriceScout/internal/scraperconfig"
	"PriceScout/pkg/config"
	"PriceScout/utils"

	"github.com/google/uuid"
)

// App is the main application structure holding all dependencies.
type App struct {
	Config *config.Config
	Repo   *database.Repository
	Cache  *cache.Cache
	Orch   *orchestrator.Orchestrator
}

// New creates an application instance from config.yml.
func New() *App {
	cfg, err := config.Load("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	repo, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	c := cache.New(cfg.CacheTTL())

	var disc discovery.Discoverer
	if cfg.Discovery.Enabled {
		disc = &discovery.SearchDiscoverer{
			Threshold: cfg.Discovery.Threshold,
			UserAgent: cfg.Discovery.UserAgent,
		}
	}

	orch := orchestrator.New(repo, c, disc, orchestrator.BrowserProvider(cfg.Scanner.Headless))
	orch.Workers = utils.GetOptimalWorkerCount(cfg.Scanner.Workers)

	return &App{Config: cfg, Repo: repo, Cache: c, Orch: orch}
}

// RunScan scans a single competitor.
func (a *App) RunScan(competitorID string, skipDiscovery bool) {
	id, err := uuid.Parse(competitorID)
	if err != nil {
		log.Fatalf("Invalid competitor id %q: %v", competitorID, err)
	}

	log.Println("--- Starting Competitor Scan Task ---")
	job, err := a.Orch.ScrapeCompetitor(context.Background(), id, orchestrator.ScanOptions{SkipDiscovery: skipDiscovery})
	if err != nil {
		log.Fatalf("Scan could not start: %v", err)
	}
	reportJob(job)
}

// RunScanAll scans every active competitor of a tenant.
func (a *App) RunScanAll(tenantID string, skipDiscovery bool) {
	if tenantID == "" {
		log.Fatal("A tenant id is required for scan-all")
	}

	log.Println("--- Starting Tenant-Wide Scan Task ---")
	outcomes, err := a.Orch.ScrapeAllCompetitors(context.Background(), tenantID, orchestrator.ScanOptions{SkipDiscovery: skipDiscovery})
	if err != nil {
		log.Fatalf("Tenant scan failed: %v", err)
	}
	if len(outcomes) == 0 {
		log.Printf("No active competitors for tenant %s. Task finished.", tenantID)
		return
	}
	for _, oc := range outcomes {
		if oc.Err != nil {
			log.Printf("%s: could not scan: %v", oc.CompetitorName, oc.Err)
			continue
		}
		log.Printf("%s: %s (%d scraped, %d failed)",
			oc.CompetitorName, oc.Job.Status, oc.Job.ProductsScraped, oc.Job.ProductsFailed)
	}
}

// RunSweep writes one round of daily history snapshots.
func (a *App) RunSweep() {
	log.Println("--- Starting History Sweep Task ---")
	s := history.NewSweeper(a.Repo, a.Config.SweepInterval())
	n, err := s.SweepAll()
	if err != nil {
		log.Fatalf("Sweep finished with errors after %d snapshots: %v", n, err)
	}
	log.Printf("Task finished. Wrote %d snapshots.", n)
}

// RunSweepLoop keeps sweeping on the configured cadence until killed.
func (a *App) RunSweepLoop(ctx context.Context) {
	log.Printf("--- Starting History Sweep Loop (every %s) ---", a.Config.SweepInterval())
	s := history.NewSweeper(a.Repo, a.Config.SweepInterval())
	s.Run(ctx)
}

// RunGenConfig generates and stores a default scraper configuration for
// a competitor that has none worth keeping.
func (a *App) RunGenConfig(competitorID string) {
	id, err := uuid.Parse(competitorID)
	if err != nil {
		log.Fatalf("Invalid competitor id %q: %v", competitorID, err)
	}
	comp, err := a.Repo.GetCompetitor(id)
	if err != nil {
		log.Fatalf("Failed to load competitor: %v", err)
	}

	cfg := scraperconfig.GenerateDefault(comp.WebsiteURL)
	if err := a.Repo.UpdateCompetitorConfig(comp.ID, cfg); err != nil {
		log.Fatalf("Failed to store generated config: %v", err)
	}
	out, _ := cfg.Marshal()
	log.Printf("Stored default configuration for %s:\n%s", comp.Name, out)
}

func reportJob(job *models.ScanJob) {
	dur := ""
	if job.FinishedAt != nil {
		dur = fmt.Sprintf(" in %s", job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond))
	}
	log.Printf("Scan %s finished with status %s%s: %d/%d processed, %d scraped, %d failed",
		job.ID, job.Status, dur, job.ProgressCurrent, job.ProgressTotal, job.ProductsScraped, job.ProductsFailed)
	if job.Error != "" {
		log.Printf("Scan error: %s", job.Error)
	}
}
