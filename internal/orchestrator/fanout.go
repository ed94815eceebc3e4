package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"

	"PriceScout/internal/models"

	"github.com/google/uuid"
)

// CompetitorOutcome is the per-competitor result of a tenant-wide run.
type CompetitorOutcome struct {
	CompetitorID   uuid.UUID
	CompetitorName string
	Job            *models.ScanJob
	Err            error
}

// ScrapeAllCompetitors scans every active competitor of the tenant with
// a bounded worker pool. One competitor failing never aborts the rest;
// outcomes come back in competitor order.
func (o *Orchestrator) ScrapeAllCompetitors(ctx context.Context, tenantID string, opts ScanOptions) ([]CompetitorOutcome, error) {
	comps, err := o.Repo.GetActiveCompetitors(tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading competitors: %w", err)
	}
	if len(comps) == 0 {
		return nil, nil
	}

	workers := o.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(comps) {
		workers = len(comps)
	}
	log.Printf("Scanning %d competitors for tenant %s with %d workers", len(comps), tenantID, workers)

	outcomes := make([]CompetitorOutcome, len(comps))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := comps[i]
				job, err := o.ScrapeCompetitor(ctx, c.ID, opts)
				outcomes[i] = CompetitorOutcome{
					CompetitorID:   c.ID,
					CompetitorName: c.Name,
					Job:            job,
					Err:            err,
				}
				if err != nil {
					log.Printf("Scan for %s errored: %v", c.Name, err)
				}
			}
		}()
	}

	for i := range comps {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes, nil
}
