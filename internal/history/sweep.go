// Package history keeps the price timeline dense: scans append
// observations as they happen, and the sweeper backfills a daily
// snapshot for matches no scan touched, so charts never show gaps.
package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"PriceScout/internal/database"
	"PriceScout/internal/models"
)

// DefaultInterval is how far back a match's last scrape may lie before
// the sweeper snapshots its last known price.
const DefaultInterval = 24 * time.Hour

// Sweeper writes carry-forward history rows for matches that have a
// known price but were not scraped within the interval.
type Sweeper struct {
	Repo     *database.Repository
	Interval time.Duration

	// now is swapped out in tests.
	now func() time.Time
}

func NewSweeper(repo *database.Repository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{Repo: repo, Interval: interval, now: time.Now}
}

// SweepTenant snapshots one tenant and reports how many rows it wrote.
func (s *Sweeper) SweepTenant(tenantID string) (int, error) {
	matches, err := s.Repo.GetActiveMatchesForTenant(tenantID)
	if err != nil {
		return 0, fmt.Errorf("loading matches for %s: %w", tenantID, err)
	}

	now := s.now().UTC()
	cutoff := now.Add(-s.Interval)
	written := 0
	for _, m := range matches {
		if m.LastScrapedAt != nil && m.LastScrapedAt.After(cutoff) {
			continue // a scan already produced today's observation
		}
		err := s.Repo.InsertHistory(&models.HistoryRecord{
			ProductID:    m.ProductID,
			CompetitorID: m.CompetitorID,
			Price:        m.LastPrice,
			InStock:      true,
			RecordedAt:   now,
		})
		if err != nil {
			return written, fmt.Errorf("snapshotting match %s: %w", m.ID, err)
		}
		written++
	}
	return written, nil
}

// SweepAll snapshots every known tenant. One tenant failing does not
// stop the rest.
func (s *Sweeper) SweepAll() (int, error) {
	tenants, err := s.Repo.ListTenants()
	if err != nil {
		return 0, fmt.Errorf("listing tenants: %w", err)
	}
	total := 0
	var lastErr error
	for _, tenant := range tenants {
		n, err := s.SweepTenant(tenant)
		total += n
		if err != nil {
			log.Printf("Sweep for tenant %s: %v", tenant, err)
			lastErr = err
		}
	}
	return total, lastErr
}

// Run sweeps immediately and then on every interval tick until the
// context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		n, err := s.SweepAll()
		if err != nil {
			log.Printf("History sweep finished with errors: %v", err)
		} else {
			log.Printf("History sweep wrote %d snapshots", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
