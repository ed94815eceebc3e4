package database

import (
	"database/sql"
	"fmt"
	"time"

	"PriceScout/internal/models"

	"github.com/google/uuid"
)

// CreateScanJob inserts a new job in pending state.
func (r *Repository) CreateScanJob(j *models.ScanJob) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = models.ScanPending
	}
	if j.StartedAt.IsZero() {
		j.StartedAt = time.Now().UTC()
	}
	var compID, prodID any
	if j.CompetitorID != nil {
		compID = j.CompetitorID.String()
	}
	if j.ProductID != nil {
		prodID = j.ProductID.String()
	}
	_, err := r.DB.Exec(`
		INSERT INTO scan_jobs (id, tenant_id, competitor_id, product_id, status, current_step, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID.String(), j.TenantID, compID, prodID, j.Status, j.CurrentStep, j.StartedAt)
	if err != nil {
		return fmt.Errorf("inserting scan job: %w", err)
	}
	return nil
}

// GetScanJob fetches one job including its ordered log.
func (r *Repository) GetScanJob(id uuid.UUID) (*models.ScanJob, error) {
	row := r.DB.QueryRow(`
		SELECT id, tenant_id, competitor_id, product_id, status, current_step,
		       progress_current, progress_total, products_scraped, products_failed,
		       error, started_at, finished_at
		FROM scan_jobs WHERE id = ?`, id.String())

	var j models.ScanJob
	var idStr string
	var compID, prodID sql.NullString
	var finished sql.NullTime
	err := row.Scan(&idStr, &j.TenantID, &compID, &prodID, &j.Status, &j.CurrentStep,
		&j.ProgressCurrent, &j.ProgressTotal, &j.ProductsScraped, &j.ProductsFailed,
		&j.Error, &j.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	j.ID, _ = uuid.Parse(idStr)
	if compID.Valid {
		u, perr := uuid.Parse(compID.String)
		if perr == nil {
			j.CompetitorID = &u
		}
	}
	if prodID.Valid {
		u, perr := uuid.Parse(prodID.String)
		if perr == nil {
			j.ProductID = &u
		}
	}
	if finished.Valid {
		t := finished.Time
		j.FinishedAt = &t
	}

	j.Logs, err = r.getScanLogs(id)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repository) getScanLogs(jobID uuid.UUID) ([]models.ScanLogEntry, error) {
	rows, err := r.DB.Query(`
		SELECT ts, type, message, metadata FROM scan_logs
		WHERE job_id = ? ORDER BY id`, jobID.String())
	if err != nil {
		return nil, fmt.Errorf("querying scan logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ScanLogEntry
	for rows.Next() {
		var e models.ScanLogEntry
		var meta sql.NullString
		if err := rows.Scan(&e.Timestamp, &e.Type, &e.Message, &meta); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" {
			var m models.JSONMap
			if err := m.Scan(meta.String); err == nil {
				e.Metadata = m
			}
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

// ListScanJobs returns a tenant's jobs, newest first, without logs.
func (r *Repository) ListScanJobs(tenantID string, limit int) ([]models.ScanJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(`
		SELECT id, status, current_step, progress_current, progress_total,
		       products_scraped, products_failed, error, started_at, finished_at
		FROM scan_jobs WHERE tenant_id = ?
		ORDER BY started_at DESC LIMIT ?`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan jobs: %w", err)
	}
	defer rows.Close()

	var out []models.ScanJob
	for rows.Next() {
		var j models.ScanJob
		var idStr string
		var finished sql.NullTime
		if err := rows.Scan(&idStr, &j.Status, &j.CurrentStep, &j.ProgressCurrent, &j.ProgressTotal,
			&j.ProductsScraped, &j.ProductsFailed, &j.Error, &j.StartedAt, &finished); err != nil {
			return nil, err
		}
		j.ID, _ = uuid.Parse(idStr)
		j.TenantID = tenantID
		if finished.Valid {
			t := finished.Time
			j.FinishedAt = &t
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// SetScanStatus moves a non-terminal job into a new status. Terminal
// jobs are immutable.
func (r *Repository) SetScanStatus(id uuid.UUID, status models.ScanStatus) error {
	res, err := r.DB.Exec(`
		UPDATE scan_jobs SET status = ?
		WHERE id = ? AND status IN ('pending', 'running')`, status, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetScanStep updates the human-readable current step label.
func (r *Repository) SetScanStep(id uuid.UUID, step string) error {
	_, err := r.DB.Exec(`UPDATE scan_jobs SET current_step = ? WHERE id = ? AND finished_at IS NULL`, step, id.String())
	return err
}

// SetScanTotal sets the progress denominator. It only ever grows.
func (r *Repository) SetScanTotal(id uuid.UUID, total int) error {
	_, err := r.DB.Exec(`
		UPDATE scan_jobs SET progress_total = MAX(progress_total, ?)
		WHERE id = ? AND finished_at IS NULL`, total, id.String())
	return err
}

// BumpScanProgress advances the progress counter. MAX keeps it
// monotone and the total acts as a ceiling.
func (r *Repository) BumpScanProgress(id uuid.UUID, current int) error {
	_, err := r.DB.Exec(`
		UPDATE scan_jobs
		SET progress_current = MIN(MAX(progress_current, ?), progress_total)
		WHERE id = ? AND finished_at IS NULL`, current, id.String())
	return err
}

// SetScanCounts records the scraped/failed totals so far. Counters never
// decrease.
func (r *Repository) SetScanCounts(id uuid.UUID, scraped, failed int) error {
	_, err := r.DB.Exec(`
		UPDATE scan_jobs
		SET products_scraped = MAX(products_scraped, ?), products_failed = MAX(products_failed, ?)
		WHERE id = ? AND finished_at IS NULL`, scraped, failed, id.String())
	return err
}

// FinishScanJob moves the job into a terminal status exactly once.
func (r *Repository) FinishScanJob(id uuid.UUID, status models.ScanStatus, errMsg string) error {
	res, err := r.DB.Exec(`
		UPDATE scan_jobs SET status = ?, error = ?, finished_at = ?
		WHERE id = ? AND finished_at IS NULL`,
		status, errMsg, time.Now().UTC(), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AppendScanLog writes one entry to the job's append-only log.
func (r *Repository) AppendScanLog(jobID uuid.UUID, entry models.ScanLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	meta, err := entry.Metadata.Value()
	if err != nil {
		return fmt.Errorf("serializing log metadata: %w", err)
	}
	_, err = r.DB.Exec(`
		INSERT INTO scan_logs (job_id, ts, type, message, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		jobID.String(), entry.Timestamp, entry.Type, entry.Message, meta)
	if err != nil {
		return fmt.Errorf("appending scan log: %w", err)
	}
	return nil
}

// RequestScanCancel flags a running job for cooperative cancellation.
// The orchestrator honors the flag at the next per-product boundary;
// this call does not preempt anything in flight.
func (r *Repository) RequestScanCancel(id uuid.UUID) error {
	res, err := r.DB.Exec(`
		UPDATE scan_jobs SET cancel_requested = 1
		WHERE id = ? AND status IN ('pending', 'running')`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ScanCancelRequested reports whether an external actor asked the job
// to stop.
func (r *Repository) ScanCancelRequested(id uuid.UUID) (bool, error) {
	var flagged bool
	err := r.DB.QueryRow(`SELECT cancel_requested FROM scan_jobs WHERE id = ?`, id.String()).Scan(&flagged)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	return flagged, err
}
