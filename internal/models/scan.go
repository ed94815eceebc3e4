package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanStatus is the lifecycle state of a ScanJob. A job is immutable once
// it reaches a terminal status (completed, failed or cancelled).
type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
	ScanCancelled ScanStatus = "cancelled"
)

// Terminal reports whether the status admits no further mutation.
func (s ScanStatus) Terminal() bool {
	return s == ScanCompleted || s == ScanFailed || s == ScanCancelled
}

// LogType classifies one scan log entry.
type LogType string

const (
	LogInfo     LogType = "info"
	LogProgress LogType = "progress"
	LogSuccess  LogType = "success"
	LogError    LogType = "error"
)

// ScanLogEntry is one line of a ScanJob's append-only log. Entries are
// written in chronological order and never mutated afterwards.
type ScanLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	Metadata  JSONMap   `json:"metadata,omitempty"`
}

// ScanJob is one execution of the scraping orchestration. Progress
// counters only ever grow and ProgressCurrent never exceeds
// ProgressTotal.
type ScanJob struct {
	ID              uuid.UUID      `db:"id"`
	TenantID        string         `db:"tenant_id"`
	CompetitorID    *uuid.UUID     `db:"competitor_id"` // nil means all competitors
	ProductID       *uuid.UUID     `db:"product_id"`    // nil means all products
	Status          ScanStatus     `db:"status"`
	CurrentStep     string         `db:"current_step"`
	ProgressCurrent int            `db:"progress_current"`
	ProgressTotal   int            `db:"progress_total"`
	ProductsScraped int            `db:"products_scraped"`
	ProductsFailed  int            `db:"products_failed"`
	Error           string         `db:"error"`
	StartedAt       time.Time      `db:"started_at"`
	FinishedAt      *time.Time     `db:"finished_at"`
	Logs            []ScanLogEntry `db:"-"`
}

// Progress is the poll-safe read model projected from a ScanJob.
type Progress struct {
	Status          ScanStatus     `json:"status"`
	CurrentStep     string         `json:"currentStep"`
	ProgressCurrent int            `json:"progressCurrent"`
	ProgressTotal   int            `json:"progressTotal"`
	ProductsScraped int            `json:"productsScraped"`
	ProductsFailed  int            `json:"productsFailed"`
	Logs            []ScanLogEntry `json:"logs"`
}

// ProgressView projects the job into its read model.
func (j *ScanJob) ProgressView() Progress {
	logs := j.Logs
	if logs == nil {
		logs = []ScanLogEntry{}
	}
	return Progress{
		Status:          j.Status,
		CurrentStep:     j.CurrentStep,
		ProgressCurrent: j.ProgressCurrent,
		ProgressTotal:   j.ProgressTotal,
		ProductsScraped: j.ProductsScraped,
		ProductsFailed:  j.ProductsFailed,
		Logs:            logs,
	}
}
