package database

import (
	"database/sql"
	"fmt"
	"time"

	"PriceScout/internal/models"

	"github.com/google/uuid"
)

const matchCols = `m.id, m.product_id, m.competitor_id, m.url, m.needs_revalidation, m.last_price, m.last_scraped_at`

func scanMatch(row interface{ Scan(...any) error }) (*models.Match, error) {
	var m models.Match
	var id, productID, competitorID string
	var lastScraped sql.NullTime
	err := row.Scan(&id, &productID, &competitorID, &m.URL, &m.NeedsRevalidation, &m.LastPrice, &lastScraped)
	if err != nil {
		return nil, err
	}
	m.ID, _ = uuid.Parse(id)
	m.ProductID, _ = uuid.Parse(productID)
	m.CompetitorID, _ = uuid.Parse(competitorID)
	if lastScraped.Valid {
		t := lastScraped.Time
		m.LastScrapedAt = &t
	}
	return &m, nil
}

// CreateMatch inserts a new product-competitor match.
func (r *Repository) CreateMatch(m *models.Match) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.DB.Exec(`
		INSERT INTO matches (id, product_id, competitor_id, url, needs_revalidation, last_price, last_scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.ProductID.String(), m.CompetitorID.String(),
		m.URL, m.NeedsRevalidation, m.LastPrice, m.LastScrapedAt)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

// GetMatch fetches one match by ID.
func (r *Repository) GetMatch(id uuid.UUID) (*models.Match, error) {
	row := r.DB.QueryRow(`SELECT `+matchCols+` FROM matches m WHERE m.id = ?`, id.String())
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

// UpdateMatch writes the match row back. Scans use simple last-write-wins
// updates; at most one scan per competitor is an operational convention,
// not enforced here.
func (r *Repository) UpdateMatch(m *models.Match) error {
	res, err := r.DB.Exec(`
		UPDATE matches SET url = ?, needs_revalidation = ?, last_price = ?, last_scraped_at = ?
		WHERE id = ?`,
		m.URL, m.NeedsRevalidation, m.LastPrice, m.LastScrapedAt, m.ID.String())
	if err != nil {
		return fmt.Errorf("updating match: %w", err)
	}
	return requireRow(res)
}

// GetEligibleMatches returns a competitor's matches whose products are
// still part of the catalog: not soft-deleted and active. An optional
// product ID narrows the batch to a single product.
func (r *Repository) GetEligibleMatches(competitorID uuid.UUID, productID *uuid.UUID) ([]models.Match, error) {
	query := `
		SELECT ` + matchCols + `
		FROM matches m
		JOIN products p ON p.id = m.product_id
		WHERE m.competitor_id = ? AND p.deleted_at IS NULL AND p.active = 1`
	args := []any{competitorID.String()}
	if productID != nil {
		query += ` AND m.product_id = ?`
		args = append(args, productID.String())
	}
	query += ` ORDER BY m.id`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing eligible matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetActiveMatchesForTenant returns matches of a tenant whose product
// and competitor are both alive and that have a usable last price. Used
// by the daily snapshot sweep.
func (r *Repository) GetActiveMatchesForTenant(tenantID string) ([]models.Match, error) {
	rows, err := r.DB.Query(`
		SELECT `+matchCols+`
		FROM matches m
		JOIN products p ON p.id = m.product_id
		JOIN competitors c ON c.id = m.competitor_id
		WHERE p.tenant_id = ? AND p.deleted_at IS NULL AND p.active = 1
		  AND c.active = 1 AND m.last_price > 0
		ORDER BY m.id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing tenant matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// FlagMatchForRevalidation is the operator override: the match is
// treated as stale on the next scan regardless of its cached URL.
func (r *Repository) FlagMatchForRevalidation(id uuid.UUID) error {
	res, err := r.DB.Exec(`UPDATE matches SET needs_revalidation = 1 WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- History ---

// InsertHistory appends one price observation. History rows are never
// updated or deleted.
func (r *Repository) InsertHistory(h *models.HistoryRecord) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.RecordedAt.IsZero() {
		h.RecordedAt = time.Now().UTC()
	}
	_, err := r.DB.Exec(`
		INSERT INTO history (id, product_id, competitor_id, price, in_stock, on_promo, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID.String(), h.ProductID.String(), h.CompetitorID.String(),
		h.Price, h.InStock, h.OnPromo, h.RecordedAt)
	if err != nil {
		return fmt.Errorf("inserting history record: %w", err)
	}
	return nil
}

// GetHistory returns the price series for one product-competitor pair,
// newest first.
func (r *Repository) GetHistory(productID, competitorID uuid.UUID) ([]models.HistoryRecord, error) {
	rows, err := r.DB.Query(`
		SELECT id, product_id, competitor_id, price, in_stock, on_promo, recorded_at
		FROM history
		WHERE product_id = ? AND competitor_id = ?
		ORDER BY recorded_at DESC`, productID.String(), competitorID.String())
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var h models.HistoryRecord
		var id, pid, cid string
		if err := rows.Scan(&id, &pid, &cid, &h.Price, &h.InStock, &h.OnPromo, &h.RecordedAt); err != nil {
			return nil, err
		}
		h.ID, _ = uuid.Parse(id)
		h.ProductID, _ = uuid.Parse(pid)
		h.CompetitorID, _ = uuid.Parse(cid)
		out = append(out, h)
	}
	return out, rows.Err()
}
