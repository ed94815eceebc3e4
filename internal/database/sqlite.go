// Package database is the sqlite persistence layer for competitors,
// products, matches, scan jobs and price history. Scan logs are kept in
// a separate append-only table so entries are never rewritten.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceScout/internal/models"
	"PriceScout/internal/scraperconfig"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateSKU = errors.New("product with this SKU already exists for the tenant")
)

// Repository wraps the database connection.
type Repository struct {
	DB *sql.DB
}

// InitDB opens (or creates) the database and applies the schema. The
// pragmas ride on the DSN so every pooled connection gets them: WAL and
// a busy timeout let concurrent scan workers share the one file instead
// of erroring out with SQLITE_BUSY.
func InitDB(filepath string) (*Repository, error) {
	dsn := "file:" + filepath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	repo := &Repository{DB: db}
	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return repo, nil
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS competitors (
		"id" TEXT NOT NULL PRIMARY KEY,
		"tenant_id" TEXT NOT NULL,
		"name" TEXT NOT NULL,
		"website_url" TEXT NOT NULL,
		"scraper_config" TEXT,
		"active" INTEGER NOT NULL DEFAULT 1,
		"scan_every_hrs" INTEGER NOT NULL DEFAULT 24,
		"last_scan_at" TIMESTAMP,
		"created_at" TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS products (
		"id" TEXT NOT NULL PRIMARY KEY,
		"tenant_id" TEXT NOT NULL,
		"sku" TEXT NOT NULL,
		"name" TEXT NOT NULL,
		"active" INTEGER NOT NULL DEFAULT 1,
		"deleted_at" TIMESTAMP,
		"own_price" REAL NOT NULL DEFAULT 0,
		"created_at" TIMESTAMP NOT NULL,
		UNIQUE("tenant_id", "sku")
	);
	CREATE TABLE IF NOT EXISTS matches (
		"id" TEXT NOT NULL PRIMARY KEY,
		"product_id" TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		"competitor_id" TEXT NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
		"url" TEXT NOT NULL DEFAULT '',
		"needs_revalidation" INTEGER NOT NULL DEFAULT 0,
		"last_price" REAL NOT NULL DEFAULT 0,
		"last_scraped_at" TIMESTAMP,
		UNIQUE("product_id", "competitor_id")
	);
	CREATE TABLE IF NOT EXISTS scan_jobs (
		"id" TEXT NOT NULL PRIMARY KEY,
		"tenant_id" TEXT NOT NULL,
		"competitor_id" TEXT,
		"product_id" TEXT,
		"status" TEXT NOT NULL DEFAULT 'pending',
		"current_step" TEXT NOT NULL DEFAULT '',
		"progress_current" INTEGER NOT NULL DEFAULT 0,
		"progress_total" INTEGER NOT NULL DEFAULT 0,
		"products_scraped" INTEGER NOT NULL DEFAULT 0,
		"products_failed" INTEGER NOT NULL DEFAULT 0,
		"error" TEXT NOT NULL DEFAULT '',
		"cancel_requested" INTEGER NOT NULL DEFAULT 0,
		"started_at" TIMESTAMP NOT NULL,
		"finished_at" TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS scan_logs (
		"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"job_id" TEXT NOT NULL REFERENCES scan_jobs(id) ON DELETE CASCADE,
		"ts" TIMESTAMP NOT NULL,
		"type" TEXT NOT NULL,
		"message" TEXT NOT NULL,
		"metadata" TEXT
	);
	CREATE TABLE IF NOT EXISTS history (
		"id" TEXT NOT NULL PRIMARY KEY,
		"product_id" TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		"competitor_id" TEXT NOT NULL REFERENCES competitors(id) ON DELETE CASCADE,
		"price" REAL NOT NULL,
		"in_stock" INTEGER NOT NULL DEFAULT 1,
		"on_promo" INTEGER NOT NULL DEFAULT 0,
		"recorded_at" TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_matches_competitor ON matches(competitor_id);
	CREATE INDEX IF NOT EXISTS idx_history_pair ON history(product_id, competitor_id, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_scan_logs_job ON scan_logs(job_id, id);
	`
	_, err := r.DB.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (r *Repository) Close() error {
	return r.DB.Close()
}

// ListTenants returns every tenant that owns at least one competitor or
// product. Used by the daily snapshot sweep.
func (r *Repository) ListTenants() ([]string, error) {
	rows, err := r.DB.Query(`
		SELECT tenant_id FROM competitors
		UNION
		SELECT tenant_id FROM products`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// --- Competitors ---

// CreateCompetitor inserts a competitor, assigning an ID if missing.
func (r *Repository) CreateCompetitor(c *models.Competitor) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cfgJSON, err := c.ScraperConfig.Marshal()
	if err != nil {
		return fmt.Errorf("serializing scraper config: %w", err)
	}
	_, err = r.DB.Exec(`
		INSERT INTO competitors (id, tenant_id, name, website_url, scraper_config, active, scan_every_hrs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.TenantID, c.Name, c.WebsiteURL, string(cfgJSON), c.Active, c.ScanEveryHrs, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting competitor: %w", err)
	}
	return nil
}

func scanCompetitor(row interface{ Scan(...any) error }) (*models.Competitor, error) {
	var c models.Competitor
	var id, cfgJSON string
	var lastScan sql.NullTime
	err := row.Scan(&id, &c.TenantID, &c.Name, &c.WebsiteURL, &cfgJSON, &c.Active, &c.ScanEveryHrs, &lastScan, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad competitor id %q: %w", id, err)
	}
	if lastScan.Valid {
		t := lastScan.Time
		c.LastScanAt = &t
	}
	// Stored configs are re-validated at scan start; reading only needs
	// the shape back, so an invalid stored config still loads and fails
	// closed later.
	if cfgJSON != "" {
		_ = json.Unmarshal([]byte(cfgJSON), &c.ScraperConfig)
	}
	return &c, nil
}

const competitorCols = `id, tenant_id, name, website_url, scraper_config, active, scan_every_hrs, last_scan_at, created_at`

// GetCompetitor fetches one competitor by ID.
func (r *Repository) GetCompetitor(id uuid.UUID) (*models.Competitor, error) {
	row := r.DB.QueryRow(`SELECT `+competitorCols+` FROM competitors WHERE id = ?`, id.String())
	c, err := scanCompetitor(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// GetActiveCompetitors lists a tenant's active competitors.
func (r *Repository) GetActiveCompetitors(tenantID string) ([]models.Competitor, error) {
	rows, err := r.DB.Query(`SELECT `+competitorCols+` FROM competitors WHERE tenant_id = ? AND active = 1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing competitors: %w", err)
	}
	defer rows.Close()

	var out []models.Competitor
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateCompetitorConfig replaces the stored scraper configuration.
func (r *Repository) UpdateCompetitorConfig(id uuid.UUID, cfg scraperconfig.Config) error {
	cfgJSON, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("serializing scraper config: %w", err)
	}
	res, err := r.DB.Exec(`UPDATE competitors SET scraper_config = ? WHERE id = ?`, string(cfgJSON), id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// TouchCompetitorScan records when the competitor was last scanned.
func (r *Repository) TouchCompetitorScan(id uuid.UUID, at time.Time) error {
	_, err := r.DB.Exec(`UPDATE competitors SET last_scan_at = ? WHERE id = ?`, at, id.String())
	return err
}

// --- Products ---

// CreateProduct inserts a product, enforcing the per-tenant SKU
// uniqueness.
func (r *Repository) CreateProduct(p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.Exec(`
		INSERT INTO products (id, tenant_id, sku, name, active, own_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.TenantID, p.SKU, p.Name, p.Active, p.OwnPrice, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

// GetProduct fetches one product by ID.
func (r *Repository) GetProduct(id uuid.UUID) (*models.Product, error) {
	row := r.DB.QueryRow(`
		SELECT id, tenant_id, sku, name, active, deleted_at, own_price, created_at
		FROM products WHERE id = ?`, id.String())

	var p models.Product
	var idStr string
	var deleted sql.NullTime
	err := row.Scan(&idStr, &p.TenantID, &p.SKU, &p.Name, &p.Active, &deleted, &p.OwnPrice, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ID, _ = uuid.Parse(idStr)
	if deleted.Valid {
		t := deleted.Time
		p.DeletedAt = &t
	}
	return &p, nil
}

// SoftDeleteProduct stamps the product as deleted. It stays in the
// table so history rows keep their parent; it just never enters another
// scan batch.
func (r *Repository) SoftDeleteProduct(id uuid.UUID, at time.Time) error {
	res, err := r.DB.Exec(`UPDATE products SET deleted_at = ?, active = 0 WHERE id = ?`, at, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint violations in the message;
	// there is no exported error type to match on.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
