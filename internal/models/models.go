package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"PriceScout/internal/scraperconfig"

	"github.com/google/uuid"
)

// Competitor is an external seller whose prices are tracked for a tenant.
// Competitors are soft-disabled via Active, never hard-deleted while
// matches still reference them.
type Competitor struct {
	ID            uuid.UUID            `db:"id"`
	TenantID      string               `db:"tenant_id"`
	Name          string               `db:"name"`
	WebsiteURL    string               `db:"website_url"`
	ScraperConfig scraperconfig.Config `db:"scraper_config"`
	Active        bool                 `db:"active"`
	ScanEveryHrs  int                  `db:"scan_every_hrs"`
	LastScanAt    *time.Time           `db:"last_scan_at"`
	CreatedAt     time.Time            `db:"created_at"`
}

// Product is one of the tenant's own catalog items. Soft-deleted products
// keep their history but are excluded from every scan batch.
type Product struct {
	ID        uuid.UUID  `db:"id"`
	TenantID  string     `db:"tenant_id"`
	SKU       string     `db:"sku"`
	Name      string     `db:"name"`
	Active    bool       `db:"active"`
	DeletedAt *time.Time `db:"deleted_at"`
	OwnPrice  float64    `db:"own_price"`
	CreatedAt time.Time  `db:"created_at"`
}

// Match links one Product to one Competitor's product page. It is the
// central mutable entity of the revalidation state machine: an empty URL
// or NeedsRevalidation=true means the cached page location is not trusted
// and the next scan must rediscover it.
type Match struct {
	ID                uuid.UUID  `db:"id"`
	ProductID         uuid.UUID  `db:"product_id"`
	CompetitorID      uuid.UUID  `db:"competitor_id"`
	URL               string     `db:"url"` // empty until a page has been discovered
	NeedsRevalidation bool       `db:"needs_revalidation"`
	LastPrice         float64    `db:"last_price"`
	LastScrapedAt     *time.Time `db:"last_scraped_at"`
}

// HistoryRecord is one timestamped price observation. Append-only.
type HistoryRecord struct {
	ID           uuid.UUID `db:"id"`
	ProductID    uuid.UUID `db:"product_id"`
	CompetitorID uuid.UUID `db:"competitor_id"`
	Price        float64   `db:"price"`
	InStock      bool      `db:"in_stock"`
	OnPromo      bool      `db:"on_promo"`
	RecordedAt   time.Time `db:"recorded_at"`
}

// JSONMap stores arbitrary log metadata as a JSON column.
type JSONMap map[string]any

// Value implements driver.Valuer so JSONMap can be written to sqlite.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading JSONMap back out.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("unsupported type for JSONMap")
	}
	return json.Unmarshal(bytes, m)
}
