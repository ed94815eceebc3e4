package scraper

import (
	"errors"
	"fmt"

	"PriceScout/internal/scraperconfig"
)

// FailureKind tags per-product failures in a ScraperResult.
type FailureKind string

const (
	KindNavigation FailureKind = "navigation"
	KindExtraction FailureKind = "extraction"
	KindNotFound   FailureKind = "not_found"
)

// SessionError means the underlying automation session could not be
// created or died. It is one of the two error classes allowed to
// terminate a scan early (the other is config validation).
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("scraper session failure: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// NavigationError is a recoverable per-product page load or timeout
// failure.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed for %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ExtractionError means every selector fallback yielded empty text for a
// required field. Recoverable, never aborts the batch.
type ExtractionError struct {
	URL   string
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: no selector matched %s", e.URL, e.Field)
}

// NotFoundError means a cached product URL no longer resolves to a valid
// product page. The orchestrator reacts by flagging the match for
// rediscovery.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product page not found: %s", e.URL)
}

// NotSupportedError is returned by the resolver for configuration types
// that have no implementation yet. It is explicit so an unsupported type
// never silently falls back to the browser scraper.
type NotSupportedError struct {
	Type scraperconfig.Type
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("scraper type %q is not yet supported", string(e.Type))
}

// KindOf classifies a per-product error for the result's error list.
func KindOf(err error) FailureKind {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return KindNotFound
	}
	var ex *ExtractionError
	if errors.As(err, &ex) {
		return KindExtraction
	}
	return KindNavigation
}
