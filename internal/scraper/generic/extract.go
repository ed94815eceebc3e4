package generic

import (
	"net/url"
	"strings"

	"PriceScout/internal/scraper"
	"PriceScout/internal/scraperconfig"
	"PriceScout/utils"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is one product link harvested from a search results page.
type Candidate struct {
	URL  string
	Text string
}

// matchThreshold is the minimum name-token overlap for a search result
// to be accepted as the product we were looking for.
const matchThreshold = 0.5

// FirstText returns the trimmed text of the first selector in the
// fallback list that yields anything non-empty.
func FirstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// FirstAttr returns the named attribute of the first selector in the
// fallback list that carries it.
func FirstAttr(doc *goquery.Document, selectors []string, attr string) string {
	for _, sel := range selectors {
		if val, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

var notFoundMarkers = []string{
	"404",
	"not found",
	"no longer available",
	"page does not exist",
}

// LooksNotFound reports whether the document reads like an error page
// instead of a product page. Checked against the title and the top
// heading, the same places a human would look first.
func LooksNotFound(doc *goquery.Document) bool {
	title := strings.ToLower(doc.Find("title").First().Text())
	heading := strings.ToLower(doc.Find("h1").First().Text())
	for _, marker := range notFoundMarkers {
		if strings.Contains(title, marker) || strings.Contains(heading, marker) {
			return true
		}
	}
	return false
}

var outOfStockMarkers = []string{
	"out of stock",
	"sold out",
	"currently unavailable",
}

func inStock(doc *goquery.Document) bool {
	body := strings.ToLower(doc.Find("body").Text())
	for _, marker := range outOfStockMarkers {
		if strings.Contains(body, marker) {
			return false
		}
	}
	return true
}

// ExtractProduct reads one product observation out of a rendered page.
// It distinguishes a page that is no longer a product page (NotFound)
// from one where the configured selectors simply failed (Extraction).
func ExtractProduct(doc *goquery.Document, selectors scraperconfig.Selectors, parsePrice func(string) float64, pageURL string) (*scraper.ScrapedProduct, error) {
	if LooksNotFound(doc) {
		return nil, &scraper.NotFoundError{URL: pageURL}
	}

	name := FirstText(doc, selectors.ProductName)
	priceText := FirstText(doc, selectors.ProductPrice)

	if name == "" && priceText == "" {
		// Neither signal present: the page has moved or been replaced,
		// not a selector problem.
		return nil, &scraper.NotFoundError{URL: pageURL}
	}
	if name == "" {
		return nil, &scraper.ExtractionError{URL: pageURL, Field: "productName"}
	}
	if priceText == "" {
		return nil, &scraper.ExtractionError{URL: pageURL, Field: "productPrice"}
	}

	price := parsePrice(priceText)
	if !utils.ValidPrice(price) {
		return nil, &scraper.ExtractionError{URL: pageURL, Field: "productPrice"}
	}

	return &scraper.ScrapedProduct{
		URL:      pageURL,
		Name:     name,
		SKU:      FirstText(doc, selectors.ProductSku),
		Price:    price,
		Currency: utils.ParseCurrency(priceText),
		InStock:  inStock(doc),
		ImageURL: FirstAttr(doc, selectors.ProductImage, "src"),
	}, nil
}

// collectCandidates harvests same-host product links from a search
// results page. Links without text cannot be scored and are skipped.
func collectCandidates(doc *goquery.Document, searchURL string) []Candidate {
	base, err := url.Parse(searchURL)
	if err != nil {
		return nil
	}

	var out []Candidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if href == "" || text == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Host != base.Host {
			return
		}
		abs.Fragment = ""
		out = append(out, Candidate{URL: abs.String(), Text: text})
	})
	return out
}

// bestCandidate scores candidates by token overlap with the product name
// and returns the best one above the acceptance threshold.
func bestCandidate(candidates []Candidate, productName string) (string, bool) {
	want := utils.Tokenize(productName)
	bestScore := 0.0
	bestURL := ""
	for _, c := range candidates {
		score := utils.TokenOverlap(want, utils.Tokenize(c.Text))
		if score > bestScore {
			bestScore = score
			bestURL = c.URL
		}
	}
	if bestScore < matchThreshold {
		return "", false
	}
	return bestURL, true
}
