package utils

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// priceRegex finds the first valid price number in free text. It handles
// integers (1,079), decimals (119.00), and thousands separators.
var priceRegex = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)

// ParsePrice extracts the first number from a price string and converts
// it to a float64. It is robust against noisy strings like
// "List Price: $ 219.41 incl. VAT" and returns 0.0 when no number can be
// found.
func ParsePrice(priceStr string) float64 {
	if priceStr == "" {
		return 0.0
	}

	found := priceRegex.FindString(priceStr)
	if found == "" {
		return 0.0
	}

	cleaned := strings.ReplaceAll(found, ",", "")

	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		log.Printf("ParsePrice: failed to parse '%s' from original string '%s': %v", cleaned, priceStr, err)
		return 0.0
	}

	return price
}

// ValidPrice reports whether p is acceptable for a history record or a
// match update: a finite number strictly greater than zero.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 1) && !math.IsNaN(p)
}

var currencyCodeRegex = regexp.MustCompile(`\b[A-Z]{3}\b`)

var currencySymbols = map[string]string{
	"€": "EUR",
	"£": "GBP",
	"₹": "INR",
	"$": "USD",
}

// ParseCurrency guesses the ISO currency code from a price string. It
// checks explicit three-letter codes first, then known symbols, and falls
// back to USD.
func ParseCurrency(priceStr string) string {
	if code := currencyCodeRegex.FindString(priceStr); code != "" {
		return code
	}
	// R$ must win over the bare dollar sign.
	if strings.Contains(priceStr, "R$") {
		return "BRL"
	}
	for sym, code := range currencySymbols {
		if strings.Contains(priceStr, sym) {
			return code
		}
	}
	return "USD"
}
