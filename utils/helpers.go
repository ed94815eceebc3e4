package utils

import "strings"

// UniqueStrings returns a new slice with duplicate entries removed,
// preserving first-seen order.
func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool)
	uniqueSlice := []string{}
	for _, entry := range slice {
		if _, seen := keys[entry]; !seen {
			keys[entry] = true
			uniqueSlice = append(uniqueSlice, entry)
		}
	}
	return uniqueSlice
}

// Tokenize lowercases s and splits it into alphanumeric words. Used for
// scoring candidate product links against a product name.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return UniqueStrings(fields)
}

// TokenOverlap returns the fraction of want's tokens that also occur in
// got, between 0 and 1. An empty want scores zero.
func TokenOverlap(want, got []string) float64 {
	if len(want) == 0 {
		return 0
	}
	set := make(map[string]bool, len(got))
	for _, tok := range got {
		set[tok] = true
	}
	var shared int
	for _, tok := range want {
		if set[tok] {
			shared++
		}
	}
	return float64(shared) / float64(len(want))
}
