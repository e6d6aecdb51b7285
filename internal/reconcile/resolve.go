package reconcile

import (
	"sort"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
)

// option is one candidate in a field's priority chain
type option[T any] func() (T, bool)

// firstSome returns the value of the first option that is present, else fallback
func firstSome[T any](fallback T, chain ...option[T]) T {
	for _, opt := range chain {
		if v, ok := opt(); ok {
			return v
		}
	}
	return fallback
}

// str is present when non-empty
func str(s string) option[string] {
	return func() (string, bool) { return s, s != "" }
}

// cusip is present when known; the "—" sentinel never short-circuits
func cusip(c contracts.CUSIP) option[contracts.CUSIP] {
	return c.Get
}

// cusipFrom reads a map entry lazily
func cusipFrom(m map[string]contracts.CUSIP, ticker string) option[contracts.CUSIP] {
	return func() (contracts.CUSIP, bool) {
		c, ok := m[ticker]
		return c, ok && c.Known()
	}
}

// positive is present when v > 0
func positive(v float64) option[float64] {
	return func() (float64, bool) { return v, v > 0 }
}

// always is present unconditionally (a cached or curated value wins even at 0)
func always[T any](v T, present bool) option[T] {
	return func() (T, bool) { return v, present }
}

// topCountry is the country with the largest weight; ties keep upstream order
func topCountry(weights []contracts.CountryWeight) (string, bool) {
	if len(weights) == 0 {
		return "", false
	}
	sorted := append([]contracts.CountryWeight(nil), weights...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].WeightPercentage > sorted[j].WeightPercentage
	})
	for _, w := range sorted {
		if w.Country != "" {
			return w.Country, true
		}
	}
	return "", false
}
