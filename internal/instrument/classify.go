// Package instrument classifies tickers and derives offline facts about them:
// scheme codes, exchange variants, synthetic default prices and sectors.
// Everything here is pure and needs no network access.
package instrument

import (
	"regexp"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
)

// ExchangeSuffixes are the NSE/BSE listing suffixes stripped before classification.
var ExchangeSuffixes = []string{".NSE", ".BSE", ".NS", ".BO"}

var (
	mfCodePattern    = regexp.MustCompile(`(?i)^MF_(\d+)`)
	allDigitsPattern = regexp.MustCompile(`^\d+$`)
	embeddedCode     = regexp.MustCompile(`\d{5,6}`)
	fundNamePatterns = regexp.MustCompile(`(?i)(^MF_\d+|_MF$|FUND$|GROWTH$|DIVIDEND$)`)
)

// Normalize upper-cases a ticker and strips a known exchange suffix.
func Normalize(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	for _, suffix := range ExchangeSuffixes {
		if strings.HasSuffix(t, suffix) && len(t) > len(suffix) {
			return t[:len(t)-len(suffix)]
		}
	}
	return t
}

// Classify decides whether a ticker is a mutual fund scheme or an equity.
// It is total: every string, including the empty one, gets a kind.
func Classify(ticker string) models.InstrumentKind {
	stripped := strings.TrimPrefix(Normalize(ticker), "MF_")
	if allDigitsPattern.MatchString(stripped) {
		return models.KindMutualFund
	}
	if fundNamePatterns.MatchString(strings.TrimSpace(ticker)) {
		return models.KindMutualFund
	}
	return models.KindEquity
}

// IsMutualFund is shorthand for Classify(ticker) == KindMutualFund.
func IsMutualFund(ticker string) bool {
	return Classify(ticker) == models.KindMutualFund
}

// SchemeCode extracts a fund scheme code from a ticker. It tries an MF_
// prefix, then a purely numeric ticker, then the first embedded 5-6 digit run.
func SchemeCode(ticker string) (string, bool) {
	t := strings.TrimSpace(ticker)
	if m := mfCodePattern.FindStringSubmatch(t); m != nil {
		return m[1], true
	}
	if allDigitsPattern.MatchString(t) {
		return t, true
	}
	if m := embeddedCode.FindString(t); m != "" {
		return m, true
	}
	return "", false
}

// ExchangeVariants lists the provider tickers to try for an equity, one per
// suffix, in order. A ticker that already carries one of the suffixes is
// tried with that suffix first.
func ExchangeVariants(ticker string, suffixes []string) []string {
	base := Normalize(ticker)
	if base == "" {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(ticker))

	variants := make([]string, 0, len(suffixes))
	seen := make(map[string]bool, len(suffixes))
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}
	for _, s := range suffixes {
		if strings.HasSuffix(upper, strings.ToUpper(s)) {
			add(upper)
		}
	}
	for _, s := range suffixes {
		add(base + s)
	}
	return variants
}
