package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlens/statement-auditor/internal/extractor"
)

// Date patterns shared by the statement formats.
var (
	// "D MMM YYYY" at the start of a token or line, e.g. "15 Sep 2025".
	datePatternLeading = regexp.MustCompile(`^(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})`)
	// "D MMM YYYY" anywhere.
	datePatternAny = regexp.MustCompile(`(\d{1,2}\s+[A-Za-z]{3}\s+\d{4})`)
	// Bare amount token: digits with up to two decimals, commas removed
	// before matching.
	amountTokenPattern = regexp.MustCompile(`^\d+\.?\d{1,2}$`)
)

var monthAbbrevs = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// monthNumber resolves a 3-letter month abbreviation, case-insensitively.
func monthNumber(abbr string) (time.Month, bool) {
	if len(abbr) != 3 {
		return 0, false
	}
	normalized := strings.ToUpper(abbr[:1]) + strings.ToLower(abbr[1:])
	m, ok := monthAbbrevs[normalized]
	return m, ok
}

// parseAmount converts a token like "1,234.56" or "€1,234.56" to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// lineText joins a line's words with single spaces, left to right.
func lineText(words []extractor.Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// sliceContext returns text[start:end] with both bounds clamped, mirroring
// the windowed context checks used around pattern matches.
func sliceContext(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start >= end {
		return ""
	}
	return text[start:end]
}
