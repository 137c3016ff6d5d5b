package utils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	articleWithNameRe = regexp.MustCompile(`^(\d{5,})\s*[-–.]?\s*(.+)$`)
	digitsOnlyRe      = regexp.MustCompile(`^\d+$`)
	numericJunkRe     = regexp.MustCompile(`[^0-9.\-]`)
)

// ExtractArticleAndName splits a free-text cell like "52250196 - Tumbler 250ml"
// into the article and the trailing name. Returns ("", text) when the cell
// carries no leading article and (article, "") when the cell is digits only.
func ExtractArticleAndName(value string) (article string, name string) {
	trimmed := strings.TrimSpace(value)
	// Digits-only first: the combined pattern would backtrack and hand the
	// last digit of a bare identifier to the name group.
	if digitsOnlyRe.MatchString(trimmed) {
		return trimmed, ""
	}
	if m := articleWithNameRe.FindStringSubmatch(trimmed); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", trimmed
}

// NormalizeNumeric coerces heterogeneous textual numbers ("1 234,50",
// "1 200.00 грн") into a decimal. Missing or unparseable input yields zero;
// it never fails.
func NormalizeNumeric(value string) decimal.Decimal {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = numericJunkRe.ReplaceAllString(s, "")
	d, err := ParseDecimal(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeInt is NormalizeNumeric truncated to an integer (department codes,
// months-without-movement).
func NormalizeInt(value string) int {
	return int(NormalizeNumeric(value).IntPart())
}
