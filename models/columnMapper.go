package models

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// CanonicalField is one of the fixed internal catalog attributes every
// imported spreadsheet is mapped onto.
type CanonicalField string

const (
	FieldArticle           CanonicalField = "article"
	FieldName              CanonicalField = "name"
	FieldDepartment        CanonicalField = "department"
	FieldGroup             CanonicalField = "group"
	FieldQuantity          CanonicalField = "quantity"
	FieldPrice             CanonicalField = "price"
	FieldStockValue        CanonicalField = "stock_value"
	FieldMonthsWithoutSale CanonicalField = "months_without_sale"
)

// mappingOrder fixes claim priority: an ambiguous header goes to the
// earlier field (article before name, quantity before price before value).
var mappingOrder = []CanonicalField{
	FieldArticle, FieldName, FieldDepartment, FieldGroup,
	FieldQuantity, FieldPrice, FieldStockValue, FieldMonthsWithoutSale,
}

var columnSynonyms = map[CanonicalField][]string{
	FieldArticle: {
		"артикул", "код", "code", "articul", "id", "sku", "item code", "товар",
	},
	FieldName: {
		"назва", "name", "title", "найменування", "product", "description", "опис", "номенклатура", "товар",
	},
	FieldDepartment: {
		"відділ", "department", "dep", "секція", "група", "group", "div", "підрозділ",
	},
	FieldGroup: {
		"група", "group", "category", "категорія", "клас", "підгрупа",
	},
	FieldQuantity: {
		"кількість", "к ть", "count", "qty", "quantity", "залишок", "amount",
		"залишок кількість", "залишок к ть", "кть", "штук", "шт",
	},
	FieldPrice: {
		"ціна", "price", "cost", "вартість", "price unit", "ціна за од",
	},
	FieldStockValue: {
		"сума", "sum", "total", "залишок сума", "сума залишку", "вартість залишку",
	},
	FieldMonthsWithoutSale: {
		"місяці", "місяців", "м", "без руху", "months", "no sale", "неліквід", "період",
	},
}

// fuzzyThreshold is the minimum character-similarity ratio accepted by the
// third mapping pass.
const fuzzyThreshold = 0.78

// HeaderIndex maps canonical fields to column positions in the header row.
// It is built once per import; all row access goes through it.
type HeaderIndex map[CanonicalField]int

// Has reports whether the field was mapped to a column.
func (hi HeaderIndex) Has(field CanonicalField) bool {
	_, ok := hi[field]
	return ok
}

// Cell returns the row's value for a mapped field, "" when the field is
// unmapped or the row is ragged (excelize trims trailing empty cells).
func (hi HeaderIndex) Cell(row []string, field CanonicalField) string {
	col, ok := hi[field]
	if !ok || col >= len(row) {
		return ""
	}
	return row[col]
}

// HasIdentity reports whether at least one identity column was mapped.
func (hi HeaderIndex) HasIdentity() bool {
	return hi.Has(FieldArticle) || hi.Has(FieldName)
}

// HasQuantityLike reports whether at least one quantity-carrying column was
// mapped; without one the import cannot reconstruct stock levels.
func (hi HeaderIndex) HasQuantityLike() bool {
	return hi.Has(FieldQuantity) || hi.Has(FieldStockValue)
}

// MapColumns infers the canonical-field -> column mapping from a raw header
// row. Each header is consumed at most once; fields it cannot place are
// simply absent from the result. It never fails.
func MapColumns(headers []string) HeaderIndex {
	index := HeaderIndex{}
	used := make(map[int]bool, len(headers))

	for _, field := range mappingOrder {
		col := findBestMatch(headers, used, field)
		if col >= 0 {
			index[field] = col
			used[col] = true
		}
	}
	return index
}

// findBestMatch runs the three escalating passes for one field over the
// headers not yet claimed. Returns the column position or -1.
func findBestMatch(headers []string, used map[int]bool, field CanonicalField) int {
	synonyms := columnSynonyms[field]

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	// 1. Exact match.
	for i, norm := range normalized {
		if used[i] {
			continue
		}
		for _, syn := range synonyms {
			if norm == syn {
				return i
			}
		}
	}

	// 2. Whole-word containment, e.g. "Залишок (к-ть)" contains "к ть".
	for i, norm := range normalized {
		if used[i] {
			continue
		}
		for _, syn := range synonyms {
			if containsTokens(norm, syn) {
				return i
			}
		}
	}

	// 3. Fuzzy match: best similarity ratio at or above the threshold.
	best := -1
	bestScore := 0.0
	for i, norm := range normalized {
		if used[i] {
			continue
		}
		for _, syn := range synonyms {
			score := similarityRatio(norm, syn)
			if score > bestScore && score >= fuzzyThreshold {
				bestScore = score
				best = i
			}
		}
	}
	return best
}

// normalizeHeader lower-cases the header and collapses punctuation runs to
// single spaces so "Залишок (К-ть)" and "залишок к ть" compare equal.
func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	// non-ASCII letters (Cyrillic headers) stay as-is
	return r > 127 && !strings.ContainsRune("«»–—№", r)
}

// containsTokens reports whether the synonym's tokens appear as a contiguous
// token run inside the normalized header.
func containsTokens(normalizedHeader, synonym string) bool {
	headerTokens := strings.Fields(normalizedHeader)
	synTokens := strings.Fields(synonym)
	if len(synTokens) == 0 || len(synTokens) > len(headerTokens) {
		return false
	}
	for i := 0; i+len(synTokens) <= len(headerTokens); i++ {
		match := true
		for j, st := range synTokens {
			if headerTokens[i+j] != st {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// similarityRatio converts Levenshtein distance into a 0..1 similarity.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
