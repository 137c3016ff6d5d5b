package models

import "testing"

func TestMapColumnsTypicalHeader(t *testing.T) {
	headers := []string{"Артикул", "Назва", "Відділ", "Група", "Залишок (К-ть)", "Ціна", "Сума", "Місяці без руху"}
	idx := MapColumns(headers)

	want := map[CanonicalField]int{
		FieldArticle:           0,
		FieldName:              1,
		FieldDepartment:        2,
		FieldGroup:             3,
		FieldQuantity:          4,
		FieldPrice:             5,
		FieldStockValue:        6,
		FieldMonthsWithoutSale: 7,
	}
	for field, col := range want {
		got, ok := idx[field]
		if !ok {
			t.Errorf("field %s not mapped", field)
			continue
		}
		if got != col {
			t.Errorf("field %s mapped to column %d, want %d", field, got, col)
		}
	}
}

func TestMapColumnsEnglishHeader(t *testing.T) {
	headers := []string{"SKU", "Product", "Qty", "Price", "Total"}
	idx := MapColumns(headers)

	if col, ok := idx[FieldArticle]; !ok || col != 0 {
		t.Errorf("article = %d (%v), want column 0", col, ok)
	}
	if col, ok := idx[FieldName]; !ok || col != 1 {
		t.Errorf("name = %d (%v), want column 1", col, ok)
	}
	if col, ok := idx[FieldQuantity]; !ok || col != 2 {
		t.Errorf("quantity = %d (%v), want column 2", col, ok)
	}
	if col, ok := idx[FieldStockValue]; !ok || col != 4 {
		t.Errorf("stock_value = %d (%v), want column 4", col, ok)
	}
}

// A header claimed by one field must not be claimed again by a later field.
func TestMapColumnsNoDoubleClaim(t *testing.T) {
	headers := []string{"Товар", "Кількість"}
	idx := MapColumns(headers)

	if col, ok := idx[FieldArticle]; !ok || col != 0 {
		t.Fatalf("article should claim column 0, got %d (%v)", col, ok)
	}
	if _, ok := idx[FieldName]; ok {
		t.Error("name must not reuse the column already claimed by article")
	}

	seen := map[int]CanonicalField{}
	for field, col := range idx {
		if prev, dup := seen[col]; dup {
			t.Errorf("column %d claimed by both %s and %s", col, prev, field)
		}
		seen[col] = field
	}
}

// "Група" maps to department when no dedicated department column exists,
// following claim priority; a second group-like column then falls to group.
func TestMapColumnsGroupPriority(t *testing.T) {
	idx := MapColumns([]string{"Група", "Категорія"})
	if col, ok := idx[FieldDepartment]; !ok || col != 0 {
		t.Errorf("department = %d (%v), want column 0", col, ok)
	}
	if col, ok := idx[FieldGroup]; !ok || col != 1 {
		t.Errorf("group = %d (%v), want column 1", col, ok)
	}
}

func TestMapColumnsFuzzy(t *testing.T) {
	// One-character typo still resolves through the fuzzy pass.
	idx := MapColumns([]string{"Артикулл", "Quantityy"})
	if col, ok := idx[FieldArticle]; !ok || col != 0 {
		t.Errorf("article = %d (%v), want column 0", col, ok)
	}
	if col, ok := idx[FieldQuantity]; !ok || col != 1 {
		t.Errorf("quantity = %d (%v), want column 1", col, ok)
	}
}

func TestMapColumnsUnknownHeaders(t *testing.T) {
	idx := MapColumns([]string{"xxxxxxxxxx", "yyyyyyyyyy"})
	if len(idx) != 0 {
		t.Errorf("expected no mappings, got %v", idx)
	}
	if idx.HasIdentity() {
		t.Error("HasIdentity should be false for an empty mapping")
	}
	if idx.HasQuantityLike() {
		t.Error("HasQuantityLike should be false for an empty mapping")
	}
}

func TestHeaderIndexCellRaggedRow(t *testing.T) {
	idx := HeaderIndex{FieldArticle: 0, FieldPrice: 3}
	row := []string{"52250196", "Склянка"}
	if got := idx.Cell(row, FieldArticle); got != "52250196" {
		t.Errorf("Cell(article) = %q", got)
	}
	if got := idx.Cell(row, FieldPrice); got != "" {
		t.Errorf("Cell(price) on short row = %q, want \"\"", got)
	}
	if got := idx.Cell(row, FieldName); got != "" {
		t.Errorf("Cell(unmapped) = %q, want \"\"", got)
	}
}

func TestNormalizeHeader(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Залишок (К-ть)", "залишок к ть"},
		{"  ЦІНА,  грн.  ", "ціна грн"},
		{"Qty", "qty"},
		{"№", ""},
	}
	for _, c := range cases {
		if got := normalizeHeader(c.in); got != c.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
