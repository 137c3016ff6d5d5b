package models_test

import (
	"testing"

	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/models"
	"github.com/epicdata/stockroom_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var importHeaders = []string{"Артикул", "Назва", "Відділ", "Кількість", "Ціна"}

func TestCatalogImportReconciliation(t *testing.T) {
	ctx := setupIntegrationEnv(t)
	db := config.GetDB()

	first := [][]string{
		{"11111111", "Товар один", "1", "10", "5"},
		{"22222222", "Товар два", "1", "4", "2"},
		{"33333333", "Товар три", "2", "1", "7"},
	}
	s1, err := models.ImportCatalogRows(ctx, importHeaders, first)
	if err != nil {
		t.Fatalf("ImportCatalogRows(first): %v", err)
	}
	if s1.Added != 3 || s1.Updated != 0 || s1.Deactivated != 0 || s1.TotalActive != 3 {
		t.Fatalf("first import summary = %+v", s1)
	}
	if s1.DepartmentCounts[1] != 2 || s1.DepartmentCounts[2] != 1 {
		t.Fatalf("department counts = %v", s1.DepartmentCounts)
	}

	// Leave a permanent reservation behind; reimporting a fresh stock count
	// must void it.
	err = db.Model(&models.Product{}).
		Where("article = ?", "11111111").
		Update("reserved", decimal.NewFromInt(5)).Error
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	// Second file: 11111111 loses its price cell, 22222222 disappears,
	// 44444444 is new.
	second := [][]string{
		{"11111111", "Товар один", "1", "8", "0"},
		{"33333333", "Товар три", "2", "2", "7"},
		{"44444444", "Товар чотири", "2", "6", "3"},
	}
	s2, err := models.ImportCatalogRows(ctx, importHeaders, second)
	if err != nil {
		t.Fatalf("ImportCatalogRows(second): %v", err)
	}
	if s2.Added != 1 || s2.Updated != 2 || s2.Deactivated != 1 || s2.TotalActive != 3 {
		t.Fatalf("second import summary = %+v", s2)
	}

	// Price continuity: the old price survives a zero price cell, and the
	// stock value is recomputed from it.
	p, err := models.GetProductByArticle(ctx, "11111111")
	if err != nil {
		t.Fatalf("GetProductByArticle: %v", err)
	}
	if !p.Price.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("price = %s, want carried-over 5", p.Price)
	}
	if !p.StockValue.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("stock value = %s, want 40", p.StockValue)
	}
	if !p.Reserved.IsZero() {
		t.Fatalf("reserved = %s, want reset to 0", p.Reserved)
	}

	gone, err := models.GetProductByArticle(ctx, "22222222")
	if err != nil {
		t.Fatalf("GetProductByArticle(deactivated): %v", err)
	}
	if gone.IsActive == nil || *gone.IsActive {
		t.Fatal("missing article must be deactivated, not deleted")
	}

	// Third file brings 22222222 back: reactivated, identity preserved.
	third := [][]string{
		{"11111111", "Товар один", "1", "8", "5"},
		{"22222222", "Товар два", "1", "4", "2"},
		{"33333333", "Товар три", "2", "2", "7"},
		{"44444444", "Товар чотири", "2", "6", "3"},
	}
	s3, err := models.ImportCatalogRows(ctx, importHeaders, third)
	if err != nil {
		t.Fatalf("ImportCatalogRows(third): %v", err)
	}
	if s3.Reactivated != 1 || s3.TotalActive != 4 {
		t.Fatalf("third import summary = %+v", s3)
	}
	back, err := models.GetProductByArticle(ctx, "22222222")
	if err != nil {
		t.Fatalf("GetProductByArticle(reactivated): %v", err)
	}
	if back.ID != gone.ID {
		t.Fatalf("reactivation must reuse the row: id %d != %d", back.ID, gone.ID)
	}
	if back.IsActive == nil || !*back.IsActive {
		t.Fatal("expected article to be active again")
	}

	// Reimporting the same file is a no-op apart from updates-in-place.
	s4, err := models.ImportCatalogRows(ctx, importHeaders, third)
	if err != nil {
		t.Fatalf("ImportCatalogRows(idempotence): %v", err)
	}
	if s4.Added != 0 || s4.Deactivated != 0 || s4.Reactivated != 0 || s4.TotalActive != 4 {
		t.Fatalf("reimport summary = %+v, want no membership changes", s4)
	}
}

func TestCatalogImportRejectsUnusableHeader(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	// No identity column.
	_, err := models.ImportCatalogRows(ctx, []string{"Кількість", "Ціна"}, [][]string{{"1", "2"}})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for missing identity, got %v", err)
	}

	// No quantity-like column.
	_, err = models.ImportCatalogRows(ctx, []string{"Артикул", "Назва"}, [][]string{{"11111111", "Товар"}})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error for missing quantity, got %v", err)
	}
}

func TestCatalogImportSkipsRowsWithoutArticle(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	rows := [][]string{
		{"11111111", "Товар один", "1", "10", "5"},
		{"", "Всього по відділу", "", "10", ""},
	}
	s, err := models.ImportCatalogRows(ctx, importHeaders, rows)
	if err != nil {
		t.Fatalf("ImportCatalogRows: %v", err)
	}
	if s.Added != 1 || s.SkippedRows != 1 {
		t.Fatalf("summary = %+v, want 1 added / 1 skipped", s)
	}
}

func TestSubtractCollectedFromXlsx(t *testing.T) {
	ctx := setupIntegrationEnv(t)

	seedProduct(t, "11111111", 1, 10, 5)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]interface{}{"Артикул", "Кількість"})
	_ = f.SetSheetRow(sheet, "A2", &[]interface{}{"11111111", 3})
	_ = f.SetSheetRow(sheet, "A3", &[]interface{}{"99999999", 1})
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}

	s, err := models.SubtractCollectedFromXlsx(ctx, buf)
	if err != nil {
		t.Fatalf("SubtractCollectedFromXlsx: %v", err)
	}
	if s.Processed != 1 || s.NotFound != 1 || s.Errors != 0 {
		t.Fatalf("summary = %+v, want 1 processed / 1 not found", s)
	}

	p, err := models.GetProductByArticle(ctx, "11111111")
	if err != nil {
		t.Fatalf("GetProductByArticle: %v", err)
	}
	if !p.Quantity.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("quantity = %s, want 7", p.Quantity)
	}
	if !p.StockValue.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("stock value = %s, want 35", p.StockValue)
	}
}
