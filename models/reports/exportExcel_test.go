package reports

import (
	"bytes"
	"testing"
	"time"

	"github.com/epicdata/stockroom_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestExportFilename(t *testing.T) {
	createdAt := time.Date(2026, 3, 7, 14, 5, 0, 0, time.UTC)

	got := ExportFilename(7, 42, models.PartitionFulfilled, createdAt)
	if got != "7_42_07-03-2026_14-05.xlsx" {
		t.Errorf("fulfilled filename = %q", got)
	}

	got = ExportFilename(7, 42, models.PartitionSurplus, createdAt)
	if got != "лишки_7_42_07-03-2026_14-05.xlsx" {
		t.Errorf("surplus filename = %q", got)
	}
}

func TestWriteListPartition(t *testing.T) {
	items := []models.SavedListItem{
		{
			Article:   "52250196",
			Partition: models.PartitionFulfilled,
			Quantity:  decimal.NewFromInt(3),
			UnitPrice: decimal.NewFromFloat(4.5),
			LineTotal: decimal.NewFromFloat(13.5),
		},
		{
			Article:   "52250197",
			Partition: models.PartitionFulfilled,
			Quantity:  decimal.NewFromInt(1),
			UnitPrice: decimal.NewFromInt(10),
			LineTotal: decimal.NewFromInt(10),
		},
	}

	var buf bytes.Buffer
	if err := WriteListPartition(&buf, items); err != nil {
		t.Fatalf("WriteListPartition: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopening workbook: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue(sheetName, "A2"); v != "52250196" {
		t.Errorf("A2 = %q, want first article", v)
	}
	if v, _ := f.GetCellValue(sheetName, "B2"); v != "3" {
		t.Errorf("B2 = %q, want quantity 3", v)
	}
	// Footer after one blank row: item count then grand total.
	if v, _ := f.GetCellValue(sheetName, "B5"); v != "2" {
		t.Errorf("B5 = %q, want item count 2", v)
	}
	if v, _ := f.GetCellValue(sheetName, "D6"); v != "23.50" {
		t.Errorf("D6 = %q, want total 23.50", v)
	}
}
