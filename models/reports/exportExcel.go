package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/epicdata/stockroom_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// ExportFilename builds the conventional archive filename:
// {department}_{operator}_{dd-mm-yyyy}_{hh-mm}.xlsx, surplus prefixed.
func ExportFilename(department int, operatorId int64, partition models.ListPartition, createdAt time.Time) string {
	prefix := ""
	if partition == models.PartitionSurplus {
		prefix = "лишки_"
	}
	return fmt.Sprintf("%s%d_%d_%s.xlsx", prefix, department, operatorId, createdAt.Format("02-01-2006_15-04"))
}

// WriteListPartition renders one partition of a finalized list as an .xlsx
// workbook: article/quantity/price/total columns plus a totals footer.
func WriteListPartition(w io.Writer, items []models.SavedListItem) error {
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Артикул", "Кількість", "Ціна", "Сума"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	total := decimal.Zero
	for i, item := range items {
		rowNo := i + 2
		f.SetCellValue(sheetName, "A"+fmt.Sprint(rowNo), item.Article)
		f.SetCellValue(sheetName, "B"+fmt.Sprint(rowNo), item.Quantity.InexactFloat64())
		f.SetCellValue(sheetName, "C"+fmt.Sprint(rowNo), item.UnitPrice.InexactFloat64())
		f.SetCellValue(sheetName, "D"+fmt.Sprint(rowNo), item.LineTotal.InexactFloat64())
		total = total.Add(item.LineTotal)
	}

	// Totals footer after one blank row.
	footerRow := len(items) + 3
	f.SetCellValue(sheetName, "A"+fmt.Sprint(footerRow), "К-ть артикулів:")
	f.SetCellValue(sheetName, "B"+fmt.Sprint(footerRow), len(items))
	f.SetCellValue(sheetName, "A"+fmt.Sprint(footerRow+1), "Зібрано на суму:")
	f.SetCellValue(sheetName, "D"+fmt.Sprint(footerRow+1), total.StringFixed(2))

	return f.Write(w)
}
