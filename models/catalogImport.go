package models

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ImportSummary reports what one catalog reconciliation did.
type ImportSummary struct {
	Added            int         `json:"added"`
	Updated          int         `json:"updated"`
	Deactivated      int         `json:"deactivated"`
	Reactivated      int         `json:"reactivated"`
	TotalActive      int         `json:"total_active"`
	TotalInFile      int         `json:"total_in_file"`
	SkippedRows      int         `json:"skipped_rows"`
	DepartmentCounts map[int]int `json:"department_counts"`
}

// SubtractSummary reports a collected-stock subtraction run.
type SubtractSummary struct {
	Processed int `json:"processed"`
	NotFound  int `json:"not_found"`
	Errors    int `json:"errors"`
}

// rowSnapshot is one spreadsheet row resolved into canonical catalog fields.
type rowSnapshot struct {
	Article           string
	Name              string
	Department        int
	GroupLabel        string
	Quantity          decimal.Decimal
	Price             decimal.Decimal
	StockValue        decimal.Decimal
	MonthsWithoutSale *int
}

// buildRowSnapshot resolves one raw row through the header index. Returns
// false when no article can be recovered; such rows are skipped, not fatal.
func buildRowSnapshot(index HeaderIndex, row []string) (*rowSnapshot, bool) {
	var article, name string

	// Prefer the explicit article column; it may still embed a name
	// ("12345 - Widget") when the file merges both into one cell.
	if index.Has(FieldArticle) {
		a, n := utils.ExtractArticleAndName(index.Cell(row, FieldArticle))
		article = a
		if n != "" && !index.Has(FieldName) {
			name = n
		}
	}
	if article == "" && index.Has(FieldName) {
		val := index.Cell(row, FieldName)
		a, n := utils.ExtractArticleAndName(val)
		article = a
		if n != "" {
			name = n
		} else if name == "" {
			name = strings.TrimSpace(val)
		}
	} else if name == "" && index.Has(FieldName) {
		name = strings.TrimSpace(index.Cell(row, FieldName))
	}
	if article == "" {
		return nil, false
	}

	snap := &rowSnapshot{
		Article:    article,
		Name:       name,
		Department: utils.NormalizeInt(index.Cell(row, FieldDepartment)),
		GroupLabel: strings.TrimSpace(index.Cell(row, FieldGroup)),
	}
	if snap.Name == "" {
		if snap.GroupLabel != "" {
			snap.Name = snap.GroupLabel
		} else {
			snap.Name = "Товар " + article
		}
	}

	snap.Quantity = utils.NormalizeNumeric(index.Cell(row, FieldQuantity))
	snap.Price = utils.NormalizeNumeric(index.Cell(row, FieldPrice))
	snap.StockValue = utils.NormalizeNumeric(index.Cell(row, FieldStockValue))
	snap.Quantity, snap.Price, snap.StockValue = deriveNumbers(snap.Quantity, snap.Price, snap.StockValue)

	if index.Has(FieldMonthsWithoutSale) {
		months := utils.NormalizeInt(index.Cell(row, FieldMonthsWithoutSale))
		snap.MonthsWithoutSale = &months
	}
	return snap, true
}

// deriveNumbers cross-derives the missing one of quantity/price/stock-value
// when the file supplies only two. Derivation priority is fixed: price from
// value/quantity, then value from price*quantity, then quantity from
// value/price.
func deriveNumbers(qty, price, stockValue decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	if price.IsZero() && qty.IsPositive() && stockValue.IsPositive() {
		price = stockValue.Div(qty)
	}
	if stockValue.IsZero() && price.IsPositive() && qty.IsPositive() {
		stockValue = price.Mul(qty)
	}
	if qty.IsZero() && stockValue.IsPositive() && price.IsPositive() {
		qty = stockValue.Div(price)
	}
	return qty, price, stockValue
}

// catalogDiff computes the three explicit merge sets from the article sets.
func catalogDiff(fileArticles map[string]*rowSnapshot, dbArticles map[string]*Product) (toAdd, toUpdate, toDeactivate []string) {
	for article := range fileArticles {
		if _, ok := dbArticles[article]; ok {
			toUpdate = append(toUpdate, article)
		} else {
			toAdd = append(toAdd, article)
		}
	}
	for article := range dbArticles {
		if _, ok := fileArticles[article]; !ok {
			toDeactivate = append(toDeactivate, article)
		}
	}
	return toAdd, toUpdate, toDeactivate
}

// readSheet opens the workbook and returns the first sheet's rows.
func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, utils.NewValidationError("file", fmt.Sprintf("cannot open workbook: %v", err))
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 1 {
		return nil, utils.NewValidationError("file", "workbook has no header row")
	}
	return rows, nil
}

// ImportCatalogFromXlsx runs the full-replace catalog reconciliation from an
// .xlsx stream. Serialized via the import lock; the merge itself is one
// transaction so readers never observe a half-migrated catalog.
func ImportCatalogFromXlsx(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}
	return ImportCatalogRows(ctx, rows[0], rows[1:])
}

// ImportCatalogRows reconciles parsed rows against the catalog.
func ImportCatalogRows(ctx context.Context, headers []string, rows [][]string) (*ImportSummary, error) {
	logger := config.GetLogger()

	index := MapColumns(headers)
	if !index.HasIdentity() {
		return nil, utils.NewValidationError("columns", "no identifier or name column recognized")
	}
	if !index.HasQuantityLike() {
		return nil, utils.NewValidationError("columns", "no quantity or stock-value column recognized")
	}
	logger.WithField("mapping", index).Info("catalog import: columns mapped")

	fileArticles := make(map[string]*rowSnapshot, len(rows))
	skipped := 0
	for _, row := range rows {
		snap, ok := buildRowSnapshot(index, row)
		if !ok {
			skipped++
			continue
		}
		fileArticles[snap.Article] = snap
	}

	lock, err := utils.ImportLock(ctx, "catalog", "models", "ImportCatalogRows")
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)

	summary := &ImportSummary{
		TotalInFile:      len(fileArticles),
		SkippedRows:      skipped,
		DepartmentCounts: map[int]int{},
	}
	for _, snap := range fileArticles {
		summary.DepartmentCounts[snap.Department]++
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var existing []Product
	if err := tx.Find(&existing).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	dbArticles := make(map[string]*Product, len(existing))
	for i := range existing {
		dbArticles[existing[i].Article] = &existing[i]
	}

	toAdd, toUpdate, toDeactivate := catalogDiff(fileArticles, dbArticles)

	// 1. Soft delete: present in catalog, absent from the file.
	if len(toDeactivate) > 0 {
		res := tx.Model(&Product{}).
			Where("article IN ? AND is_active = ?", toDeactivate, true).
			Update("is_active", false)
		if res.Error != nil {
			tx.Rollback()
			return nil, res.Error
		}
		summary.Deactivated = int(res.RowsAffected)
	}

	// 2. Update recurring articles, applying the continuity rules.
	for _, article := range toUpdate {
		snap := fileArticles[article]
		old := dbArticles[article]

		if old.IsActive == nil || !*old.IsActive {
			summary.Reactivated++
		}

		price := snap.Price
		stockValue := snap.StockValue
		// Keep the old price when the file carries none, and recompute the
		// stock value from it.
		if price.IsZero() && old.Price.IsPositive() {
			price = old.Price
			stockValue = snap.Quantity.Mul(price)
		}

		months := snap.MonthsWithoutSale
		if months == nil {
			if old.MonthsWithoutSale != nil {
				months = old.MonthsWithoutSale
			} else {
				zero := 0
				months = &zero
			}
		}

		err := tx.Model(&Product{}).Where("id = ?", old.ID).Updates(map[string]interface{}{
			"name":                snap.Name,
			"department":          snap.Department,
			"group_label":         snap.GroupLabel,
			"quantity":            snap.Quantity,
			"price":               price,
			"stock_value":         stockValue,
			"months_without_sale": months,
			"is_active":           true,
		}).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		summary.Updated++
	}

	// 3. Insert new articles.
	if len(toAdd) > 0 {
		newProducts := make([]Product, 0, len(toAdd))
		for _, article := range toAdd {
			snap := fileArticles[article]
			months := snap.MonthsWithoutSale
			if months == nil {
				zero := 0
				months = &zero
			}
			newProducts = append(newProducts, Product{
				Article:           snap.Article,
				Name:              snap.Name,
				Department:        snap.Department,
				GroupLabel:        snap.GroupLabel,
				Quantity:          snap.Quantity,
				Price:             snap.Price,
				StockValue:        snap.StockValue,
				MonthsWithoutSale: months,
				IsActive:          utils.NewTrue(),
			})
		}
		if err := tx.CreateInBatches(newProducts, 500).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		summary.Added = len(newProducts)
	}

	// 4. A fresh import is a new physical stock count: every permanent
	// reservation from earlier finalizations is void. In-progress lists are
	// untouched and re-evaluate against the new stock on next read.
	if err := tx.Model(&Product{}).Where("1 = 1").Update("reserved", decimal.Zero).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var totalActive int64
	if err := tx.Model(&Product{}).Where("is_active = ?", true).Count(&totalActive).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	summary.TotalActive = int(totalActive)

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.InvalidateCatalogCache()
	logger.WithFields(map[string]interface{}{
		"added":       summary.Added,
		"updated":     summary.Updated,
		"deactivated": summary.Deactivated,
		"reactivated": summary.Reactivated,
		"totalActive": summary.TotalActive,
	}).Info("catalog import finished")
	return summary, nil
}

// SubtractCollectedFromXlsx subtracts already-collected quantities from
// on-hand stock, recomputing each touched item's stock value. Rows whose
// article is unknown are counted, not fatal.
func SubtractCollectedFromXlsx(ctx context.Context, r io.Reader) (*SubtractSummary, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	index := MapColumns(rows[0])
	if !index.Has(FieldArticle) && !index.Has(FieldName) {
		return nil, utils.NewValidationError("columns", "no article column recognized")
	}
	if !index.Has(FieldQuantity) {
		return nil, utils.NewValidationError("columns", "no quantity column recognized")
	}

	summary := &SubtractSummary{}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	for _, row := range rows[1:] {
		articleCell := index.Cell(row, FieldArticle)
		if articleCell == "" {
			articleCell = index.Cell(row, FieldName)
		}
		article, _ := utils.ExtractArticleAndName(articleCell)
		if article == "" {
			article = strings.TrimSpace(articleCell)
		}
		if article == "" {
			continue
		}

		var product Product
		if err := tx.Where("article = ?", article).First(&product).Error; err != nil {
			summary.NotFound++
			continue
		}

		collected := utils.NormalizeNumeric(index.Cell(row, FieldQuantity))
		newQty := product.Quantity.Sub(collected)
		newValue := newQty.Mul(product.Price)

		err := tx.Model(&Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
			"quantity":    newQty,
			"stock_value": newValue,
		}).Error
		if err != nil {
			summary.Errors++
			config.LogError(config.GetLogger(), "models", "SubtractCollectedFromXlsx", "stock update failed", article, err)
			continue
		}
		summary.Processed++
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	utils.InvalidateCatalogCache()
	return summary, nil
}
