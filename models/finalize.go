package models

import (
	"context"

	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReserveFullRequested controls the reservation policy at finalization.
// When true (the confirmed business policy), the permanent reservation is
// incremented by the FULL requested quantity even when only part was
// fulfilled: the surplus is a backorder claim on future stock, not a
// rejected request. Set false to reserve only the fulfilled portion.
const ReserveFullRequested = true

// FinalizeResult carries the two output partitions of one finalize call.
type FinalizeResult struct {
	SavedListId  int             `json:"saved_list_id"`
	Department   int             `json:"department"`
	Fulfilled    []SavedListItem `json:"fulfilled"`
	Surplus      []SavedListItem `json:"surplus"`
	TotalValue   decimal.Decimal `json:"total_value"`
	SurplusValue decimal.Decimal `json:"surplus_value"`
}

// splitLine divides one requested quantity against the available stock.
// Fulfilled is bounded by available (never negative); surplus is the unmet
// remainder.
func splitLine(requested, available decimal.Decimal) (fulfilled, surplus decimal.Decimal) {
	if requested.LessThanOrEqual(available) {
		return requested, decimal.Zero
	}
	if available.IsPositive() {
		return available, requested.Sub(available)
	}
	return decimal.Zero, requested
}

// FinalizePickList converts the operator's in-progress list into a durable
// SavedList. The whole algorithm runs in one transaction with every
// referenced product row locked: split each line into fulfilled and surplus
// against stock minus permanent reservation (other operators' still-pending
// lists are settled at their own finalization), increment the permanent
// reservations, persist both partitions, clear the ledger. On any failure
// before commit nothing is visible.
//
// Returns ErrorEmptyList when the operator has no lines.
func FinalizePickList(ctx context.Context, operatorId int64) (*FinalizeResult, error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var lines []PickListItem
	if err := tx.Where("operator_id = ?", operatorId).Order("id").Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(lines) == 0 {
		tx.Rollback()
		return nil, utils.ErrorEmptyList
	}

	result := &FinalizeResult{
		TotalValue:   decimal.Zero,
		SurplusValue: decimal.Zero,
	}
	reservationIncrements := make(map[int]decimal.Decimal, len(lines))

	for i, line := range lines {
		product, err := getProductForUpdate(tx, line.ProductId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if i == 0 {
			result.Department = product.Department
		}

		// Availability here is stock minus permanent reservation only: the
		// operator's own allotment is being locked in, not re-checked
		// against other pending lists.
		available := product.Quantity.Sub(product.Reserved)
		fulfilled, surplus := splitLine(line.Quantity, available)

		if fulfilled.IsPositive() {
			lineTotal := product.Price.Mul(fulfilled)
			result.Fulfilled = append(result.Fulfilled, SavedListItem{
				ProductId: product.ID,
				Article:   product.Article,
				Partition: PartitionFulfilled,
				Quantity:  fulfilled,
				UnitPrice: product.Price,
				LineTotal: lineTotal,
			})
			result.TotalValue = result.TotalValue.Add(lineTotal)
		}
		if surplus.IsPositive() {
			lineTotal := product.Price.Mul(surplus)
			result.Surplus = append(result.Surplus, SavedListItem{
				ProductId: product.ID,
				Article:   product.Article,
				Partition: PartitionSurplus,
				Quantity:  surplus,
				UnitPrice: product.Price,
				LineTotal: lineTotal,
			})
			result.SurplusValue = result.SurplusValue.Add(lineTotal)
		}

		if ReserveFullRequested {
			reservationIncrements[product.ID] = line.Quantity
		} else {
			reservationIncrements[product.ID] = fulfilled
		}
	}

	for productId, increment := range reservationIncrements {
		if increment.IsZero() {
			continue
		}
		err := tx.Model(&Product{}).
			Where("id = ?", productId).
			Update("reserved", gorm.Expr("reserved + ?", increment)).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	savedList := SavedList{
		OperatorId:   operatorId,
		Department:   result.Department,
		TotalValue:   result.TotalValue,
		SurplusValue: result.SurplusValue,
		Items:        append(append([]SavedListItem{}, result.Fulfilled...), result.Surplus...),
	}
	if err := tx.Create(&savedList).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Where("operator_id = ?", operatorId).Delete(&PickListItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.InvalidateStatsCache()

	result.SavedListId = savedList.ID
	result.Fulfilled, result.Surplus = savedList.PartitionItems()
	return result, nil
}
