package models

import (
	"context"
	"errors"
	"time"

	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PickListItem is one in-progress line of an operator's pick list. A line
// never outlives finalization or cancellation. All lines of one operator
// reference products of a single department.
type PickListItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	OperatorId int64           `gorm:"uniqueIndex:idx_operator_product;not null" json:"operator_id"`
	ProductId  int             `gorm:"uniqueIndex:idx_operator_product;index;not null" json:"product_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Product    Product         `gorm:"foreignKey:ProductId" json:"-"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// PickListLine is the read model of one line, joined with its product.
type PickListLine struct {
	ProductId  int             `json:"product_id"`
	Article    string          `json:"article"`
	Name       string          `json:"name"`
	Department int             `json:"department"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Available  decimal.Decimal `json:"available"`
}

type PickListResponse struct {
	OperatorId       int64           `json:"operator_id"`
	Items            []*PickListLine `json:"items"`
	TotalItems       int             `json:"total_items"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	LockedDepartment *int            `json:"locked_department"`
}

// AddItemResult reports the state after an add: the new line quantity plus
// the availability observed inside the same transaction. Availability may be
// negative; over-commitment is resolved at finalization, not here.
type AddItemResult struct {
	ProductId    int             `json:"product_id"`
	LineQuantity decimal.Decimal `json:"line_quantity"`
	Available    decimal.Decimal `json:"available"`
}

// ActiveListInfo names an operator with a non-empty pick list.
type ActiveListInfo struct {
	OperatorId int64 `json:"operator_id"`
	ItemCount  int   `json:"item_count"`
}

// LockedDepartment returns the department the operator's list is locked to,
// or nil when the list is empty.
func LockedDepartment(ctx context.Context, operatorId int64) (*int, error) {
	db := config.GetDB()
	return lockedDepartment(db.WithContext(ctx), operatorId)
}

func lockedDepartment(tx *gorm.DB, operatorId int64) (*int, error) {
	var depts []int
	err := tx.Model(&PickListItem{}).
		Joins("JOIN products ON products.id = pick_list_items.product_id").
		Where("pick_list_items.operator_id = ?", operatorId).
		Limit(1).
		Pluck("products.department", &depts).Error
	if err != nil {
		return nil, err
	}
	if len(depts) == 0 {
		return nil, nil
	}
	return &depts[0], nil
}

// AddItemToPickList creates or accumulates a line. The product row is locked
// for the duration so the availability snapshot and the write are one atomic
// unit. Fails with DepartmentMismatchError when the list is locked to a
// different department.
func AddItemToPickList(ctx context.Context, operatorId int64, productId int, quantity decimal.Decimal) (*AddItemResult, error) {
	if !quantity.IsPositive() {
		return nil, utils.NewValidationError("quantity", "quantity must be greater than zero")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	product, err := getProductForUpdate(tx, productId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if product.IsActive == nil || !*product.IsActive {
		tx.Rollback()
		return nil, utils.NewValidationError("product", "product is inactive")
	}

	currentDept, err := lockedDepartment(tx, operatorId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if currentDept != nil && *currentDept != product.Department {
		tx.Rollback()
		return nil, &utils.DepartmentMismatchError{
			LockedDepartment:    *currentDept,
			RequestedDepartment: product.Department,
		}
	}

	var existing PickListItem
	err = tx.Where("operator_id = ? AND product_id = ?", operatorId, productId).First(&existing).Error
	switch {
	case err == nil:
		existing.Quantity = existing.Quantity.Add(quantity)
		if err := tx.Save(&existing).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		existing = PickListItem{OperatorId: operatorId, ProductId: productId, Quantity: quantity}
		if err := tx.Create(&existing).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	default:
		tx.Rollback()
		return nil, err
	}

	pending, err := pendingReservation(tx, productId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	available := product.Quantity.Sub(product.Reserved).Sub(pending)

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &AddItemResult{
		ProductId:    productId,
		LineQuantity: existing.Quantity,
		Available:    available,
	}, nil
}

// SetPickListItemQuantity replaces a line's quantity; zero removes the line.
// No department re-check: the line already belongs to the locked department.
func SetPickListItemQuantity(ctx context.Context, operatorId int64, productId int, quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return utils.NewValidationError("quantity", "quantity cannot be negative")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var item PickListItem
	err := tx.Where("operator_id = ? AND product_id = ?", operatorId, productId).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return utils.ErrorRecordNotFound
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	if quantity.IsZero() {
		err = tx.Delete(&item).Error
	} else {
		err = tx.Model(&item).Update("quantity", quantity).Error
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// RemoveItemFromPickList deletes one line unconditionally.
func RemoveItemFromPickList(ctx context.Context, operatorId int64, productId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("operator_id = ? AND product_id = ?", operatorId, productId).
		Delete(&PickListItem{}).Error
}

// ClearPickList removes every line of the operator's list. Clearing an
// empty list is a no-op. In-progress quantities are a transient sum, so
// deleting the rows releases the reservation by itself.
func ClearPickList(ctx context.Context, operatorId int64) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("operator_id = ?", operatorId).
		Delete(&PickListItem{}).Error
}

// GetPickList returns the operator's current list with product data,
// per-line availability and running totals.
func GetPickList(ctx context.Context, operatorId int64) (*PickListResponse, error) {
	db := config.GetDB()

	var items []PickListItem
	err := db.WithContext(ctx).
		Preload("Product").
		Where("operator_id = ?", operatorId).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	resp := &PickListResponse{
		OperatorId: operatorId,
		Items:      make([]*PickListLine, 0, len(items)),
		TotalPrice: decimal.Zero,
	}
	for _, item := range items {
		if resp.LockedDepartment == nil {
			dept := item.Product.Department
			resp.LockedDepartment = &dept
		}
		available, err := productAvailability(db.WithContext(ctx), item.ProductId)
		if err != nil {
			return nil, err
		}
		lineTotal := item.Product.Price.Mul(item.Quantity)
		resp.Items = append(resp.Items, &PickListLine{
			ProductId:  item.ProductId,
			Article:    item.Product.Article,
			Name:       item.Product.Name,
			Department: item.Product.Department,
			Quantity:   item.Quantity,
			Price:      item.Product.Price,
			LineTotal:  lineTotal,
			Available:  available,
		})
		resp.TotalPrice = resp.TotalPrice.Add(lineTotal)
	}
	resp.TotalItems = len(resp.Items)
	return resp, nil
}

// GetOperatorsWithActiveLists lists operators holding non-empty lists.
func GetOperatorsWithActiveLists(ctx context.Context) ([]*ActiveListInfo, error) {
	db := config.GetDB()
	var infos []*ActiveListInfo
	err := db.WithContext(ctx).Model(&PickListItem{}).
		Select("operator_id, COUNT(id) AS item_count").
		Group("operator_id").
		Having("COUNT(id) > 0").
		Scan(&infos).Error
	if err != nil {
		return nil, err
	}
	return infos, nil
}
