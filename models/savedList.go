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

// SavedList is a finalized pick list. It is append-only history: written
// once inside the finalize transaction and never mutated, only superseded
// by later lists.
type SavedList struct {
	ID           int             `gorm:"primary_key" json:"id"`
	OperatorId   int64           `gorm:"index;not null" json:"operator_id"`
	Department   int             `gorm:"not null;default:0" json:"department"`
	TotalValue   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_value"`
	SurplusValue decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"surplus_value"`
	Items        []SavedListItem `gorm:"foreignKey:SavedListId" json:"items"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// SavedListItem is one finalized line. Partition separates the fulfilled
// rows from the surplus (backorder) rows of the same list. Article and
// UnitPrice are copied at finalization time so history survives later
// catalog imports.
type SavedListItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	SavedListId int             `gorm:"index;not null" json:"saved_list_id"`
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	Article     string          `gorm:"size:50;not null" json:"article"`
	Partition   ListPartition   `gorm:"type:enum('F','S');default:F" json:"partition"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
}

// GetSavedLists returns the operator's finalized lists, newest first,
// without line items.
func GetSavedLists(ctx context.Context, operatorId int64) ([]*SavedList, error) {
	db := config.GetDB()
	var lists []*SavedList
	err := db.WithContext(ctx).
		Where("operator_id = ?", operatorId).
		Order("created_at DESC").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// GetSavedListById fetches one finalized list with all its lines, fulfilled
// partition first.
func GetSavedListById(ctx context.Context, id int) (*SavedList, error) {
	db := config.GetDB()
	var list SavedList
	err := db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("partition, id")
		}).
		Where("id = ?", id).
		First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// PartitionItems splits a loaded list into its fulfilled and surplus lines.
func (l *SavedList) PartitionItems() (fulfilled []SavedListItem, surplus []SavedListItem) {
	for _, item := range l.Items {
		if item.Partition == PartitionSurplus {
			surplus = append(surplus, item)
		} else {
			fulfilled = append(fulfilled, item)
		}
	}
	return fulfilled, surplus
}
