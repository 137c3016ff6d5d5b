package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Product is one catalog item. Article is the stable identity across
// imports; IsActive=false items stay addressable for history but are
// excluded from search and new reservations.
type Product struct {
	ID                int             `gorm:"primary_key" json:"id"`
	Article           string          `gorm:"uniqueIndex;size:50;not null" json:"article"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	Department        int             `gorm:"index;not null;default:0" json:"department"`
	GroupLabel        string          `gorm:"size:100" json:"group_label"`
	Quantity          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Price             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	StockValue        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock_value"`
	MonthsWithoutSale *int            `json:"months_without_sale"`
	Reserved          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reserved"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductSearchResult is a search hit plus live availability and the
// department-conflict flag relative to the caller's locked department.
type ProductSearchResult struct {
	Product               Product         `json:"product"`
	Available             decimal.Decimal `json:"available"`
	IsDifferentDepartment bool            `json:"is_different_department"`
}

type CatalogStats struct {
	TotalProducts    int             `json:"total_products"`
	ActiveProducts   int             `json:"active_products"`
	InactiveProducts int             `json:"inactive_products"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	TotalReserved    decimal.Decimal `json:"total_reserved"`
	DepartmentCounts map[int]int     `json:"department_counts"`
}

func GetProductById(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()
	var product Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProductByArticle(ctx context.Context, article string) (*Product, error) {
	db := config.GetDB()
	var product Product
	err := db.WithContext(ctx).Where("article = ?", article).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// getProductForUpdate fetches one product row under a FOR UPDATE lock. Every
// read-then-write of stock or reservation state goes through this.
func getProductForUpdate(tx *gorm.DB, productId int) (*Product, error) {
	var product Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productId).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// pendingReservation sums the in-progress quantities for one product across
// every operator's pick list.
func pendingReservation(tx *gorm.DB, productId int) (decimal.Decimal, error) {
	var pending decimal.NullDecimal
	err := tx.Model(&PickListItem{}).
		Select("SUM(quantity)").
		Where("product_id = ?", productId).
		Scan(&pending).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !pending.Valid {
		return decimal.Zero, nil
	}
	return pending.Decimal, nil
}

// ProductAvailability computes live availability:
// stock - permanent reservation - sum of all operators' in-progress lines.
// Recomputed on every read; any operator's pending edit changes every other
// operator's view, so this is never cached. The result may go negative.
func ProductAvailability(ctx context.Context, productId int) (decimal.Decimal, error) {
	db := config.GetDB()
	return productAvailability(db.WithContext(ctx), productId)
}

func productAvailability(tx *gorm.DB, productId int) (decimal.Decimal, error) {
	var product Product
	if err := tx.Where("id = ?", productId).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, utils.ErrorRecordNotFound
		}
		return decimal.Zero, err
	}
	pending, err := pendingReservation(tx, productId)
	if err != nil {
		return decimal.Zero, err
	}
	return product.Quantity.Sub(product.Reserved).Sub(pending), nil
}

// SearchProducts finds active products matching the query on article or
// name, ranked: exact article first, name prefix next, fuzzy blends last.
// The candidate ranking is cached briefly in Redis; availability and the
// department flag are applied after the cache because they depend on the
// caller and on live ledger state.
func SearchProducts(ctx context.Context, query string, operatorId int64) ([]*ProductSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, utils.NewValidationError("query", "search query must not be empty")
	}

	var candidates []Product
	cacheKey := utils.SearchCacheKey(query)
	if !utils.FetchCached(cacheKey, &candidates) {
		db := config.GetDB()
		like := "%" + query + "%"
		err := db.WithContext(ctx).
			Where("is_active = ?", true).
			Where("article LIKE ? OR name LIKE ?", like, like).
			Limit(200).
			Find(&candidates).Error
		if err != nil {
			return nil, err
		}
		candidates = rankSearchCandidates(query, candidates)
		utils.StoreCached(cacheKey, candidates, utils.CacheTTLShort)
	}

	lockedDept, err := LockedDepartment(ctx, operatorId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	results := make([]*ProductSearchResult, 0, len(candidates))
	for _, p := range candidates {
		available, err := productAvailability(db.WithContext(ctx), p.ID)
		if err != nil {
			return nil, err
		}
		r := &ProductSearchResult{Product: p, Available: available}
		if lockedDept != nil && p.Department != *lockedDept {
			r.IsDifferentDepartment = true
		}
		results = append(results, r)
	}
	return results, nil
}

// rankSearchCandidates scores and orders candidates, keeping the top
// SearchLimit with a score above the floor.
func rankSearchCandidates(query string, candidates []Product) []Product {
	type scored struct {
		product Product
		score   float64
	}

	queryLower := strings.ToLower(query)
	kept := make([]scored, 0, len(candidates))

	for _, p := range candidates {
		var articleScore float64
		if query == p.Article {
			articleScore = 200
		} else {
			articleScore = searchSimilarity(query, p.Article) * 150
		}

		nameLower := strings.ToLower(p.Name)
		var nameScore float64
		switch {
		case strings.HasPrefix(nameLower, queryLower):
			nameScore = 100
		case strings.Contains(nameLower, queryLower):
			nameScore = 85
		default:
			nameScore = searchSimilarity(queryLower, nameLower) * 100
		}

		final := articleScore
		if nameScore > final {
			final = nameScore
		}
		if final > 65 {
			kept = append(kept, scored{product: p, score: final})
		}
	}

	for i := 1; i < len(kept); i++ {
		for j := i; j > 0 && kept[j].score > kept[j-1].score; j-- {
			kept[j], kept[j-1] = kept[j-1], kept[j]
		}
	}

	limit := config.SearchLimit
	if len(kept) < limit {
		limit = len(kept)
	}
	out := make([]Product, 0, limit)
	for _, s := range kept[:limit] {
		out = append(out, s.product)
	}
	return out
}

func searchSimilarity(a, b string) float64 {
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

// GetCatalogStats aggregates catalog totals plus a department histogram.
func GetCatalogStats(ctx context.Context) (*CatalogStats, error) {
	var stats CatalogStats
	if utils.FetchCached(utils.CacheKeyStats, &stats) {
		return &stats, nil
	}

	db := config.GetDB()

	var total, active int64
	if err := db.WithContext(ctx).Model(&Product{}).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Product{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return nil, err
	}

	type sums struct {
		TotalQuantity decimal.NullDecimal
		TotalReserved decimal.NullDecimal
	}
	var s sums
	err := db.WithContext(ctx).Model(&Product{}).
		Select("SUM(quantity) AS total_quantity, SUM(reserved) AS total_reserved").
		Where("is_active = ?", true).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}

	type deptRow struct {
		Department int
		Count      int
	}
	var deptRows []deptRow
	err = db.WithContext(ctx).Model(&Product{}).
		Select("department, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("department").
		Scan(&deptRows).Error
	if err != nil {
		return nil, err
	}

	stats = CatalogStats{
		TotalProducts:    int(total),
		ActiveProducts:   int(active),
		InactiveProducts: int(total - active),
		DepartmentCounts: make(map[int]int, len(deptRows)),
	}
	if s.TotalQuantity.Valid {
		stats.TotalQuantity = s.TotalQuantity.Decimal
	}
	if s.TotalReserved.Valid {
		stats.TotalReserved = s.TotalReserved.Decimal
	}
	for _, r := range deptRows {
		stats.DepartmentCounts[r.Department] = r.Count
	}

	utils.StoreCached(utils.CacheKeyStats, &stats, utils.GetCacheLifespan())
	return &stats, nil
}
