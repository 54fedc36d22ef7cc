package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
)

// Repository manages persistence for inventory rows outside the ledger's
// guarded updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	GetByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error)
	SetThreshold(ctx context.Context, productID uuid.UUID, threshold int) error
	ListLowStock(ctx context.Context, limit int) ([]LowStockRow, error)
	CountLowStock(ctx context.Context) (int64, error)
}

// LowStockRow joins catalog fields onto an inventory row for reporting.
type LowStockRow struct {
	ProductID         uuid.UUID `json:"product_id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	OnHandQty         int       `json:"on_hand_qty"`
	LowStockThreshold int       `json:"low_stock_threshold"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Upsert(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) GetByProductID(ctx context.Context, productID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) SetThreshold(ctx context.Context, productID uuid.UUID, threshold int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ?", productID).
		Update("low_stock_threshold", threshold).
		Error
}

func (r *repository) ListLowStock(ctx context.Context, limit int) ([]LowStockRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []LowStockRow
	err := r.db.WithContext(ctx).
		Table("inventory_items i").
		Select("i.product_id, p.sku, p.name, i.on_hand_qty, i.low_stock_threshold").
		Joins("JOIN products p ON p.id = i.product_id").
		Where("p.is_active = ?", true).
		Where("i.on_hand_qty <= i.low_stock_threshold").
		Order("i.on_hand_qty ASC").
		Limit(limit).
		Scan(&rows).
		Error
	return rows, err
}

func (r *repository) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("inventory_items i").
		Joins("JOIN products p ON p.id = i.product_id").
		Where("p.is_active = ?", true).
		Where("i.on_hand_qty <= i.low_stock_threshold").
		Count(&count).
		Error
	return count, err
}
