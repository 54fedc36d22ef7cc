package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks the authoritative on-hand count per product.
// Only the ledger mutates OnHandQty, and only via conditional updates.
type InventoryItem struct {
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	OnHandQty         int       `gorm:"column:on_hand_qty;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsLowStock reports whether on-hand is at or below the configured threshold.
func (i InventoryItem) IsLowStock() bool {
	return i.OnHandQty <= i.LowStockThreshold
}
