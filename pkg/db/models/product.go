package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/avilesluna/stockroom-backend/pkg/enums"
)

// Product is a catalog item. Stock counts live on the InventoryItem row so
// the ledger can mutate quantities without touching catalog fields.
type Product struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU        string                `gorm:"column:sku;not null;uniqueIndex"`
	Name       string                `gorm:"column:name;not null"`
	Descr      *string               `gorm:"column:description"`
	Category   enums.ProductCategory `gorm:"column:category;type:text;not null"`
	Tags       pq.StringArray        `gorm:"column:tags;type:text[]"`
	PriceCents int                   `gorm:"column:price_cents;not null"`
	CostCents  int                   `gorm:"column:cost_cents;not null;default:0"`
	SupplierID *uuid.UUID            `gorm:"column:supplier_id;type:uuid"`
	IsActive   bool                  `gorm:"column:is_active;not null;default:true"`
	Inventory  *InventoryItem        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// ProfitMarginPercent returns (price-cost)/cost as a percentage, 0 when cost is 0.
func (p Product) ProfitMarginPercent() float64 {
	if p.CostCents == 0 {
		return 0
	}
	return float64(p.PriceCents-p.CostCents) / float64(p.CostCents) * 100
}
