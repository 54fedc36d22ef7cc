package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
)

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU               string
	Name              string
	Descr             *string
	Category          enums.ProductCategory
	Tags              []string
	PriceCents        int
	CostCents         int
	SupplierID        *uuid.UUID
	IsActive          *bool
	InitialQty        int
	LowStockThreshold *int
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	SKU               *string
	Name              *string
	Descr             *string
	Category          *enums.ProductCategory
	Tags              *[]string
	PriceCents        *int
	CostCents         *int
	SupplierID        *uuid.UUID
	IsActive          *bool
	LowStockThreshold *int
}

// AdjustStockInput is a manual on-hand correction.
type AdjustStockInput struct {
	Op  enums.StockAdjustmentOp
	Qty int
}

// ProductFilters describe the inputs supported by the product list.
type ProductFilters struct {
	Category   *enums.ProductCategory
	IsActive   *bool
	SupplierID *uuid.UUID
	Query      string
}

// ProductDTO is the API shape of a product with its inventory state.
type ProductDTO struct {
	ID                  uuid.UUID             `json:"id"`
	SKU                 string                `json:"sku"`
	Name                string                `json:"name"`
	Descr               *string               `json:"description,omitempty"`
	Category            enums.ProductCategory `json:"category"`
	Tags                []string              `json:"tags,omitempty"`
	PriceCents          int                   `json:"price_cents"`
	CostCents           int                   `json:"cost_cents"`
	SupplierID          *uuid.UUID            `json:"supplier_id,omitempty"`
	IsActive            bool                  `json:"is_active"`
	OnHandQty           int                   `json:"on_hand_qty"`
	LowStockThreshold   int                   `json:"low_stock_threshold"`
	IsLowStock          bool                  `json:"is_low_stock"`
	TotalValueCents     int                   `json:"total_value_cents"`
	ProfitMarginPercent float64               `json:"profit_margin_percent"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// ProductSummary exposes the list row shape, inventory joined in.
type ProductSummary struct {
	ID         uuid.UUID             `json:"id"`
	SKU        string                `json:"sku"`
	Name       string                `json:"name"`
	Category   enums.ProductCategory `json:"category"`
	PriceCents int                   `json:"price_cents"`
	IsActive   bool                  `json:"is_active"`
	OnHandQty  int                   `json:"on_hand_qty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// ProductList wraps the paginated products plus the next page cursor.
type ProductList struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// NewProductDTO maps the model (with preloaded inventory) into the API shape.
func NewProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:                  product.ID,
		SKU:                 product.SKU,
		Name:                product.Name,
		Descr:               product.Descr,
		Category:            product.Category,
		Tags:                product.Tags,
		PriceCents:          product.PriceCents,
		CostCents:           product.CostCents,
		SupplierID:          product.SupplierID,
		IsActive:            product.IsActive,
		ProfitMarginPercent: product.ProfitMarginPercent(),
		CreatedAt:           product.CreatedAt,
		UpdatedAt:           product.UpdatedAt,
	}
	if product.Inventory != nil {
		dto.OnHandQty = product.Inventory.OnHandQty
		dto.LowStockThreshold = product.Inventory.LowStockThreshold
		dto.IsLowStock = product.Inventory.IsLowStock()
		dto.TotalValueCents = product.PriceCents * product.Inventory.OnHandQty
	}
	return dto
}
