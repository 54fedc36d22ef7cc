package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/pagination"
)

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product with its inventory row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU loads the product matching the normalized SKU.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		First(&product, "sku = ?", sku).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts the catalog row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Inventory").Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct persists the mutated catalog row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Inventory").Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes the product; the inventory row follows via cascade.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", id).Delete(&models.InventoryItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Product{}).Error
}

// CountOpenOrderLines reports order lines still referencing the product on
// orders that have not reached a terminal status.
func (r *Repository) CountOpenOrderLines(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_line_items li").
		Joins("JOIN orders o ON o.id = li.order_id").
		Where("li.product_id = ?", productID).
		Where("o.status NOT IN ?", []string{"delivered", "cancelled"}).
		Count(&count).
		Error
	return count, err
}

// List returns a page of product summaries with inventory joined in.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select("p.id, p.sku, p.name, p.category, p.price_cents, p.is_active, p.created_at, " +
			"COALESCE(i.on_hand_qty, 0) AS on_hand_qty").
		Joins("LEFT JOIN inventory_items i ON i.product_id = p.id")

	if filters.Category != nil {
		qb = qb.Where("p.category = ?", *filters.Category)
	}
	if filters.IsActive != nil {
		qb = qb.Where("p.is_active = ?", *filters.IsActive)
	}
	if filters.SupplierID != nil {
		qb = qb.Where("p.supplier_id = ?", *filters.SupplierID)
	}
	if filters.Query != "" {
		pattern := "%" + filters.Query + "%"
		qb = qb.Where("(p.sku LIKE ? OR p.name LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limitWithBuffer)

	var records []ProductSummary
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ProductList{
		Products:   resultRows,
		NextCursor: nextCursor,
	}, nil
}
