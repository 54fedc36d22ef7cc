package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/pkg/enums"
)

// StatusCount is one row of the orders-by-status aggregation.
type StatusCount struct {
	Status enums.OrderStatus `json:"status"`
	Count  int64             `json:"count"`
}

// RevenueSummary aggregates delivered and paid orders over a date range.
type RevenueSummary struct {
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	OrderCount   int64     `json:"order_count"`
	RevenueCents int64     `json:"revenue_cents"`
}

// TopProduct is one row of the best-sellers aggregation.
type TopProduct struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	SKU       string     `json:"sku"`
	Name      string     `json:"name"`
	QtySold   int64      `json:"qty_sold"`
}

// Repository composes the dashboard aggregation queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CountOrdersByStatus groups all orders by their current status.
func (r *Repository) CountOrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).
		Error
	return rows, err
}

// Revenue sums delivered, paid orders whose delivery fell in the range.
func (r *Repository) Revenue(ctx context.Context, from, to time.Time) (*RevenueSummary, error) {
	var row struct {
		OrderCount   int64
		RevenueCents int64
	}
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("COUNT(*) AS order_count, COALESCE(SUM(total_cents), 0) AS revenue_cents").
		Where("status = ?", enums.OrderStatusDelivered).
		Where("payment_status = ?", enums.PaymentStatusPaid).
		Where("delivered_at >= ? AND delivered_at <= ?", from, to).
		Scan(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &RevenueSummary{
		From:         from,
		To:           to,
		OrderCount:   row.OrderCount,
		RevenueCents: row.RevenueCents,
	}, nil
}

// InventoryValuationCents sums price times on-hand across active products.
func (r *Repository) InventoryValuationCents(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("inventory_items i").
		Select("COALESCE(SUM(p.price_cents * i.on_hand_qty), 0)").
		Joins("JOIN products p ON p.id = i.product_id").
		Where("p.is_active = ?", true).
		Scan(&total).
		Error
	return total, err
}

// TopProducts ranks products by quantity sold on non-cancelled orders.
func (r *Repository) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []TopProduct
	err := r.db.WithContext(ctx).
		Table("order_line_items li").
		Select("li.product_id, li.sku, li.name, SUM(li.qty) AS qty_sold").
		Joins("JOIN orders o ON o.id = li.order_id").
		Where("o.status <> ?", enums.OrderStatusCancelled).
		Group("li.product_id, li.sku, li.name").
		Order("qty_sold DESC").
		Limit(limit).
		Scan(&rows).
		Error
	return rows, err
}
