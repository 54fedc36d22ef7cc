package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/internal/inventory"
	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
)

func newDashboardTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:dashboard_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Product{},
		&models.InventoryItem{},
		&models.Order{},
		&models.OrderLineItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDashboardOrder(t *testing.T, db *gorm.DB, number string, status enums.OrderStatus, payment enums.PaymentStatus, totalCents int, deliveredAt *time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		TotalCents:    totalCents,
		Status:        status,
		PaymentStatus: payment,
		PaymentMethod: enums.PaymentMethodCash,
		CreatedByID:   uuid.New(),
		DeliveredAt:   deliveredAt,
	}
	if err := db.Omit("Items").Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func seedDashboardProduct(t *testing.T, db *gorm.DB, sku string, priceCents, onHand, threshold int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		SKU:        sku,
		Name:       "Product " + sku,
		Category:   enums.ProductCategoryOther,
		PriceCents: priceCents,
		IsActive:   true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	item := models.InventoryItem{ProductID: product.ID, OnHandQty: onHand, LowStockThreshold: threshold}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return product
}

func TestSummaryAggregates(t *testing.T) {
	t.Parallel()

	db := newDashboardTestDB(t)
	ctx := context.Background()

	seedDashboardProduct(t, db, "DSH-LOW", 1000, 2, 5)
	plenty := seedDashboardProduct(t, db, "DSH-OK", 500, 20, 5)

	seedDashboardOrder(t, db, "ORD-20240501-001", enums.OrderStatusPending, enums.PaymentStatusUnpaid, 1000, nil)
	seedDashboardOrder(t, db, "ORD-20240501-002", enums.OrderStatusPending, enums.PaymentStatusUnpaid, 2000, nil)
	sold := seedDashboardOrder(t, db, "ORD-20240501-003", enums.OrderStatusDelivered, enums.PaymentStatusPaid, 3000, nil)

	productID := plenty.ID
	line := models.OrderLineItem{
		ID:        uuid.New(),
		OrderID:   sold.ID,
		ProductID: &productID,
		Name:      plenty.Name,
		SKU:       plenty.SKU,
		Qty:       3,
	}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}

	svc, err := NewService(NewRepository(db), inventory.NewRepository(db))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.TotalOrders != 3 {
		t.Fatalf("expected 3 orders, got %d", summary.TotalOrders)
	}
	counts := map[enums.OrderStatus]int64{}
	for _, row := range summary.OrdersByStatus {
		counts[row.Status] = row.Count
	}
	if counts[enums.OrderStatusPending] != 2 || counts[enums.OrderStatusDelivered] != 1 {
		t.Fatalf("unexpected status counts %v", counts)
	}
	if summary.LowStockCount != 1 || len(summary.LowStockItems) != 1 {
		t.Fatalf("unexpected low stock %d/%d", summary.LowStockCount, len(summary.LowStockItems))
	}
	if summary.InventoryValuationCents != 1000*2+500*20 {
		t.Fatalf("unexpected valuation %d", summary.InventoryValuationCents)
	}
	if len(summary.TopProducts) != 1 || summary.TopProducts[0].QtySold != 3 {
		t.Fatalf("unexpected top products %+v", summary.TopProducts)
	}
}

func TestRevenueRange(t *testing.T) {
	t.Parallel()

	db := newDashboardTestDB(t)
	ctx := context.Background()

	inRange := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	seedDashboardOrder(t, db, "ORD-20240510-001", enums.OrderStatusDelivered, enums.PaymentStatusPaid, 5000, &inRange)
	seedDashboardOrder(t, db, "ORD-20240510-002", enums.OrderStatusDelivered, enums.PaymentStatusPaid, 7000, &outOfRange)
	// Delivered but unpaid stays out of revenue.
	seedDashboardOrder(t, db, "ORD-20240510-003", enums.OrderStatusDelivered, enums.PaymentStatusUnpaid, 9000, &inRange)
	// Paid but not delivered stays out too.
	seedDashboardOrder(t, db, "ORD-20240510-004", enums.OrderStatusShipped, enums.PaymentStatusPaid, 1100, nil)

	svc, err := NewService(NewRepository(db), inventory.NewRepository(db))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)
	revenue, err := svc.Revenue(ctx, from, to)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}

	if revenue.OrderCount != 1 {
		t.Fatalf("expected 1 order in range, got %d", revenue.OrderCount)
	}
	if revenue.RevenueCents != 5000 {
		t.Fatalf("expected revenue 5000, got %d", revenue.RevenueCents)
	}

	if _, err := svc.Revenue(ctx, to, from); err == nil {
		t.Fatal("expected validation error for inverted range")
	}
}
