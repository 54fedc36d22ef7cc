package payloads

import (
	"time"

	"github.com/avilesluna/stockroom-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a new order with its reserved lines.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	TotalCents  int64             `json:"total_cents"`
	Status      enums.OrderStatus `json:"status"`
	LineCount   int               `json:"line_count"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderCanceledEvent is emitted when a cancellation releases reserved stock.
type OrderCanceledEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CanceledAt    time.Time `json:"canceled_at"`
	StockReleased bool      `json:"stock_released"`
	Reason        string    `json:"reason,omitempty"`
}

// StockLowEvent tells downstream systems a product crossed its reorder threshold.
type StockLowEvent struct {
	ProductID         uuid.UUID `json:"product_id"`
	SKU               string    `json:"sku"`
	OnHandQty         int       `json:"on_hand_qty"`
	LowStockThreshold int       `json:"low_stock_threshold"`
}

// StockAdjustedEvent records a manual stock adjustment.
type StockAdjustedEvent struct {
	ProductID uuid.UUID               `json:"product_id"`
	SKU       string                  `json:"sku"`
	Operation enums.StockAdjustmentOp `json:"operation"`
	Qty       int                     `json:"qty"`
	OnHandQty int                     `json:"on_hand_qty"`
}
