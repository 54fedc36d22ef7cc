package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	"github.com/avilesluna/stockroom-backend/pkg/types"
)

// LineInput is one requested product/quantity pair.
type LineInput struct {
	ProductID uuid.UUID
	Qty       int
}

// CreateOrderInput holds the validated payload to assemble an order.
type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   *string
	CustomerAddress *types.Address
	PaymentMethod   enums.PaymentMethod
	Notes           *string
	TaxCents        int
	ShippingCents   int
	Lines           []LineInput
	CreatedByID     uuid.UUID
}

// UpdateOrderInput holds optional mutation values; only pending orders accept
// any of them.
type UpdateOrderInput struct {
	CustomerName    *string
	CustomerEmail   *string
	CustomerPhone   *string
	CustomerAddress *types.Address
	PaymentMethod   *enums.PaymentMethod
	PaymentStatus   *enums.PaymentStatus
	Notes           *string
	TaxCents        *int
	ShippingCents   *int
	Lines           *[]LineInput
}

// OrderFilters describe the inputs supported by the orders list.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}

// LineItemDTO is the API shape for one order line.
type LineItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Name           string     `json:"name"`
	SKU            string     `json:"sku"`
	Qty            int        `json:"qty"`
	UnitPriceCents int        `json:"unit_price_cents"`
	TotalCents     int        `json:"total_cents"`
}

// OrderDTO is the API shape of a full order.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	CustomerPhone   *string             `json:"customer_phone,omitempty"`
	CustomerAddress *types.Address      `json:"customer_address,omitempty"`
	SubtotalCents   int                 `json:"subtotal_cents"`
	TaxCents        int                 `json:"tax_cents"`
	ShippingCents   int                 `json:"shipping_cents"`
	TotalCents      int                 `json:"total_cents"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []LineItemDTO       `json:"items"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderSummary exposes the aggregated fields returned in the list.
type OrderSummary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerName  string              `json:"customer_name"`
	TotalCents    int                 `json:"total_cents"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	ItemCount     int                 `json:"item_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// NewOrderDTO maps the model (with preloaded items) into the API shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	items := make([]LineItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			SKU:            item.SKU,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return &OrderDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerPhone:   order.CustomerPhone,
		CustomerAddress: order.CustomerAddress,
		SubtotalCents:   order.SubtotalCents,
		TaxCents:        order.TaxCents,
		ShippingCents:   order.ShippingCents,
		TotalCents:      order.TotalCents,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		PaymentMethod:   order.PaymentMethod,
		Notes:           order.Notes,
		Items:           items,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
