package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilesluna/stockroom-backend/pkg/enums"
	"github.com/avilesluna/stockroom-backend/pkg/types"
)

// Order holds a customer snapshot and owned line items. Product references on
// lines are weak: deleting a product never cascades into order history.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerName    string              `gorm:"column:customer_name;not null"`
	CustomerEmail   string              `gorm:"column:customer_email;not null"`
	CustomerPhone   *string             `gorm:"column:customer_phone"`
	CustomerAddress *types.Address      `gorm:"column:customer_address;type:jsonb;serializer:json"`
	SubtotalCents   int                 `gorm:"column:subtotal_cents;not null"`
	TaxCents        int                 `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents   int                 `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	Notes           *string             `gorm:"column:notes"`
	CreatedByID     uuid.UUID           `gorm:"column:created_by_id;type:uuid;not null"`
	ShippedAt       *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	Items           []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
