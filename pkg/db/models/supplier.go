package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avilesluna/stockroom-backend/pkg/types"
)

// Supplier is a vendor products are sourced from. Balance adjustments are
// floored at zero on decrease; the credit limit caps outstanding balance.
type Supplier struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string          `gorm:"column:code;not null;uniqueIndex"`
	Name           string          `gorm:"column:name;not null"`
	ContactPerson  *string         `gorm:"column:contact_person"`
	Email          *string         `gorm:"column:email"`
	Phone          *string         `gorm:"column:phone"`
	Address        *types.Address  `gorm:"column:address;type:jsonb;serializer:json"`
	CreditLimit    decimal.Decimal `gorm:"column:credit_limit;type:numeric(12,2);not null;default:0"`
	CurrentBalance decimal.Decimal `gorm:"column:current_balance;type:numeric(12,2);not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableCredit returns max(0, limit-balance).
func (s Supplier) AvailableCredit() decimal.Decimal {
	available := s.CreditLimit.Sub(s.CurrentBalance)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// CreditExceeded reports whether adding amount would push the balance past the limit.
func (s Supplier) CreditExceeded(amount decimal.Decimal) bool {
	return s.CurrentBalance.Add(amount).GreaterThan(s.CreditLimit)
}
