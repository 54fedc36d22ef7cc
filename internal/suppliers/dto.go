package supplier

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/types"
)

// CreateSupplierInput holds the validated payload to create a supplier.
type CreateSupplierInput struct {
	Code          string
	Name          string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *types.Address
	CreditLimit   decimal.Decimal
	IsActive      *bool
}

// UpdateSupplierInput holds optional mutation values for a supplier.
type UpdateSupplierInput struct {
	Code          *string
	Name          *string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *types.Address
	CreditLimit   *decimal.Decimal
	IsActive      *bool
}

// SupplierFilters describe the inputs supported by the supplier list.
type SupplierFilters struct {
	IsActive *bool
	Query    string
}

// SupplierDTO is the API shape of a supplier.
type SupplierDTO struct {
	ID              uuid.UUID       `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	ContactPerson   *string         `json:"contact_person,omitempty"`
	Email           *string         `json:"email,omitempty"`
	Phone           *string         `json:"phone,omitempty"`
	Address         *types.Address  `json:"address,omitempty"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SupplierList wraps the paginated suppliers plus the next page cursor.
type SupplierList struct {
	Suppliers  []SupplierDTO `json:"suppliers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// NewSupplierDTO maps the model into the API shape.
func NewSupplierDTO(supplier *models.Supplier) *SupplierDTO {
	if supplier == nil {
		return nil
	}
	return &SupplierDTO{
		ID:              supplier.ID,
		Code:            supplier.Code,
		Name:            supplier.Name,
		ContactPerson:   supplier.ContactPerson,
		Email:           supplier.Email,
		Phone:           supplier.Phone,
		Address:         supplier.Address,
		CreditLimit:     supplier.CreditLimit,
		CurrentBalance:  supplier.CurrentBalance,
		AvailableCredit: supplier.AvailableCredit(),
		IsActive:        supplier.IsActive,
		CreatedAt:       supplier.CreatedAt,
		UpdatedAt:       supplier.UpdatedAt,
	}
}
