package supplier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/avilesluna/stockroom-backend/pkg/db"
	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
	"github.com/avilesluna/stockroom-backend/pkg/pagination"
)

// Actor identifies the operator performing a supplier mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service exposes supplier management operations.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateSupplierInput) (*SupplierDTO, error)
	Get(ctx context.Context, supplierID uuid.UUID) (*SupplierDTO, error)
	List(ctx context.Context, params pagination.Params, filters SupplierFilters) (*SupplierList, error)
	Update(ctx context.Context, actor Actor, supplierID uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error)
	Delete(ctx context.Context, actor Actor, supplierID uuid.UUID) error
	AdjustBalance(ctx context.Context, actor Actor, supplierID uuid.UUID, amount decimal.Decimal) (*SupplierDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a supplier service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateSupplierInput) (*SupplierDTO, error) {
	code := normalizeCode(input.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CreditLimit.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit_limit must be non-negative")
	}

	if err := s.ensureCodeFree(ctx, code, uuid.Nil); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	row := &models.Supplier{
		ID:            uuid.New(),
		Code:          code,
		Name:          name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
		CreditLimit:   input.CreditLimit,
		IsActive:      active,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert supplier")
	}
	return NewSupplierDTO(created), nil
}

func (s *service) Get(ctx context.Context, supplierID uuid.UUID) (*SupplierDTO, error) {
	row, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}
	return NewSupplierDTO(row), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters SupplierFilters) (*SupplierList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, actor Actor, supplierID uuid.UUID, input UpdateSupplierInput) (*SupplierDTO, error) {
	row, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}

	if input.Code != nil {
		code := normalizeCode(*input.Code)
		if code == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
		}
		if code != row.Code {
			if err := s.ensureCodeFree(ctx, code, row.ID); err != nil {
				return nil, err
			}
		}
		row.Code = code
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		row.Name = name
	}
	if input.ContactPerson != nil {
		row.ContactPerson = input.ContactPerson
	}
	if input.Email != nil {
		row.Email = input.Email
	}
	if input.Phone != nil {
		row.Phone = input.Phone
	}
	if input.Address != nil {
		row.Address = input.Address
	}
	if input.CreditLimit != nil {
		if input.CreditLimit.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit_limit must be non-negative")
		}
		row.CreditLimit = *input.CreditLimit
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, row)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "code") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supplier")
	}
	return NewSupplierDTO(updated), nil
}

func (s *service) Delete(ctx context.Context, actor Actor, supplierID uuid.UUID) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete suppliers")
	}

	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
	}

	if err := s.repo.Delete(ctx, supplierID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete supplier")
	}
	return nil
}

func (s *service) AdjustBalance(ctx context.Context, actor Actor, supplierID uuid.UUID, amount decimal.Decimal) (*SupplierDTO, error) {
	if amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be non-zero")
	}

	if amount.IsPositive() {
		affected, err := s.repo.IncreaseBalance(ctx, supplierID, amount)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increase balance")
		}
		if affected == 0 {
			// Either the supplier is gone or the increase would blow the
			// credit limit. A follow-up read tells them apart.
			if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "credit limit exceeded")
		}
		return s.Get(ctx, supplierID)
	}

	affected, err := s.repo.DecreaseBalance(ctx, supplierID, amount.Neg())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrease balance")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return s.Get(ctx, supplierID)
}

func (s *service) ensureCodeFree(ctx context.Context, code string, selfID uuid.UUID) error {
	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check code")
	}
	if existing.ID == selfID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "code already exists")
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
