package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/internal/inventory"
	dbpkg "github.com/avilesluna/stockroom-backend/pkg/db"
	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
	"github.com/avilesluna/stockroom-backend/pkg/outbox"
	"github.com/avilesluna/stockroom-backend/pkg/outbox/payloads"
	"github.com/avilesluna/stockroom-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies the operator performing a catalog mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service exposes catalog and stock management operations.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	Update(ctx context.Context, actor Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, actor Actor, productID uuid.UUID) error
	AdjustStock(ctx context.Context, actor Actor, productID uuid.UUID, input AdjustStockInput) (*ProductDTO, error)
	LowStock(ctx context.Context, limit int) ([]inventory.LowStockRow, error)
}

type service struct {
	repo             *Repository
	invRepo          inventory.Repository
	tx               txRunner
	outbox           outboxPublisher
	defaultThreshold int
}

// NewService constructs a product service instance.
func NewService(repo *Repository, invRepo inventory.Repository, tx txRunner, outboxSvc outboxPublisher, defaultThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if defaultThreshold < 0 {
		defaultThreshold = 0
	}
	return &service{
		repo:             repo,
		invRepo:          invRepo,
		tx:               tx,
		outbox:           outboxSvc,
		defaultThreshold: defaultThreshold,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateProductInput) (*ProductDTO, error) {
	sku := normalizeSKU(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if input.PriceCents < 0 || input.CostCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price and cost must be non-negative")
	}
	if input.InitialQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial_qty must be non-negative")
	}
	threshold := s.defaultThreshold
	if input.LowStockThreshold != nil {
		if *input.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_stock_threshold must be non-negative")
		}
		threshold = *input.LowStockThreshold
	}

	if err := s.ensureSKUFree(ctx, sku, uuid.Nil); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	var createdID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		row := &models.Product{
			ID:         uuid.New(),
			SKU:        sku,
			Name:       name,
			Descr:      input.Descr,
			Category:   input.Category,
			Tags:       input.Tags,
			PriceCents: input.PriceCents,
			CostCents:  input.CostCents,
			SupplierID: input.SupplierID,
			IsActive:   active,
		}
		created, err := txRepo.CreateProduct(ctx, row)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		createdID = created.ID

		item := &models.InventoryItem{
			ProductID:         created.ID,
			OnHandQty:         input.InitialQty,
			LowStockThreshold: threshold,
		}
		if _, err := s.invRepo.WithTx(tx).Upsert(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert inventory")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, createdID)
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(row), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, actor Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.SKU != nil {
		sku := normalizeSKU(*input.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
		}
		if sku != row.SKU {
			if err := s.ensureSKUFree(ctx, sku, row.ID); err != nil {
				return nil, err
			}
		}
		row.SKU = sku
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		row.Name = name
	}
	if input.Descr != nil {
		row.Descr = input.Descr
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		row.Category = *input.Category
	}
	if input.Tags != nil {
		row.Tags = append([]string(nil), (*input.Tags)...)
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		row.PriceCents = *input.PriceCents
	}
	if input.CostCents != nil {
		if *input.CostCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be non-negative")
		}
		row.CostCents = *input.CostCents
	}
	if input.SupplierID != nil {
		row.SupplierID = input.SupplierID
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_stock_threshold must be non-negative")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).UpdateProduct(ctx, row); err != nil {
			if dbpkg.IsUniqueViolation(err, "sku") {
				return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		if input.LowStockThreshold != nil {
			if err := s.invRepo.WithTx(tx).SetThreshold(ctx, row.ID, *input.LowStockThreshold); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set low stock threshold")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, productID)
}

func (s *service) Delete(ctx context.Context, actor Actor, productID uuid.UUID) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can delete products")
	}

	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	open, err := s.repo.CountOpenOrderLines(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open orders")
	}
	if open > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "product has open orders")
	}

	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, actor Actor, productID uuid.UUID, input AdjustStockInput) (*ProductDTO, error) {
	if !input.Op.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock adjustment op")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	row, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		onHand, err := inventory.Adjust(ctx, tx, productID, input.Op, input.Qty)
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.StockAdjustedEvent{
				ProductID: productID,
				SKU:       row.SKU,
				Operation: input.Op,
				Qty:       input.Qty,
				OnHandQty: onHand,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		if input.Op != enums.StockAdjustmentSubtract {
			return nil
		}
		item, err := s.invRepo.WithTx(tx).GetByProductID(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
		}
		if !item.IsLowStock() {
			return nil
		}
		low := outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Version:       1,
			Data: payloads.StockLowEvent{
				ProductID:         productID,
				SKU:               row.SKU,
				OnHandQty:         item.OnHandQty,
				LowStockThreshold: item.LowStockThreshold,
			},
		}
		return s.outbox.Emit(ctx, tx, low)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, productID)
}

func (s *service) LowStock(ctx context.Context, limit int) ([]inventory.LowStockRow, error) {
	rows, err := s.invRepo.ListLowStock(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return rows, nil
}

func (s *service) ensureSKUFree(ctx context.Context, sku string, selfID uuid.UUID) error {
	existing, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sku")
	}
	if existing.ID == selfID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
