package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/internal/inventory"
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
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies the operator performing an order mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	Transition(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error)
	Update(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateOrderInput) (*OrderDTO, error)
	Delete(ctx context.Context, actor Actor, orderID uuid.UUID) error
}

type service struct {
	repo    Repository
	invRepo inventory.Repository
	tx      txRunner
	outbox  outboxPublisher
	now     func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, invRepo inventory.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
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
	return &service{
		repo:    repo,
		invRepo: invRepo,
		tx:      tx,
		outbox:  outboxSvc,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*OrderDTO, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.TaxCents < 0 || input.ShippingCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax and shipping must be non-negative")
	}
	if input.CreatedByID == uuid.Nil {
		input.CreatedByID = actor.UserID
	}
	if input.CreatedByID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var createdID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assembled, err := Assemble(ctx, tx, s.repo, input.Lines)
		if err != nil {
			return err
		}

		number, err := NextOrderNumber(ctx, tx, s.now())
		if err != nil {
			return err
		}

		order := &models.Order{
			ID:              uuid.New(),
			OrderNumber:     number,
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerEmail:   strings.TrimSpace(input.CustomerEmail),
			CustomerPhone:   input.CustomerPhone,
			CustomerAddress: input.CustomerAddress,
			SubtotalCents:   assembled.SubtotalCents,
			TaxCents:        input.TaxCents,
			ShippingCents:   input.ShippingCents,
			TotalCents:      assembled.SubtotalCents + input.TaxCents + input.ShippingCents,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusUnpaid,
			PaymentMethod:   input.PaymentMethod,
			Notes:           input.Notes,
			CreatedByID:     input.CreatedByID,
		}

		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		for i := range assembled.Items {
			assembled.Items[i].OrderID = order.ID
		}
		if err := txRepo.CreateLineItems(ctx, assembled.Items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order lines")
		}
		createdID = order.ID

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				TotalCents:  int64(order.TotalCents),
				Status:      order.Status,
				LineCount:   len(assembled.Items),
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}

		return s.emitLowStockEvents(ctx, tx, actor, assembled.Items)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, createdID)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return NewOrderDTO(order), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !CanTransition(order.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, target))
		}

		now := s.now()
		updates := map[string]any{"status": target}
		switch target {
		case enums.OrderStatusShipped:
			updates["shipped_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
		}

		stockReleased := false
		if target == enums.OrderStatusCancelled && releasesStockOnCancel(order.Status) {
			if err := s.releaseOrderStock(ctx, tx, order.Items); err != nil {
				return err
			}
			stockReleased = true
		}

		rows, err := txRepo.UpdateOrderIfStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		statusEvent := outbox.DomainEvent{
			EventType:     enums.EventOrderStatus,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				FromStatus:  order.Status,
				ToStatus:    target,
				ChangedAt:   now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, statusEvent); err != nil {
			return err
		}

		if target != enums.OrderStatusCancelled {
			return nil
		}
		cancelEvent := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.OrderCanceledEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CanceledAt:    now,
				StockReleased: stockReleased,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, cancelEvent)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, orderID)
}

func (s *service) Update(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateOrderInput) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.PaymentStatus != nil && !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !isEditable(order.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order not editable")
		}

		updates := map[string]any{}
		if input.CustomerName != nil {
			name := strings.TrimSpace(*input.CustomerName)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
			}
			updates["customer_name"] = name
		}
		if input.CustomerEmail != nil {
			email := strings.TrimSpace(*input.CustomerEmail)
			if email == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
			}
			updates["customer_email"] = email
		}
		if input.CustomerPhone != nil {
			updates["customer_phone"] = *input.CustomerPhone
		}
		if input.CustomerAddress != nil {
			updates["customer_address"] = input.CustomerAddress
		}
		if input.PaymentMethod != nil {
			updates["payment_method"] = *input.PaymentMethod
		}
		if input.PaymentStatus != nil {
			updates["payment_status"] = *input.PaymentStatus
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}

		subtotal := order.SubtotalCents
		tax := order.TaxCents
		shipping := order.ShippingCents
		if input.TaxCents != nil {
			if *input.TaxCents < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "tax must be non-negative")
			}
			tax = *input.TaxCents
			updates["tax_cents"] = tax
		}
		if input.ShippingCents != nil {
			if *input.ShippingCents < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "shipping must be non-negative")
			}
			shipping = *input.ShippingCents
			updates["shipping_cents"] = shipping
		}

		if input.Lines != nil {
			// Rebalance reservations: hand back the old lines first, then
			// reserve the new set with the usual rollback rule.
			if err := s.releaseOrderStock(ctx, tx, order.Items); err != nil {
				return err
			}
			assembled, err := Assemble(ctx, tx, s.repo, *input.Lines)
			if err != nil {
				return err
			}
			for i := range assembled.Items {
				assembled.Items[i].OrderID = order.ID
			}
			if err := txRepo.ReplaceLineItems(ctx, order.ID, assembled.Items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order lines")
			}
			subtotal = assembled.SubtotalCents
			updates["subtotal_cents"] = subtotal

			if err := s.emitLowStockEvents(ctx, tx, actor, assembled.Items); err != nil {
				return err
			}
		}

		updates["total_cents"] = subtotal + tax + shipping
		rows, err := txRepo.UpdateOrderIfStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, orderID)
}

func (s *service) Delete(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		stockReleased := false
		if releasesStockOnCancel(order.Status) {
			if err := s.releaseOrderStock(ctx, tx, order.Items); err != nil {
				return err
			}
			stockReleased = true
		}

		rows, err := txRepo.DeleteOrderIfStatus(ctx, order.ID, order.Status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.OrderCanceledEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				CanceledAt:    s.now(),
				StockReleased: stockReleased,
				Reason:        "deleted",
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
}

func (s *service) releaseOrderStock(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) error {
	for _, item := range items {
		if item.ProductID == nil || item.Qty <= 0 {
			continue
		}
		if _, err := inventory.Release(ctx, tx, *item.ProductID, item.Qty); err != nil {
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				// The product was removed after the order was placed; there
				// is no inventory row left to credit.
				continue
			}
			return err
		}
	}
	return nil
}

func (s *service) emitLowStockEvents(ctx context.Context, tx *gorm.DB, actor Actor, items []models.OrderLineItem) error {
	txInv := s.invRepo.WithTx(tx)
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		productID := *item.ProductID
		if _, ok := seen[productID]; ok {
			continue
		}
		seen[productID] = struct{}{}

		inv, err := txInv.GetByProductID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory for low stock check")
		}
		if !inv.IsLowStock() {
			continue
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: payloads.StockLowEvent{
				ProductID:         productID,
				SKU:               item.SKU,
				OnHandQty:         inv.OnHandQty,
				LowStockThreshold: inv.LowStockThreshold,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
}
