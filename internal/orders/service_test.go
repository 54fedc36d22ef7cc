package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/internal/inventory"
	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
	"github.com/avilesluna/stockroom-backend/pkg/outbox"
	"github.com/avilesluna/stockroom-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) countByType(eventType enums.OutboxEventType) int {
	total := 0
	for _, event := range s.events {
		if event.EventType == eventType {
			total++
		}
	}
	return total
}

type serviceTestEnv struct {
	db     *gorm.DB
	svc    Service
	outbox *stubOutboxPublisher
	actor  Actor
}

func newServiceTestEnv(t *testing.T) *serviceTestEnv {
	t.Helper()
	db := newOrdersTestDB(t)
	publisher := &stubOutboxPublisher{}
	svc, err := NewService(NewRepository(db), inventory.NewRepository(db), gormTxRunner{db: db}, publisher)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &serviceTestEnv{
		db:     db,
		svc:    svc,
		outbox: publisher,
		actor:  Actor{UserID: uuid.New(), Role: enums.UserRoleStaff},
	}
}

func (env *serviceTestEnv) createOrder(t *testing.T, lines []LineInput) *OrderDTO {
	t.Helper()
	order, err := env.svc.Create(context.Background(), env.actor, CreateOrderInput{
		CustomerName:  "Ana Torres",
		CustomerEmail: "ana@example.com",
		PaymentMethod: enums.PaymentMethodCard,
		TaxCents:      100,
		ShippingCents: 200,
		Lines:         lines,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestCreateOrderReservesStockAndEmits(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID", 1000, 10, 2)
	scarce := seedCatalogProduct(t, env.db, "SVC-SCR", 500, 3, 2)

	order := env.createOrder(t, []LineInput{
		{ProductID: widget.ID, Qty: 2},
		{ProductID: scarce.ID, Qty: 1},
	})

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if order.SubtotalCents != 2500 || order.TotalCents != 2800 {
		t.Fatalf("unexpected totals %d/%d", order.SubtotalCents, order.TotalCents)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	day := time.Now().UTC().Format("20060102")
	if order.OrderNumber != "ORD-"+day+"-001" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}

	assertOnHand(t, env.db, widget.ID, 8)
	assertOnHand(t, env.db, scarce.ID, 2)

	if env.outbox.countByType(enums.EventOrderCreated) != 1 {
		t.Fatal("expected order.created event")
	}
	// The scarce product dropped to its threshold, the widget did not.
	if env.outbox.countByType(enums.EventStockLow) != 1 {
		t.Fatalf("expected one low stock event, got %d", env.outbox.countByType(enums.EventStockLow))
	}
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID2", 1000, 10, 2)
	scarce := seedCatalogProduct(t, env.db, "SVC-SCR2", 500, 1, 2)

	_, err := env.svc.Create(context.Background(), env.actor, CreateOrderInput{
		CustomerName:  "Ana Torres",
		CustomerEmail: "ana@example.com",
		PaymentMethod: enums.PaymentMethodCash,
		Lines: []LineInput{
			{ProductID: widget.ID, Qty: 3},
			{ProductID: scarce.ID, Qty: 5},
		},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	assertOnHand(t, env.db, widget.ID, 10)
	assertOnHand(t, env.db, scarce.ID, 1)

	var count int64
	if err := env.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no orders, found %d", count)
	}
	if len(env.outbox.events) != 0 {
		t.Fatalf("expected no outbox events, got %d", len(env.outbox.events))
	}
}

func TestCreateOrderValidation(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID3", 1000, 10, 2)

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"missing name", CreateOrderInput{
			CustomerEmail: "a@example.com",
			PaymentMethod: enums.PaymentMethodCash,
			Lines:         []LineInput{{ProductID: widget.ID, Qty: 1}},
		}},
		{"missing email", CreateOrderInput{
			CustomerName:  "Ana",
			PaymentMethod: enums.PaymentMethodCash,
			Lines:         []LineInput{{ProductID: widget.ID, Qty: 1}},
		}},
		{"no lines", CreateOrderInput{
			CustomerName:  "Ana",
			CustomerEmail: "a@example.com",
			PaymentMethod: enums.PaymentMethodCash,
		}},
		{"bad payment method", CreateOrderInput{
			CustomerName:  "Ana",
			CustomerEmail: "a@example.com",
			PaymentMethod: enums.PaymentMethod("crypto"),
			Lines:         []LineInput{{ProductID: widget.ID, Qty: 1}},
		}},
		{"negative tax", CreateOrderInput{
			CustomerName:  "Ana",
			CustomerEmail: "a@example.com",
			PaymentMethod: enums.PaymentMethodCash,
			TaxCents:      -1,
			Lines:         []LineInput{{ProductID: widget.ID, Qty: 1}},
		}},
	}

	for _, tc := range cases {
		_, err := env.svc.Create(context.Background(), env.actor, tc.input)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestTransitionHappyPath(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID4", 1000, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 1}})

	ctx := context.Background()
	for _, target := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		updated, err := env.svc.Transition(ctx, env.actor, order.ID, target)
		if err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("expected %s, got %s", target, updated.Status)
		}
	}

	final, err := env.svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if final.ShippedAt == nil || final.DeliveredAt == nil {
		t.Fatal("expected shipped and delivered timestamps")
	}
	if final.CancelledAt != nil {
		t.Fatal("unexpected cancellation timestamp")
	}
	if env.outbox.countByType(enums.EventOrderStatus) != 4 {
		t.Fatalf("expected 4 status events, got %d", env.outbox.countByType(enums.EventOrderStatus))
	}

	// Stock stays decremented through the whole fulfilled path.
	assertOnHand(t, env.db, widget.ID, 9)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID5", 1000, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 1}})

	ctx := context.Background()
	for _, target := range []enums.OrderStatus{
		enums.OrderStatusPending, // same-status repeat
		enums.OrderStatusShipped, // skips confirmed/processing
		enums.OrderStatusDelivered,
	} {
		_, err := env.svc.Transition(ctx, env.actor, order.ID, target)
		if err == nil {
			t.Fatalf("expected rejection for %s", target)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("unexpected error for %s: %v", target, err)
		}
	}

	if _, err := env.svc.Transition(ctx, env.actor, order.ID, enums.OrderStatus("bogus")); err == nil {
		t.Fatal("expected rejection for unknown status")
	}
	if _, err := env.svc.Transition(ctx, env.actor, uuid.New(), enums.OrderStatusConfirmed); err == nil {
		t.Fatal("expected not found for unknown order")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCancelFromPendingReleasesStock(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID6", 1000, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 4}})
	assertOnHand(t, env.db, widget.ID, 6)

	updated, err := env.svc.Transition(context.Background(), env.actor, order.ID, enums.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if updated.CancelledAt == nil {
		t.Fatal("expected cancellation timestamp")
	}

	assertOnHand(t, env.db, widget.ID, 10)
	if env.outbox.countByType(enums.EventOrderCanceled) != 1 {
		t.Fatal("expected order.canceled event")
	}
}

// staleOrderRepo hands back a fixed order snapshot, standing in for a second
// writer whose read happened before another transaction changed the row.
type staleOrderRepo struct {
	Repository
	stale *models.Order
}

func (s *staleOrderRepo) WithTx(tx *gorm.DB) Repository {
	return &staleOrderRepo{Repository: s.Repository.WithTx(tx), stale: s.stale}
}

func (s *staleOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.stale != nil && s.stale.ID == orderID {
		return s.stale, nil
	}
	return s.Repository.FindByID(ctx, orderID)
}

func TestCancelWithStaleStatusDoesNotDoubleRelease(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID8", 1000, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 4}})
	assertOnHand(t, env.db, widget.ID, 6)

	ctx := context.Background()
	realRepo := NewRepository(env.db)
	stale, err := realRepo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}

	if _, err := env.svc.Transition(ctx, env.actor, order.ID, enums.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	assertOnHand(t, env.db, widget.ID, 10)

	staleSvc, err := NewService(
		&staleOrderRepo{Repository: realRepo, stale: stale},
		inventory.NewRepository(env.db),
		gormTxRunner{db: env.db},
		env.outbox,
	)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	// The second canceller still observes the pending snapshot; the guarded
	// status flip must reject it and roll back its stock release.
	_, err = staleSvc.Transition(ctx, env.actor, order.ID, enums.OrderStatusCancelled)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	assertOnHand(t, env.db, widget.ID, 10)

	err = staleSvc.Delete(ctx, env.actor, order.ID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on delete, got %v", err)
	}
	assertOnHand(t, env.db, widget.ID, 10)
}

func TestCancelAfterShipmentKeepsDecrement(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID7", 1000, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 4}})

	ctx := context.Background()
	for _, target := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
	} {
		if _, err := env.svc.Transition(ctx, env.actor, order.ID, target); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	if _, err := env.svc.Transition(ctx, env.actor, order.ID, enums.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The goods already shipped; cancelling does not restock them.
	assertOnHand(t, env.db, widget.ID, 6)
}

func TestUpdateRebalancesLines(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID8", 1000, 10, 2)
	gadget := seedCatalogProduct(t, env.db, "SVC-GAD8", 500, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 3}})
	assertOnHand(t, env.db, widget.ID, 7)

	newLines := []LineInput{{ProductID: gadget.ID, Qty: 2}}
	tax := 0
	updated, err := env.svc.Update(context.Background(), env.actor, order.ID, UpdateOrderInput{
		Lines:    &newLines,
		TaxCents: &tax,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.SubtotalCents != 1000 {
		t.Fatalf("expected subtotal 1000, got %d", updated.SubtotalCents)
	}
	if updated.TotalCents != 1200 { // shipping from creation still applies
		t.Fatalf("expected total 1200, got %d", updated.TotalCents)
	}
	if len(updated.Items) != 1 || updated.Items[0].SKU != "SVC-GAD8" {
		t.Fatalf("unexpected items %+v", updated.Items)
	}

	assertOnHand(t, env.db, widget.ID, 10)
	assertOnHand(t, env.db, gadget.ID, 8)
}

func TestUpdateRejectedOnceConfirmed(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WID9", 1000, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 1}})

	ctx := context.Background()
	if _, err := env.svc.Transition(ctx, env.actor, order.ID, enums.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	name := "Someone Else"
	_, err := env.svc.Update(ctx, env.actor, order.ID, UpdateOrderInput{CustomerName: &name})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "order not editable" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestDeletePendingReleasesStock(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WIDA", 1000, 10, 2)
	order := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 5}})
	assertOnHand(t, env.db, widget.ID, 5)

	if err := env.svc.Delete(context.Background(), env.actor, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	assertOnHand(t, env.db, widget.ID, 10)

	if _, err := env.svc.Get(context.Background(), order.ID); err == nil {
		t.Fatal("expected order to be gone")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}

	var lineCount int64
	if err := env.db.Model(&models.OrderLineItem{}).Where("order_id = ?", order.ID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected no orphan lines, found %d", lineCount)
	}
	if env.outbox.countByType(enums.EventOrderCanceled) != 1 {
		t.Fatal("expected order.canceled event")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	t.Parallel()

	env := newServiceTestEnv(t)
	widget := seedCatalogProduct(t, env.db, "SVC-WIDB", 1000, 100, 2)

	first := env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 1}})
	env.createOrder(t, []LineInput{{ProductID: widget.ID, Qty: 1}})

	ctx := context.Background()
	if _, err := env.svc.Transition(ctx, env.actor, first.ID, enums.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	status := enums.OrderStatusConfirmed
	list, err := env.svc.List(ctx, pagination.Params{Limit: 10}, OrderFilters{Status: &status})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Orders) != 1 {
		t.Fatalf("expected 1 confirmed order, got %d", len(list.Orders))
	}
	if list.Orders[0].ID != first.ID {
		t.Fatalf("unexpected order %s", list.Orders[0].ID)
	}
	if list.Orders[0].ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", list.Orders[0].ItemCount)
	}
}
