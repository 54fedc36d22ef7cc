package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avilesluna/stockroom-backend/api/middleware"
	"github.com/avilesluna/stockroom-backend/internal/orders"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	"github.com/avilesluna/stockroom-backend/pkg/pagination"
)

type stubOrderService struct {
	transitioned *enums.OrderStatus
	actor        orders.Actor
}

func (s *stubOrderService) Create(_ context.Context, _ orders.Actor, _ orders.CreateOrderInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (s *stubOrderService) Get(_ context.Context, _ uuid.UUID) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (s *stubOrderService) List(_ context.Context, _ pagination.Params, _ orders.OrderFilters) (*orders.OrderList, error) {
	panic("unimplemented")
}

func (s *stubOrderService) Transition(_ context.Context, actor orders.Actor, _ uuid.UUID, target enums.OrderStatus) (*orders.OrderDTO, error) {
	s.transitioned = &target
	s.actor = actor
	return &orders.OrderDTO{Status: target}, nil
}

func (s *stubOrderService) Update(_ context.Context, _ orders.Actor, _ uuid.UUID, _ orders.UpdateOrderInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (s *stubOrderService) Delete(_ context.Context, _ orders.Actor, _ uuid.UUID) error {
	panic("unimplemented")
}

func actorContext(ctx context.Context, userID uuid.UUID, role enums.UserRole) context.Context {
	ctx = middleware.WithUserID(ctx, userID.String())
	return middleware.WithRole(ctx, role.String())
}

func withRouteParam(ctx context.Context, key, value string) context.Context {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func TestOrderTransitionRequiresActor(t *testing.T) {
	orderID := uuid.New()
	ctx := withRouteParam(context.Background(), "orderID", orderID.String())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"confirmed"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	OrderTransition(&stubOrderService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without actor, got %d", rec.Code)
	}
}

func TestOrderTransitionRejectsInvalidOrderID(t *testing.T) {
	ctx := actorContext(context.Background(), uuid.New(), enums.UserRoleStaff)
	ctx = withRouteParam(ctx, "orderID", "not-a-uuid")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/not-a-uuid/status", strings.NewReader(`{"status":"confirmed"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	OrderTransition(&stubOrderService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad order id, got %d", rec.Code)
	}
}

func TestOrderTransitionRejectsUnknownStatus(t *testing.T) {
	orderID := uuid.New()
	ctx := actorContext(context.Background(), uuid.New(), enums.UserRoleStaff)
	ctx = withRouteParam(ctx, "orderID", orderID.String())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"teleported"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	stub := &stubOrderService{}
	OrderTransition(stub, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown status, got %d", rec.Code)
	}
	if stub.transitioned != nil {
		t.Fatal("service should not be called for unknown status")
	}
}

func TestOrderTransitionPassesActorAndTarget(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()
	ctx := actorContext(context.Background(), userID, enums.UserRoleManager)
	ctx = withRouteParam(ctx, "orderID", orderID.String())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/status", strings.NewReader(`{"status":"shipped"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	stub := &stubOrderService{}
	OrderTransition(stub, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.transitioned == nil || *stub.transitioned != enums.OrderStatusShipped {
		t.Fatalf("expected shipped target, got %v", stub.transitioned)
	}
	if stub.actor.UserID != userID {
		t.Fatalf("expected actor %s, got %s", userID, stub.actor.UserID)
	}
	if stub.actor.Role != enums.UserRoleManager {
		t.Fatalf("expected manager role, got %s", stub.actor.Role)
	}
}

func TestOrderCreateRejectsEmptyLines(t *testing.T) {
	ctx := actorContext(context.Background(), uuid.New(), enums.UserRoleStaff)

	body := `{"customer_name":"Val","customer_email":"val@example.com","payment_method":"card","lines":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	OrderCreate(&stubOrderService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty lines, got %d", rec.Code)
	}
}
