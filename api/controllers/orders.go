package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avilesluna/stockroom-backend/api/responses"
	"github.com/avilesluna/stockroom-backend/api/validators"
	"github.com/avilesluna/stockroom-backend/internal/orders"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
	"github.com/avilesluna/stockroom-backend/pkg/logger"
	"github.com/avilesluna/stockroom-backend/pkg/types"
)

type orderLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Qty       int    `json:"qty" validate:"required,min=1"`
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required"`
	CustomerEmail   string             `json:"customer_email" validate:"required,email"`
	CustomerPhone   *string            `json:"customer_phone,omitempty"`
	CustomerAddress *types.Address     `json:"customer_address,omitempty"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	Notes           *string            `json:"notes,omitempty"`
	TaxCents        int                `json:"tax_cents" validate:"min=0"`
	ShippingCents   int                `json:"shipping_cents" validate:"min=0"`
	Lines           []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (req createOrderRequest) toInput() (orders.CreateOrderInput, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if err != nil {
		return orders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}

	lines, err := parseOrderLines(req.Lines)
	if err != nil {
		return orders.CreateOrderInput{}, err
	}

	return orders.CreateOrderInput{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		PaymentMethod:   method,
		Notes:           req.Notes,
		TaxCents:        req.TaxCents,
		ShippingCents:   req.ShippingCents,
		Lines:           lines,
	}, nil
}

type updateOrderRequest struct {
	CustomerName    *string             `json:"customer_name,omitempty"`
	CustomerEmail   *string             `json:"customer_email,omitempty" validate:"omitempty,email"`
	CustomerPhone   *string             `json:"customer_phone,omitempty"`
	CustomerAddress *types.Address      `json:"customer_address,omitempty"`
	PaymentMethod   *string             `json:"payment_method,omitempty"`
	PaymentStatus   *string             `json:"payment_status,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	TaxCents        *int                `json:"tax_cents,omitempty" validate:"omitempty,min=0"`
	ShippingCents   *int                `json:"shipping_cents,omitempty" validate:"omitempty,min=0"`
	Lines           *[]orderLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

func (req updateOrderRequest) toInput() (orders.UpdateOrderInput, error) {
	input := orders.UpdateOrderInput{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		TaxCents:        req.TaxCents,
		ShippingCents:   req.ShippingCents,
	}

	if req.PaymentMethod != nil {
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(*req.PaymentMethod))
		if err != nil {
			return orders.UpdateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		input.PaymentMethod = &method
	}

	if req.PaymentStatus != nil {
		status, err := enums.ParsePaymentStatus(strings.TrimSpace(*req.PaymentStatus))
		if err != nil {
			return orders.UpdateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
		input.PaymentStatus = &status
	}

	if req.Lines != nil {
		lines, err := parseOrderLines(*req.Lines)
		if err != nil {
			return orders.UpdateOrderInput{}, err
		}
		input.Lines = &lines
	}

	return input, nil
}

type transitionOrderRequest struct {
	Status string `json:"status" validate:"required"`
}

func parseOrderLines(raw []orderLineRequest) ([]orders.LineInput, error) {
	lines := make([]orders.LineInput, 0, len(raw))
	for _, line := range raw {
		productID, err := uuid.Parse(strings.TrimSpace(line.ProductID))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id").WithDetails(map[string]any{"product_id": line.ProductID})
		}
		lines = append(lines, orders.LineInput{
			ProductID: productID,
			Qty:       line.Qty,
		})
	}
	return lines, nil
}

// OrderCreate assembles an order, reserving stock for every line.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), orders.Actor{UserID: userID, Role: role}, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// OrderDetail returns the full order including its line items.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := parsePathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// OrderList returns a cursor page of orders with optional filters.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := orders.OrderFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
				return
			}
			filters.PaymentStatus = &status
		}

		dateFrom, err := validators.ParseQueryTime(r, "date_from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.DateFrom = dateFrom

		dateTo, err := validators.ParseQueryTime(r, "date_to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.DateTo = dateTo

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// OrderTransition moves an order along its lifecycle.
func OrderTransition(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(strings.TrimSpace(body.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "invalid status"))
			return
		}

		dto, err := svc.Transition(r.Context(), orders.Actor{UserID: userID, Role: role}, orderID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// OrderUpdate edits a pending order, rebalancing stock when lines change.
func OrderUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), orders.Actor{UserID: userID, Role: role}, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// OrderDelete removes an order, releasing stock if it was never shipped.
func OrderDelete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parsePathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), orders.Actor{UserID: userID, Role: role}, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
