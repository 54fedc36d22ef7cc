package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avilesluna/stockroom-backend/api/responses"
	"github.com/avilesluna/stockroom-backend/api/validators"
	product "github.com/avilesluna/stockroom-backend/internal/products"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
	"github.com/avilesluna/stockroom-backend/pkg/logger"
)

type createProductRequest struct {
	SKU               string   `json:"sku" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	Description       *string  `json:"description,omitempty"`
	Category          string   `json:"category" validate:"required"`
	Tags              []string `json:"tags,omitempty"`
	PriceCents        int      `json:"price_cents" validate:"min=0"`
	CostCents         int      `json:"cost_cents" validate:"min=0"`
	SupplierID        *string  `json:"supplier_id,omitempty"`
	IsActive          *bool    `json:"is_active,omitempty"`
	InitialQty        int      `json:"initial_qty" validate:"min=0"`
	LowStockThreshold *int     `json:"low_stock_threshold,omitempty" validate:"omitempty,min=0"`
}

func (req createProductRequest) toInput() (product.CreateProductInput, error) {
	category, err := enums.ParseProductCategory(strings.TrimSpace(req.Category))
	if err != nil {
		return product.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}

	supplierID, err := parseOptionalUUID(req.SupplierID, "supplier_id")
	if err != nil {
		return product.CreateProductInput{}, err
	}

	return product.CreateProductInput{
		SKU:               strings.TrimSpace(req.SKU),
		Name:              strings.TrimSpace(req.Name),
		Descr:             req.Description,
		Category:          category,
		Tags:              req.Tags,
		PriceCents:        req.PriceCents,
		CostCents:         req.CostCents,
		SupplierID:        supplierID,
		IsActive:          req.IsActive,
		InitialQty:        req.InitialQty,
		LowStockThreshold: req.LowStockThreshold,
	}, nil
}

type updateProductRequest struct {
	SKU               *string   `json:"sku,omitempty"`
	Name              *string   `json:"name,omitempty"`
	Description       *string   `json:"description,omitempty"`
	Category          *string   `json:"category,omitempty"`
	Tags              *[]string `json:"tags,omitempty"`
	PriceCents        *int      `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	CostCents         *int      `json:"cost_cents,omitempty" validate:"omitempty,min=0"`
	SupplierID        *string   `json:"supplier_id,omitempty"`
	IsActive          *bool     `json:"is_active,omitempty"`
	LowStockThreshold *int      `json:"low_stock_threshold,omitempty" validate:"omitempty,min=0"`
}

func (req updateProductRequest) toInput() (product.UpdateProductInput, error) {
	input := product.UpdateProductInput{
		SKU:               req.SKU,
		Name:              req.Name,
		Descr:             req.Description,
		Tags:              req.Tags,
		PriceCents:        req.PriceCents,
		CostCents:         req.CostCents,
		IsActive:          req.IsActive,
		LowStockThreshold: req.LowStockThreshold,
	}

	if req.Category != nil {
		category, err := enums.ParseProductCategory(strings.TrimSpace(*req.Category))
		if err != nil {
			return product.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}

	supplierID, err := parseOptionalUUID(req.SupplierID, "supplier_id")
	if err != nil {
		return product.UpdateProductInput{}, err
	}
	input.SupplierID = supplierID

	return input, nil
}

type adjustStockRequest struct {
	Operation string `json:"operation" validate:"required"`
	Qty       int    `json:"qty" validate:"required,min=1"`
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": field})
	}
	return &id, nil
}

// ProductCreate handles product creation including the initial stock row.
func ProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), product.Actor{UserID: userID, Role: role}, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ProductDetail returns one product with its inventory state.
func ProductDetail(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ProductList returns a cursor page of products with optional filters.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := product.ProductFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filters.Category = &category
		}

		isActive, err := validators.ParseQueryBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.IsActive = isActive

		supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters.SupplierID = supplierID

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// ProductUpdate applies a partial update to one product.
func ProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := parsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Update(r.Context(), product.Actor{UserID: userID, Role: role}, productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ProductDelete removes a product once no open orders reference it.
func ProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := parsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), product.Actor{UserID: userID, Role: role}, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ProductAdjustStock applies a manual add or subtract to on-hand stock.
func ProductAdjustStock(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := parsePathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		op, err := enums.ParseStockAdjustmentOp(strings.TrimSpace(body.Operation))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operation"))
			return
		}

		dto, err := svc.AdjustStock(r.Context(), product.Actor{UserID: userID, Role: role}, productID, product.AdjustStockInput{
			Op:  op,
			Qty: body.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ProductLowStock lists items at or below their low stock threshold.
func ProductLowStock(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.LowStock(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}
