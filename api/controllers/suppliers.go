package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/avilesluna/stockroom-backend/api/responses"
	"github.com/avilesluna/stockroom-backend/api/validators"
	supplier "github.com/avilesluna/stockroom-backend/internal/suppliers"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
	"github.com/avilesluna/stockroom-backend/pkg/logger"
	"github.com/avilesluna/stockroom-backend/pkg/types"
)

type createSupplierRequest struct {
	Code          string           `json:"code" validate:"required"`
	Name          string           `json:"name" validate:"required"`
	ContactPerson *string          `json:"contact_person,omitempty"`
	Email         *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string          `json:"phone,omitempty"`
	Address       *types.Address   `json:"address,omitempty"`
	CreditLimit   *decimal.Decimal `json:"credit_limit,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type updateSupplierRequest struct {
	Code          *string          `json:"code,omitempty"`
	Name          *string          `json:"name,omitempty"`
	ContactPerson *string          `json:"contact_person,omitempty"`
	Email         *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string          `json:"phone,omitempty"`
	Address       *types.Address   `json:"address,omitempty"`
	CreditLimit   *decimal.Decimal `json:"credit_limit,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type adjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// SupplierCreate registers a supplier.
func SupplierCreate(svc supplier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createSupplierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := supplier.CreateSupplierInput{
			Code:          strings.TrimSpace(body.Code),
			Name:          strings.TrimSpace(body.Name),
			ContactPerson: body.ContactPerson,
			Email:         body.Email,
			Phone:         body.Phone,
			Address:       body.Address,
			IsActive:      body.IsActive,
		}
		if body.CreditLimit != nil {
			input.CreditLimit = *body.CreditLimit
		}

		dto, err := svc.Create(r.Context(), supplier.Actor{UserID: userID, Role: role}, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// SupplierDetail returns one supplier.
func SupplierDetail(svc supplier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}

		supplierID, err := parsePathUUID(r, "supplierID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// SupplierList returns a cursor page of suppliers.
func SupplierList(svc supplier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isActive, err := validators.ParseQueryBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := supplier.SupplierFilters{
			IsActive: isActive,
			Query:    validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// SupplierUpdate applies a partial update to one supplier.
func SupplierUpdate(svc supplier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplierID, err := parsePathUUID(r, "supplierID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateSupplierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := supplier.UpdateSupplierInput{
			Code:          body.Code,
			Name:          body.Name,
			ContactPerson: body.ContactPerson,
			Email:         body.Email,
			Phone:         body.Phone,
			Address:       body.Address,
			CreditLimit:   body.CreditLimit,
			IsActive:      body.IsActive,
		}

		dto, err := svc.Update(r.Context(), supplier.Actor{UserID: userID, Role: role}, supplierID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// SupplierDelete removes a supplier.
func SupplierDelete(svc supplier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplierID, err := parsePathUUID(r, "supplierID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), supplier.Actor{UserID: userID, Role: role}, supplierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// SupplierAdjustBalance moves the supplier balance by a signed amount, bounded
// by the credit limit.
func SupplierAdjustBalance(svc supplier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier service unavailable"))
			return
		}

		userID, role, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplierID, err := parsePathUUID(r, "supplierID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustBalanceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.AdjustBalance(r.Context(), supplier.Actor{UserID: userID, Role: role}, supplierID, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}
