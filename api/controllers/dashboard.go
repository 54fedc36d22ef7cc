package controllers

import (
	"net/http"
	"time"

	"github.com/avilesluna/stockroom-backend/api/responses"
	"github.com/avilesluna/stockroom-backend/api/validators"
	"github.com/avilesluna/stockroom-backend/internal/dashboard"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
	"github.com/avilesluna/stockroom-backend/pkg/logger"
)

// DashboardSummary returns order, stock, and valuation aggregates.
func DashboardSummary(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// DashboardRevenue returns delivered-and-paid revenue over a date range,
// defaulting to the trailing 30 days.
func DashboardRevenue(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		now := time.Now().UTC()
		if to == nil {
			to = &now
		}
		if from == nil {
			start := to.AddDate(0, 0, -30)
			from = &start
		}

		summary, err := svc.Revenue(r.Context(), *from, *to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
