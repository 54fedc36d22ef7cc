package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/internal/inventory"
	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
)

// AssembledOrder is the priced, reserved, unsaved result of line assembly.
type AssembledOrder struct {
	Items         []models.OrderLineItem
	SubtotalCents int
}

// Assemble turns requested lines into priced line items, reserving stock for
// each line inside the caller's transaction. Lines are processed in request
// order; when any line fails, every reservation taken so far is released
// before the original error is returned.
func Assemble(ctx context.Context, tx *gorm.DB, repo Repository, lines []LineInput) (*AssembledOrder, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for order assembly")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}

	txRepo := repo.WithTx(tx)

	type reservation struct {
		productID uuid.UUID
		qty       int
	}

	reserved := make([]reservation, 0, len(lines))
	rollback := func() error {
		var rberr error
		for _, res := range reserved {
			if _, err := inventory.Release(ctx, tx, res.productID, res.qty); err != nil {
				rberr = multierr.Append(rberr, err)
			}
		}
		return rberr
	}

	items := make([]models.OrderLineItem, 0, len(lines))
	subtotal := 0
	for _, line := range lines {
		if line.Qty <= 0 {
			err := pkgerrors.New(pkgerrors.CodeValidation, "line qty must be positive")
			return nil, multierr.Append(err, rollback())
		}

		product, err := txRepo.FindProductByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": line.ProductID.String()})
			} else {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}
			return nil, multierr.Append(err, rollback())
		}

		if _, err := inventory.Reserve(ctx, tx, product.ID, line.Qty); err != nil {
			return nil, multierr.Append(err, rollback())
		}
		reserved = append(reserved, reservation{productID: product.ID, qty: line.Qty})

		lineTotal := product.PriceCents * line.Qty
		subtotal += lineTotal
		productID := product.ID
		items = append(items, models.OrderLineItem{
			ProductID:      &productID,
			Name:           product.Name,
			SKU:            product.SKU,
			Qty:            line.Qty,
			UnitPriceCents: product.PriceCents,
			TotalCents:     lineTotal,
		})
	}

	return &AssembledOrder{
		Items:         items,
		SubtotalCents: subtotal,
	}, nil
}
