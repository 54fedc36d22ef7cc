package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilesluna/stockroom-backend/pkg/db/models"
	"github.com/avilesluna/stockroom-backend/pkg/enums"
	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
)

// Reserve decrements on-hand stock for a product inside the caller's
// transaction and returns the remaining balance. The decrement is a single
// conditional update so concurrent reservations can never drive the count
// below zero.
func Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "reservation qty must be positive")
	}

	var row struct{ OnHandQty int }
	res := tx.WithContext(ctx).Raw(`
		UPDATE inventory_items
		SET on_hand_qty = on_hand_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND on_hand_qty >= ?
		RETURNING on_hand_qty
	`, qty, productID, qty).Scan(&row)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected > 0 {
		return row.OnHandQty, nil
	}

	// The guarded update did not match: either the row is missing or the
	// remaining stock is short. Read it back to tell the two apart.
	var item models.InventoryItem
	err := tx.WithContext(ctx).First(&item, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product has no inventory record")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory after failed reserve")
	}
	return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id":    productID.String(),
			"requested_qty": qty,
			"on_hand_qty":   item.OnHandQty,
		})
}

// Release returns previously reserved stock inside the caller's transaction
// and reports the resulting balance. There is no upper bound on releases.
func Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "release qty must be positive")
	}

	var row struct{ OnHandQty int }
	res := tx.WithContext(ctx).Raw(`
		UPDATE inventory_items
		SET on_hand_qty = on_hand_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ?
		RETURNING on_hand_qty
	`, qty, productID).Scan(&row)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product has no inventory record")
	}
	return row.OnHandQty, nil
}

// Adjust applies a manual add/subtract correction and returns the resulting
// on-hand count. Subtractions use the same conditional guard as reservations.
func Adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, op enums.StockAdjustmentOp, qty int) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock adjustment")
	}
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "adjustment qty must be positive")
	}

	switch op {
	case enums.StockAdjustmentAdd:
		return Release(ctx, tx, productID, qty)
	case enums.StockAdjustmentSubtract:
		return Reserve(ctx, tx, productID, qty)
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "operation must be add or subtract")
	}
}
