package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	pkgerrors "github.com/avilesluna/stockroom-backend/pkg/errors"
)

// NextOrderNumber allocates the next daily order number inside the caller's
// transaction. The counter row is bumped with a single atomic upsert, so two
// concurrent orders can never observe the same sequence value.
func NextOrderNumber(ctx context.Context, tx *gorm.DB, forDate time.Time) (string, error) {
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "transaction required for order numbering")
	}

	day := forDate.UTC().Format("20060102")

	var row struct{ LastSeq int }
	res := tx.WithContext(ctx).Raw(`
		INSERT INTO order_counters (day, last_seq) VALUES (?, 1)
		ON CONFLICT (day) DO UPDATE SET last_seq = order_counters.last_seq + 1
		RETURNING last_seq
	`, day).Scan(&row)
	if res.Error != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "advance order counter")
	}
	if res.RowsAffected == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "order counter upsert returned no row")
	}

	return fmt.Sprintf("ORD-%s-%03d", day, row.LastSeq), nil
}
