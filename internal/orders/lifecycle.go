package orders

import (
	"github.com/avilesluna/stockroom-backend/pkg/enums"
)

// allowedTransitions is the closed set of legal status moves. Anything not
// listed here is rejected, including moves out of terminal states.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:  {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusCancelled},
}

// CanTransition reports whether the move from one status to another is legal.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// releasesStockOnCancel reports whether cancelling from the given status
// must return reserved stock. Orders that already shipped keep their
// decrement; the goods left the building.
func releasesStockOnCancel(from enums.OrderStatus) bool {
	return from == enums.OrderStatusPending || from == enums.OrderStatusConfirmed
}

// isEditable reports whether full order edits are still allowed.
func isEditable(status enums.OrderStatus) bool {
	return status == enums.OrderStatusPending
}
