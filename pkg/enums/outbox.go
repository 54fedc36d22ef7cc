package enums

// OutboxEventType identifies the kind of domain event queued in the outbox.
type OutboxEventType string

const (
	EventOrderCreated  OutboxEventType = "order.created"
	EventOrderCanceled OutboxEventType = "order.canceled"
	EventOrderStatus   OutboxEventType = "order.status_changed"
	EventStockLow      OutboxEventType = "stock.low"
	EventStockAdjusted OutboxEventType = "stock.adjusted"
)

// OutboxAggregateType identifies the aggregate the event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
)
