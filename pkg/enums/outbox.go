package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateDelivery OutboxAggregateType = "delivery"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateDelivery,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced        OutboxEventType = "order_placed"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventOrderRestored      OutboxEventType = "order_restored"
	EventRiderAssigned      OutboxEventType = "rider_assigned"
	EventDeliveryScheduled  OutboxEventType = "delivery_scheduled"
	EventDeliveryArrived    OutboxEventType = "delivery_arrived"
	EventPaymentConfirmed   OutboxEventType = "payment_confirmed"
	EventStockRestored      OutboxEventType = "stock_restored"
	EventReturnToBase       OutboxEventType = "return_to_base"
	EventGoodsReturnNeeded  OutboxEventType = "goods_return_needed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderCancelled,
	EventOrderRestored,
	EventRiderAssigned,
	EventDeliveryScheduled,
	EventDeliveryArrived,
	EventPaymentConfirmed,
	EventStockRestored,
	EventReturnToBase,
	EventGoodsReturnNeeded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
