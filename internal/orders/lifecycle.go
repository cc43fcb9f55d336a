package orders

import (
	"fmt"

	"github.com/tanvirc/bazarly-backend/pkg/enums"
)

// Phase is the single lifecycle an order and its delivery move through
// together. The order row and the delivery row each store a projection of
// the phase; they are never updated independently, which is what keeps the
// two status columns from drifting apart.
type Phase string

const (
	PhasePlaced         Phase = "placed"
	PhaseAssigned       Phase = "assigned"
	PhaseOutForDelivery Phase = "out_for_delivery"
	PhaseDelivered      Phase = "delivered"
	PhaseCancelled      Phase = "cancelled"
	PhaseRestored       Phase = "restored"
)

// Project returns the status pair persisted for this phase.
func (p Phase) Project() (enums.OrderStatus, enums.DeliveryStatus) {
	switch p {
	case PhasePlaced:
		return enums.OrderStatusPending, enums.DeliveryStatusPending
	case PhaseAssigned:
		return enums.OrderStatusShipped, enums.DeliveryStatusAssigned
	case PhaseOutForDelivery:
		return enums.OrderStatusShipped, enums.DeliveryStatusOutForDelivery
	case PhaseDelivered:
		return enums.OrderStatusDelivered, enums.DeliveryStatusDelivered
	case PhaseCancelled:
		return enums.OrderStatusCancelled, enums.DeliveryStatusFailed
	case PhaseRestored:
		return enums.OrderStatusRestored, enums.DeliveryStatusFailed
	}
	return enums.OrderStatusPending, enums.DeliveryStatusPending
}

// PhaseOf recovers the phase from a persisted status pair.
func PhaseOf(orderStatus enums.OrderStatus, deliveryStatus enums.DeliveryStatus) (Phase, error) {
	for _, phase := range []Phase{
		PhasePlaced,
		PhaseAssigned,
		PhaseOutForDelivery,
		PhaseDelivered,
		PhaseCancelled,
		PhaseRestored,
	} {
		o, d := phase.Project()
		if o == orderStatus && d == deliveryStatus {
			return phase, nil
		}
	}
	return "", fmt.Errorf("no phase projects to (%s, %s)", orderStatus, deliveryStatus)
}

// A placed order cancelled before any rider claimed it jumps straight to
// restored: the goods never left the warehouse, so there is nothing for an
// admin to confirm.
var phaseTransitions = map[Phase][]Phase{
	PhasePlaced:         {PhaseAssigned, PhaseCancelled, PhaseRestored},
	PhaseAssigned:       {PhaseOutForDelivery, PhaseCancelled},
	PhaseOutForDelivery: {PhaseDelivered, PhaseCancelled},
	PhaseCancelled:      {PhaseRestored},
	PhaseDelivered:      {},
	PhaseRestored:       {},
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
// Actor-specific rules (who may cancel when) sit on top of this in the
// service; this is the floor no caller can go below.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, candidate := range phaseTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition exists.
func (p Phase) Terminal() bool {
	return len(phaseTransitions[p]) == 0
}
