package orders

import (
	"github.com/google/uuid"
)

// EventPayload is the Data member carried inside the outbox envelope for
// every order and delivery event. The relay only needs recipients and
// display fields, so one shape covers all event types; absent members are
// omitted from the JSON.
type EventPayload struct {
	OrderID    uuid.UUID  `json:"orderId"`
	CustomerID uuid.UUID  `json:"customerId"`
	DeliveryID *uuid.UUID `json:"deliveryId,omitempty"`
	RiderID    *uuid.UUID `json:"riderId,omitempty"`
	TotalCents int        `json:"totalCents,omitempty"`
	Status     string     `json:"status,omitempty"`
	Message    string     `json:"message,omitempty"`
}
