package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tanvirc/bazarly-backend/api/middleware"
	"github.com/tanvirc/bazarly-backend/api/responses"
	"github.com/tanvirc/bazarly-backend/api/validators"
	"github.com/tanvirc/bazarly-backend/internal/orders"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
)

// BrowseDeliveries lists deliveries the rider can claim.
func BrowseDeliveries(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riderID, ok := middleware.RiderIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		deliveries, err := svc.BrowseClaimable(r.Context(), riderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]claimableDelivery, 0, len(deliveries))
		for _, delivery := range deliveries {
			items = append(items, claimableDelivery{
				ID:        delivery.ID,
				OrderID:   delivery.OrderID,
				ZoneID:    delivery.ZoneID,
				CreatedAt: delivery.CreatedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{"deliveries": items})
	}
}

// AcceptDelivery lets the rider claim a pending delivery.
func AcceptDelivery(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return riderDeliveryAction(svc, logg, func(r *http.Request, deliveryID, riderID uuid.UUID) (any, error) {
		order, err := svc.AcceptDelivery(r.Context(), deliveryID, riderID)
		if err != nil {
			return nil, err
		}
		return newOrderResponse(order), nil
	})
}

// ScheduleDelivery marks the delivery out for delivery with an ETA.
func ScheduleDelivery(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return riderDeliveryAction(svc, logg, func(r *http.Request, deliveryID, riderID uuid.UUID) (any, error) {
		order, err := svc.ScheduleDelivery(r.Context(), deliveryID, riderID)
		if err != nil {
			return nil, err
		}
		return newOrderResponse(order), nil
	})
}

// MarkArrival completes the delivery.
func MarkArrival(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return riderDeliveryAction(svc, logg, func(r *http.Request, deliveryID, riderID uuid.UUID) (any, error) {
		order, err := svc.MarkArrival(r.Context(), deliveryID, riderID)
		if err != nil {
			return nil, err
		}
		return newOrderResponse(order), nil
	})
}

// RiderCancelDelivery aborts a claimed delivery and starts return-to-base.
func RiderCancelDelivery(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riderID, ok := middleware.RiderIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		deliveryID, err := validators.UUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload riderCancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RiderCancel(r.Context(), deliveryID, riderID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func riderDeliveryAction(svc *orders.Service, logg *logger.Logger, action func(*http.Request, uuid.UUID, uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riderID, ok := middleware.RiderIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		deliveryID, err := validators.UUIDParam(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := action(r, deliveryID, riderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type riderCancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type claimableDelivery struct {
	ID        uuid.UUID  `json:"id"`
	OrderID   uuid.UUID  `json:"order_id"`
	ZoneID    *uuid.UUID `json:"zone_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
