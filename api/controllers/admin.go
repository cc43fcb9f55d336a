package controllers

import (
	"net/http"

	"github.com/tanvirc/bazarly-backend/api/middleware"
	"github.com/tanvirc/bazarly-backend/api/responses"
	"github.com/tanvirc/bazarly-backend/api/validators"
	"github.com/tanvirc/bazarly-backend/internal/orders"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
)

// ListRestorableOrders returns cancelled orders still holding stock.
func ListRestorableOrders(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.AdminIDFromContext(r.Context()); !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		rows, err := svc.ListNeedsRestoration(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(rows))
		for i := range rows {
			items = append(items, newOrderResponse(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": items})
	}
}

// RestoreOrderStock puts returned goods back on the shelf.
func RestoreOrderStock(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := middleware.AdminIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RestoreStock(r.Context(), orderID, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
