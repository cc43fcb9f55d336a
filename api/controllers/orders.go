package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tanvirc/bazarly-backend/api/middleware"
	"github.com/tanvirc/bazarly-backend/api/responses"
	"github.com/tanvirc/bazarly-backend/api/validators"
	"github.com/tanvirc/bazarly-backend/internal/orders"
	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
	"github.com/tanvirc/bazarly-backend/pkg/types"
)

// PlaceOrder handles checkout of an active cart.
func PlaceOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := middleware.CustomerIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), orders.PlaceOrderInput{
			CustomerID:  customerID,
			CartID:      payload.CartID,
			ZoneID:      payload.ZoneID,
			CouponCode:  payload.CouponCode,
			PointsToUse: payload.PointsToUse,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// GetOrder returns one of the customer's orders.
func GetOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := middleware.CustomerIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// CancelOrder handles customer-initiated cancellation.
func CancelOrder(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := middleware.CustomerIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CustomerCancel(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ConfirmPayment records cash collection at handover.
func ConfirmPayment(svc *orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := middleware.CustomerIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type placeOrderRequest struct {
	CartID      uuid.UUID  `json:"cart_id" validate:"required,uuid4"`
	ZoneID      *uuid.UUID `json:"zone_id,omitempty" validate:"omitempty,uuid4"`
	CouponCode  string     `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
	PointsToUse int        `json:"points_to_use,omitempty" validate:"omitempty,min=0"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	Status        string              `json:"status"`
	PaymentStatus bool                `json:"payment_status"`
	PaymentDate   *time.Time          `json:"payment_date,omitempty"`
	Subtotal      string              `json:"subtotal"`
	Vat           string              `json:"vat"`
	DeliveryFee   string              `json:"delivery_fee"`
	Discount      string              `json:"discount"`
	PointsUsed    int                 `json:"points_used"`
	PointsValue   string              `json:"points_value"`
	Total         string              `json:"total"`
	PointsEarned  int                 `json:"points_earned"`
	Items         []orderItemResponse `json:"items"`
	Delivery      *deliveryResponse   `json:"delivery,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Qty       int       `json:"qty"`
	UnitPrice string    `json:"unit_price"`
	Total     string    `json:"total"`
}

type deliveryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	ZoneID      *uuid.UUID `json:"zone_id,omitempty"`
	EstimatedAt *time.Time `json:"estimated_at,omitempty"`
	RiderID     *uuid.UUID `json:"rider_id,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		Status:        order.Status.String(),
		PaymentStatus: order.PaymentStatus,
		PaymentDate:   order.PaymentDate,
		Subtotal:      types.FormatCents(order.SubtotalCents),
		Vat:           types.FormatCents(order.VatCents),
		DeliveryFee:   types.FormatCents(order.DeliveryFeeCents),
		Discount:      types.FormatCents(order.DiscountCents),
		PointsUsed:    order.PointsUsed,
		PointsValue:   types.FormatCents(order.PointsValueCents),
		Total:         types.FormatCents(order.TotalCents),
		PointsEarned:  order.PointsEarned,
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Qty:       item.Qty,
			UnitPrice: types.FormatCents(item.UnitPriceCents),
			Total:     types.FormatCents(item.TotalCents),
		})
	}
	if order.Delivery != nil {
		resp.Delivery = newDeliveryResponse(order.Delivery)
	}
	return resp
}

func newDeliveryResponse(delivery *models.Delivery) *deliveryResponse {
	resp := &deliveryResponse{
		ID:          delivery.ID,
		Status:      delivery.Status.String(),
		ZoneID:      delivery.ZoneID,
		EstimatedAt: delivery.EstimatedAt,
	}
	if delivery.Assignment != nil {
		resp.RiderID = &delivery.Assignment.RiderID
	}
	return resp
}
