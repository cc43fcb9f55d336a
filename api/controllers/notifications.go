package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tanvirc/bazarly-backend/api/middleware"
	"github.com/tanvirc/bazarly-backend/api/responses"
	"github.com/tanvirc/bazarly-backend/api/validators"
	"github.com/tanvirc/bazarly-backend/internal/notifications"
	"github.com/tanvirc/bazarly-backend/pkg/enums"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
)

// ListNotifications returns the caller's notifications. Customers and
// riders share the handler; the identity in context decides the mailbox.
func ListNotifications(repo *notifications.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, recipientID, ok := recipientFromContext(r)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 200 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be between 1 and 200"))
				return
			}
			limit = parsed
		}

		rows, err := repo.ListForRecipient(r.Context(), kind, recipientID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]notificationResponse, 0, len(rows))
		for _, row := range rows {
			items = append(items, notificationResponse{
				ID:         row.ID,
				Type:       string(row.Type),
				Title:      row.Title,
				Message:    row.Message,
				DeliveryID: row.DeliveryID,
				ReadAt:     row.ReadAt,
				CreatedAt:  row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{"notifications": items})
	}
}

// MarkNotificationRead stamps one notification as read.
func MarkNotificationRead(repo *notifications.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, recipientID, ok := recipientFromContext(r)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		notificationID, err := validators.UUIDParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := repo.MarkRead(r.Context(), notificationID, recipientID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

func recipientFromContext(r *http.Request) (enums.RecipientKind, uuid.UUID, bool) {
	if id, ok := middleware.CustomerIDFromContext(r.Context()); ok {
		return enums.RecipientCustomer, id, true
	}
	if id, ok := middleware.RiderIDFromContext(r.Context()); ok {
		return enums.RecipientRider, id, true
	}
	return "", uuid.Nil, false
}

type notificationResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	DeliveryID *uuid.UUID `json:"delivery_id,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
