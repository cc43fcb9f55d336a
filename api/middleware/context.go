package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
)

// Authentication lives at the gateway; it injects the verified actor id as a
// header before the request reaches this service. The identity middleware
// lifts those headers into the context, and each route group requires the
// actor kind it serves.
const (
	customerIDHeader = "X-Customer-Id"
	riderIDHeader    = "X-Rider-Id"
	adminIDHeader    = "X-Admin-Id"
)

type contextKey string

const (
	customerIDKey contextKey = "customerID"
	riderIDKey    contextKey = "riderID"
	adminIDKey    contextKey = "adminID"
)

// Identity parses actor headers into the request context. Malformed ids are
// rejected up front so handlers only ever see valid UUIDs.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, actor := range []struct {
				header string
				key    contextKey
				withID func(context.Context, string) context.Context
			}{
				{customerIDHeader, customerIDKey, logCustomerID(logg)},
				{riderIDHeader, riderIDKey, logRiderID(logg)},
				{adminIDHeader, adminIDKey, nil},
			} {
				raw := r.Header.Get(actor.header)
				if raw == "" {
					continue
				}
				id, err := uuid.Parse(raw)
				if err != nil {
					writeIdentityError(ctx, logg, w, actor.header)
					return
				}
				ctx = context.WithValue(ctx, actor.key, id)
				if actor.withID != nil {
					ctx = actor.withID(ctx, id.String())
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logCustomerID(logg *logger.Logger) func(context.Context, string) context.Context {
	if logg == nil {
		return nil
	}
	return logg.WithCustomerID
}

func logRiderID(logg *logger.Logger) func(context.Context, string) context.Context {
	if logg == nil {
		return nil
	}
	return logg.WithRiderID
}

func writeIdentityError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, header string) {
	err := pkgerrors.New(pkgerrors.CodeUnauthorized, header+" is not a valid uuid")
	writeMiddlewareError(ctx, logg, w, err)
}

// CustomerIDFromContext returns the authenticated customer, if any.
func CustomerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(customerIDKey).(uuid.UUID)
	return id, ok
}

// RiderIDFromContext returns the authenticated rider, if any.
func RiderIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(riderIDKey).(uuid.UUID)
	return id, ok
}

// AdminIDFromContext returns the authenticated admin, if any.
func AdminIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(adminIDKey).(uuid.UUID)
	return id, ok
}

// RequireCustomer rejects requests without a customer identity.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireActor(logg, func(ctx context.Context) bool {
		_, ok := CustomerIDFromContext(ctx)
		return ok
	})
}

// RequireRider rejects requests without a rider identity.
func RequireRider(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireActor(logg, func(ctx context.Context) bool {
		_, ok := RiderIDFromContext(ctx)
		return ok
	})
}

// RequireAdmin rejects requests without an admin identity.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireActor(logg, func(ctx context.Context) bool {
		_, ok := AdminIDFromContext(ctx)
		return ok
	})
}

func requireActor(logg *logger.Logger, present func(context.Context) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !present(r.Context()) {
				writeMiddlewareError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
