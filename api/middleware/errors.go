package middleware

import (
	"context"
	"net/http"

	"github.com/tanvirc/bazarly-backend/api/responses"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
)

func writeMiddlewareError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	responses.WriteError(ctx, logg, w, err)
}
