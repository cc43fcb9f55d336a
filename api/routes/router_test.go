package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tanvirc/bazarly-backend/internal/audit"
	"github.com/tanvirc/bazarly-backend/internal/carts"
	"github.com/tanvirc/bazarly-backend/internal/coupons"
	"github.com/tanvirc/bazarly-backend/internal/inventory"
	"github.com/tanvirc/bazarly-backend/internal/loyalty"
	"github.com/tanvirc/bazarly-backend/internal/notifications"
	"github.com/tanvirc/bazarly-backend/internal/orders"
	"github.com/tanvirc/bazarly-backend/internal/pricing"
	"github.com/tanvirc/bazarly-backend/internal/riders"
	"github.com/tanvirc/bazarly-backend/pkg/config"
	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	"github.com/tanvirc/bazarly-backend/pkg/outbox"
)

type txRunner struct {
	db *gorm.DB
}

func (r txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type routerEnv struct {
	db      *gorm.DB
	handler http.Handler
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Customer{},
		&models.Product{},
		&models.Zone{},
		&models.Coupon{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Delivery{},
		&models.DeliveryAssignment{},
		&models.Rider{},
		&models.AuditLog{},
		&models.OutboxEvent{},
		&models.Notification{},
	))

	pricer, err := pricing.NewEngine(coupons.NewRepository(db))
	require.NoError(t, err)
	riderSvc, err := riders.NewService(riders.NewRepository(db), nil)
	require.NoError(t, err)
	ordersSvc, err := orders.NewService(
		txRunner{db: db},
		orders.NewRepository(db),
		carts.NewRepository(db),
		pricer,
		inventory.NewLedger(),
		loyalty.NewLedger(),
		riderSvc,
		outbox.NewService(outbox.NewRepository(db), nil),
		audit.NewRepository(),
		nil,
		orders.Config{ETAMin: 15 * time.Minute, ETAMax: 45 * time.Minute},
	)
	require.NoError(t, err)

	handler := NewRouter(Dependencies{
		Config:        &config.Config{App: config.AppConfig{Env: "dev"}},
		Orders:        ordersSvc,
		Notifications: notifications.NewRepository(db),
	})
	return &routerEnv{db: db, handler: handler}
}

func (e *routerEnv) seedCheckout(t *testing.T) (models.Customer, models.Cart) {
	t.Helper()
	customer := models.Customer{Name: "Nusrat", Phone: "01555555555"}
	require.NoError(t, e.db.Create(&customer).Error)
	product := models.Product{Name: "lentils 1kg", PriceCents: 100000, Stock: 10}
	require.NoError(t, e.db.Create(&product).Error)
	cart := models.Cart{
		CustomerID: customer.ID,
		Active:     true,
		Items: []models.CartItem{
			{ProductID: product.ID, Qty: 1, UnitPriceCents: product.PriceCents},
		},
	}
	require.NoError(t, e.db.Create(&cart).Error)
	return customer, cart
}

func (e *routerEnv) do(t *testing.T, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func TestHealthLive(t *testing.T) {
	env := newRouterEnv(t)
	w := env.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dev", w.Header().Get("X-Bazarly-Env"))
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	env := newRouterEnv(t)
	customer, cart := env.seedCheckout(t)

	w := env.do(t, http.MethodPost, "/api/v1/orders",
		map[string]string{"X-Customer-Id": customer.ID.String()},
		map[string]any{"cart_id": cart.ID},
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Data struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
			Total  string    `json:"total"`
			Vat    string    `json:"vat"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "pending", envelope.Data.Status)
	assert.Equal(t, "1220.00", envelope.Data.Total)
	assert.Equal(t, "150.00", envelope.Data.Vat)

	// Cancel it through the API as well.
	w = env.do(t, http.MethodPost, "/api/v1/orders/"+envelope.Data.ID.String()+"/cancel",
		map[string]string{"X-Customer-Id": customer.ID.String()}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPlaceOrderRequiresCustomerIdentity(t *testing.T) {
	env := newRouterEnv(t)
	_, cart := env.seedCheckout(t)

	w := env.do(t, http.MethodPost, "/api/v1/orders", nil, map[string]any{"cart_id": cart.ID})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrderRejectsMalformedIdentity(t *testing.T) {
	env := newRouterEnv(t)
	_, cart := env.seedCheckout(t)

	w := env.do(t, http.MethodPost, "/api/v1/orders",
		map[string]string{"X-Customer-Id": "not-a-uuid"},
		map[string]any{"cart_id": cart.ID},
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlaceOrderValidatesBody(t *testing.T) {
	env := newRouterEnv(t)
	customer, _ := env.seedCheckout(t)

	w := env.do(t, http.MethodPost, "/api/v1/orders",
		map[string]string{"X-Customer-Id": customer.ID.String()},
		map[string]any{},
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRiderRoutesRequireRiderIdentity(t *testing.T) {
	env := newRouterEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/rider/deliveries/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRestorableEmpty(t *testing.T) {
	env := newRouterEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/admin/orders/restorable",
		map[string]string{"X-Admin-Id": uuid.NewString()}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Orders []any `json:"orders"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data.Orders)
}
