package orders

import (
	"context"
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
	"github.com/tanvirc/bazarly-backend/internal/pricing"
	"github.com/tanvirc/bazarly-backend/internal/riders"
	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	"github.com/tanvirc/bazarly-backend/pkg/enums"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/outbox"
)

type testRunner struct {
	db *gorm.DB
}

func (r testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type testEnv struct {
	db  *gorm.DB
	svc *Service
}

func newTestEnv(t *testing.T) *testEnv {
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
	))

	pricer, err := pricing.NewEngine(coupons.NewRepository(db))
	require.NoError(t, err)
	riderSvc, err := riders.NewService(riders.NewRepository(db), nil)
	require.NoError(t, err)

	svc, err := NewService(
		testRunner{db: db},
		NewRepository(db),
		carts.NewRepository(db),
		pricer,
		inventory.NewLedger(),
		loyalty.NewLedger(),
		riderSvc,
		outbox.NewService(outbox.NewRepository(db), nil),
		audit.NewRepository(),
		nil,
		Config{ETAMin: 15 * time.Minute, ETAMax: 45 * time.Minute},
	)
	require.NoError(t, err)
	return &testEnv{db: db, svc: svc}
}

func (e *testEnv) seedCustomer(t *testing.T, earned int) models.Customer {
	t.Helper()
	customer := models.Customer{Name: "Salma", Phone: "01933333333", PointsEarned: earned}
	require.NoError(t, e.db.Create(&customer).Error)
	return customer
}

func (e *testEnv) seedProduct(t *testing.T, priceCents, stock int) models.Product {
	t.Helper()
	product := models.Product{Name: "rice 5kg", PriceCents: priceCents, Stock: stock}
	require.NoError(t, e.db.Create(&product).Error)
	return product
}

func (e *testEnv) seedCart(t *testing.T, customerID uuid.UUID, items ...models.CartItem) models.Cart {
	t.Helper()
	cart := models.Cart{CustomerID: customerID, Active: true, Items: items}
	require.NoError(t, e.db.Create(&cart).Error)
	return cart
}

func (e *testEnv) seedRider(t *testing.T) models.Rider {
	t.Helper()
	rider := models.Rider{Name: "Jashim", Phone: "01644444444", Available: true}
	require.NoError(t, e.db.Create(&rider).Error)
	return rider
}

func (e *testEnv) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, e.db.First(&product, "id = ?", productID).Error)
	return product.Stock
}

func (e *testEnv) customerOf(t *testing.T, customerID uuid.UUID) *models.Customer {
	t.Helper()
	var customer models.Customer
	require.NoError(t, e.db.First(&customer, "id = ?", customerID).Error)
	return &customer
}

func (e *testEnv) outboxTypes(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, e.db.Order("created_at ASC").Find(&rows).Error)
	types := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		types = append(types, row.EventType)
	}
	return types
}

func TestPlaceOrderHappyPath(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, 0)
	product := env.seedProduct(t, 100000, 10)
	cart := env.seedCart(t, customer.ID, models.CartItem{
		ProductID: product.ID, Qty: 1, UnitPriceCents: product.PriceCents,
	})

	order, err := env.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: customer.ID,
		CartID:     cart.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 100000, order.SubtotalCents)
	assert.Equal(t, 15000, order.VatCents)
	assert.Equal(t, 7000, order.DeliveryFeeCents)
	assert.Equal(t, 122000, order.TotalCents)
	assert.Equal(t, 12, order.PointsEarned)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.NotNil(t, order.Delivery)
	assert.Equal(t, enums.DeliveryStatusPending, order.Delivery.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "rice 5kg", order.Items[0].Name)

	assert.Equal(t, 9, env.stockOf(t, product.ID))
	assert.Equal(t, 12, env.customerOf(t, customer.ID).AvailablePoints())

	var gotCart models.Cart
	require.NoError(t, env.db.First(&gotCart, "id = ?", cart.ID).Error)
	assert.False(t, gotCart.Active)

	assert.Contains(t, env.outboxTypes(t), enums.EventOrderPlaced)
}

func TestPlaceOrderWithCouponAndPoints(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, 80)
	product := env.seedProduct(t, 100000, 5)
	cart := env.seedCart(t, customer.ID, models.CartItem{
		ProductID: product.ID, Qty: 1, UnitPriceCents: product.PriceCents,
	})
	now := time.Now()
	require.NoError(t, env.db.Create(&models.Coupon{
		Code:            "SAVE10",
		DiscountPercent: 10,
		IsActive:        true,
		ValidFrom:       now.Add(-time.Hour),
		ValidTo:         now.Add(time.Hour),
	}).Error)

	order, err := env.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:  customer.ID,
		CartID:      cart.ID,
		CouponCode:  "SAVE10",
		PointsToUse: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, 10000, order.DiscountCents)
	assert.Equal(t, 50, order.PointsUsed)
	assert.Equal(t, 5000, order.PointsValueCents)
	assert.Equal(t, 107000, order.TotalCents)
	assert.Equal(t, 10, order.PointsEarned)

	// 80 earned + 10 earned - 50 used.
	assert.Equal(t, 40, env.customerOf(t, customer.ID).AvailablePoints())
}

func TestPlaceOrderZoneFee(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, 0)
	product := env.seedProduct(t, 100000, 5)
	cart := env.seedCart(t, customer.ID, models.CartItem{
		ProductID: product.ID, Qty: 1, UnitPriceCents: product.PriceCents,
	})
	fee := 5000
	zone := models.Zone{Name: "Gulshan", DeliveryFeeCents: &fee}
	require.NoError(t, env.db.Create(&zone).Error)

	order, err := env.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: customer.ID,
		CartID:     cart.ID,
		ZoneID:     &zone.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, 5000, order.DeliveryFeeCents)
	assert.Equal(t, 120000, order.TotalCents)
	require.NotNil(t, order.Delivery.ZoneID)
	assert.Equal(t, zone.ID, *order.Delivery.ZoneID)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, 100)
	product := env.seedProduct(t, 100000, 2)
	cart := env.seedCart(t, customer.ID, models.CartItem{
		ProductID: product.ID, Qty: 5, UnitPriceCents: product.PriceCents,
	})

	_, err := env.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:  customer.ID,
		CartID:      cart.ID,
		PointsToUse: 20,
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code())

	// Nothing moved: stock, points and the cart all keep their state.
	assert.Equal(t, 2, env.stockOf(t, product.ID))
	assert.Equal(t, 100, env.customerOf(t, customer.ID).AvailablePoints())
	var gotCart models.Cart
	require.NoError(t, env.db.First(&gotCart, "id = ?", cart.ID).Error)
	assert.True(t, gotCart.Active)
	assert.Empty(t, env.outboxTypes(t))
}

func TestPlaceOrderCartUsableOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, 0)
	product := env.seedProduct(t, 50000, 10)
	cart := env.seedCart(t, customer.ID, models.CartItem{
		ProductID: product.ID, Qty: 1, UnitPriceCents: product.PriceCents,
	})
	ctx := context.Background()

	_, err := env.svc.PlaceOrder(ctx, PlaceOrderInput{CustomerID: customer.ID, CartID: cart.ID})
	require.NoError(t, err)

	_, err = env.svc.PlaceOrder(ctx, PlaceOrderInput{CustomerID: customer.ID, CartID: cart.ID})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestPlaceOrderAutoAssignsRider(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, 0)
	product := env.seedProduct(t, 100000, 5)
	cart := env.seedCart(t, customer.ID, models.CartItem{
		ProductID: product.ID, Qty: 1, UnitPriceCents: product.PriceCents,
	})
	rider := env.seedRider(t)

	order, err := env.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: customer.ID,
		CartID:     cart.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusShipped, order.Status)
	assert.Equal(t, enums.DeliveryStatusAssigned, order.Delivery.Status)
	require.NotNil(t, order.Delivery.Assignment)
	assert.Equal(t, rider.ID, order.Delivery.Assignment.RiderID)

	var gotRider models.Rider
	require.NoError(t, env.db.First(&gotRider, "id = ?", rider.ID).Error)
	assert.False(t, gotRider.Available)

	assert.Contains(t, env.outboxTypes(t), enums.EventRiderAssigned)
}

func placeTestOrder(t *testing.T, env *testEnv, earned, stock int) (*models.Order, models.Customer, models.Product) {
	t.Helper()
	customer := env.seedCustomer(t, earned)
	product := env.seedProduct(t, 100000, stock)
	cart := env.seedCart(t, customer.ID, models.CartItem{
		ProductID: product.ID, Qty: 2, UnitPriceCents: product.PriceCents,
	})
	order, err := env.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:  customer.ID,
		CartID:      cart.ID,
		PointsToUse: min(earned, 30),
	})
	require.NoError(t, err)
	return order, customer, product
}

func TestCustomerCancelRestoresStockAndPoints(t *testing.T) {
	env := newTestEnv(t)
	order, customer, product := placeTestOrder(t, env, 50, 10)
	ctx := context.Background()

	before := env.customerOf(t, customer.ID)
	require.Equal(t, 30, before.PointsUsed)

	cancelled, err := env.svc.CustomerCancel(ctx, order.ID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRestored, cancelled.Status)
	assert.Equal(t, enums.DeliveryStatusFailed, cancelled.Delivery.Status)

	// Stock returns and both loyalty movements reverse.
	assert.Equal(t, 10, env.stockOf(t, product.ID))
	after := env.customerOf(t, customer.ID)
	assert.Equal(t, 0, after.PointsUsed)
	assert.Equal(t, 50, after.PointsEarned)

	// Goods never left, so no admin restoration is pending.
	pending, err := env.svc.ListNeedsRestoration(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Contains(t, env.outboxTypes(t), enums.EventOrderCancelled)
}

func TestCustomerCancelAssignedOrderHoldsStock(t *testing.T) {
	env := newTestEnv(t)
	order, customer, product := placeTestOrder(t, env, 50, 10)
	rider := env.seedRider(t)
	ctx := context.Background()

	_, err := env.svc.AcceptDelivery(ctx, order.Delivery.ID, rider.ID)
	require.NoError(t, err)

	cancelled, err := env.svc.CustomerCancel(ctx, order.ID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.DeliveryStatusFailed, cancelled.Delivery.Status)

	// The rider already holds the goods: points reverse, stock stays out
	// and the order waits for an admin restore.
	after := env.customerOf(t, customer.ID)
	assert.Equal(t, 0, after.PointsUsed)
	assert.Equal(t, 50, after.PointsEarned)
	assert.Equal(t, 8, env.stockOf(t, product.ID))

	pending, err := env.svc.ListNeedsRestoration(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, order.ID, pending[0].ID)

	// The rider is released and told to bring the goods back.
	var gotRider models.Rider
	require.NoError(t, env.db.First(&gotRider, "id = ?", rider.ID).Error)
	assert.True(t, gotRider.Available)
	types := env.outboxTypes(t)
	assert.Contains(t, types, enums.EventGoodsReturnNeeded)
	assert.Contains(t, types, enums.EventOrderCancelled)
}

func TestCustomerCancelTwiceRejected(t *testing.T) {
	env := newTestEnv(t)
	order, customer, product := placeTestOrder(t, env, 50, 10)
	ctx := context.Background()

	_, err := env.svc.CustomerCancel(ctx, order.ID, customer.ID)
	require.NoError(t, err)

	_, err = env.svc.CustomerCancel(ctx, order.ID, customer.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	// No double restore, no double reversal.
	assert.Equal(t, 10, env.stockOf(t, product.ID))
	after := env.customerOf(t, customer.ID)
	assert.Equal(t, 0, after.PointsUsed)
	assert.Equal(t, 50, after.PointsEarned)
}

func TestCustomerCancelWrongOwner(t *testing.T) {
	env := newTestEnv(t)
	order, _, _ := placeTestOrder(t, env, 0, 10)
	stranger := env.seedCustomer(t, 0)

	_, err := env.svc.CustomerCancel(context.Background(), order.ID, stranger.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestRiderDeliveryFlow(t *testing.T) {
	env := newTestEnv(t)
	order, customer, _ := placeTestOrder(t, env, 0, 10)
	rider := env.seedRider(t)
	ctx := context.Background()
	deliveryID := order.Delivery.ID

	accepted, err := env.svc.AcceptDelivery(ctx, deliveryID, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, accepted.Status)
	assert.Equal(t, enums.DeliveryStatusAssigned, accepted.Delivery.Status)

	start := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	env.svc.now = func() time.Time { return start }
	env.svc.randInt = func(n int) int { return 5 }

	scheduled, err := env.svc.ScheduleDelivery(ctx, deliveryID, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusOutForDelivery, scheduled.Delivery.Status)
	require.NotNil(t, scheduled.Delivery.EstimatedAt)
	assert.Equal(t, start.Add(20*time.Minute), *scheduled.Delivery.EstimatedAt)

	arrived, err := env.svc.MarkArrival(ctx, deliveryID, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, arrived.Status)
	assert.Equal(t, enums.DeliveryStatusDelivered, arrived.Delivery.Status)

	// Rider is free again.
	var gotRider models.Rider
	require.NoError(t, env.db.First(&gotRider, "id = ?", rider.ID).Error)
	assert.True(t, gotRider.Available)

	paid, err := env.svc.ConfirmPayment(ctx, order.ID, customer.ID)
	require.NoError(t, err)
	assert.True(t, paid.PaymentStatus)
	require.NotNil(t, paid.PaymentDate)

	types := env.outboxTypes(t)
	assert.Contains(t, types, enums.EventRiderAssigned)
	assert.Contains(t, types, enums.EventDeliveryScheduled)
	assert.Contains(t, types, enums.EventDeliveryArrived)
	assert.Contains(t, types, enums.EventPaymentConfirmed)
}

func TestAcceptDeliveryTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	order, _, _ := placeTestOrder(t, env, 0, 10)
	first := env.seedRider(t)
	second := env.seedRider(t)
	ctx := context.Background()

	_, err := env.svc.AcceptDelivery(ctx, order.Delivery.ID, first.ID)
	require.NoError(t, err)

	_, err = env.svc.AcceptDelivery(ctx, order.Delivery.ID, second.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestScheduleRequiresOwningRider(t *testing.T) {
	env := newTestEnv(t)
	order, _, _ := placeTestOrder(t, env, 0, 10)
	owner := env.seedRider(t)
	other := env.seedRider(t)
	ctx := context.Background()

	_, err := env.svc.AcceptDelivery(ctx, order.Delivery.ID, owner.ID)
	require.NoError(t, err)

	_, err = env.svc.ScheduleDelivery(ctx, order.Delivery.ID, other.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestConfirmPaymentCompletesDelivery(t *testing.T) {
	env := newTestEnv(t)
	order, customer, _ := placeTestOrder(t, env, 0, 10)
	rider := env.seedRider(t)
	ctx := context.Background()

	_, err := env.svc.AcceptDelivery(ctx, order.Delivery.ID, rider.ID)
	require.NoError(t, err)
	_, err = env.svc.ScheduleDelivery(ctx, order.Delivery.ID, rider.ID)
	require.NoError(t, err)

	paid, err := env.svc.ConfirmPayment(ctx, order.ID, customer.ID)
	require.NoError(t, err)
	assert.True(t, paid.PaymentStatus)
	assert.Equal(t, enums.OrderStatusDelivered, paid.Status)
	assert.Equal(t, enums.DeliveryStatusDelivered, paid.Delivery.Status)

	// Confirming again is rejected.
	_, err = env.svc.ConfirmPayment(ctx, order.ID, customer.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestRiderCancelReturnToBase(t *testing.T) {
	env := newTestEnv(t)
	order, customer, product := placeTestOrder(t, env, 50, 10)
	rider := env.seedRider(t)
	ctx := context.Background()

	_, err := env.svc.AcceptDelivery(ctx, order.Delivery.ID, rider.ID)
	require.NoError(t, err)
	_, err = env.svc.ScheduleDelivery(ctx, order.Delivery.ID, rider.ID)
	require.NoError(t, err)

	cancelled, err := env.svc.RiderCancel(ctx, order.Delivery.ID, rider.ID, "customer unreachable")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.DeliveryStatusFailed, cancelled.Delivery.Status)

	// Points reverse immediately, stock stays out until the goods return.
	after := env.customerOf(t, customer.ID)
	assert.Equal(t, 0, after.PointsUsed)
	assert.Equal(t, 50, after.PointsEarned)
	assert.Equal(t, 8, env.stockOf(t, product.ID))

	pending, err := env.svc.ListNeedsRestoration(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, order.ID, pending[0].ID)

	types := env.outboxTypes(t)
	assert.Contains(t, types, enums.EventReturnToBase)
	assert.Contains(t, types, enums.EventOrderCancelled)
}

func TestAdminRestoreAfterRiderCancel(t *testing.T) {
	env := newTestEnv(t)
	order, _, product := placeTestOrder(t, env, 0, 10)
	rider := env.seedRider(t)
	admin := uuid.New()
	ctx := context.Background()

	_, err := env.svc.AcceptDelivery(ctx, order.Delivery.ID, rider.ID)
	require.NoError(t, err)
	_, err = env.svc.RiderCancel(ctx, order.Delivery.ID, rider.ID, "vehicle breakdown")
	require.NoError(t, err)

	restored, err := env.svc.RestoreStock(ctx, order.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRestored, restored.Status)
	assert.Equal(t, 10, env.stockOf(t, product.ID))

	var trail []models.AuditLog
	require.NoError(t, env.db.Find(&trail, "record_id = ?", order.ID).Error)
	require.Len(t, trail, 1)
	assert.Equal(t, enums.AuditStockRestore, trail[0].Action)
	assert.Equal(t, admin, trail[0].ActorID)

	// The queue is drained and a second restore cannot double-credit.
	pending, err := env.svc.ListNeedsRestoration(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = env.svc.RestoreStock(ctx, order.ID, admin)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
	assert.Equal(t, 10, env.stockOf(t, product.ID))
}

func TestRestoreStockRequiresCancelledOrder(t *testing.T) {
	env := newTestEnv(t)
	order, _, _ := placeTestOrder(t, env, 0, 10)

	_, err := env.svc.RestoreStock(context.Background(), order.ID, uuid.New())
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestGetOrderScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	order, customer, _ := placeTestOrder(t, env, 0, 10)
	stranger := env.seedCustomer(t, 0)
	ctx := context.Background()

	got, err := env.svc.GetOrder(ctx, order.ID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = env.svc.GetOrder(ctx, order.ID, stranger.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
