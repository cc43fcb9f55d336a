package riders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	"github.com/tanvirc/bazarly-backend/pkg/enums"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Rider{},
		&models.Delivery{},
		&models.DeliveryAssignment{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), nil)
	require.NoError(t, err)
	return svc
}

func seedRider(t *testing.T, db *gorm.DB, available bool) models.Rider {
	t.Helper()
	rider := models.Rider{Name: "Karim", Phone: "01822222222", Available: available}
	require.NoError(t, db.Create(&rider).Error)
	return rider
}

func seedDelivery(t *testing.T, db *gorm.DB) models.Delivery {
	t.Helper()
	delivery := models.Delivery{OrderID: uuid.New(), Status: enums.DeliveryStatusPending}
	require.NoError(t, db.Create(&delivery).Error)
	return delivery
}

func TestClaimDelivery(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	rider := seedRider(t, db, true)
	delivery := seedDelivery(t, db)
	ctx := context.Background()

	var assignment *models.DeliveryAssignment
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = svc.ClaimDelivery(ctx, tx, delivery.ID, rider.ID)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, rider.ID, assignment.RiderID)
	assert.True(t, assignment.Active)

	var got models.Rider
	require.NoError(t, db.First(&got, "id = ?", rider.ID).Error)
	assert.False(t, got.Available)
}

func TestClaimDeliveryTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	first := seedRider(t, db, true)
	second := seedRider(t, db, true)
	delivery := seedDelivery(t, db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ClaimDelivery(ctx, tx, delivery.ID, first.ID)
		return err
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ClaimDelivery(ctx, tx, delivery.ID, second.ID)
		return err
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// The loser stays available.
	var got models.Rider
	require.NoError(t, db.First(&got, "id = ?", second.ID).Error)
	assert.True(t, got.Available)
}

func TestClaimDeliveryUniqueIndexDecidesRace(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	loser := seedRider(t, db, true)
	delivery := seedDelivery(t, db)
	ctx := context.Background()

	// Simulate a claim that landed between the pre-check and the insert:
	// a retired assignment still occupies the unique index.
	require.NoError(t, db.Create(&models.DeliveryAssignment{
		DeliveryID: delivery.ID,
		RiderID:    uuid.New(),
		Active:     false,
	}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ClaimDelivery(ctx, tx, delivery.ID, loser.ID)
		return err
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestClaimDeliveryUnavailableRider(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	rider := seedRider(t, db, false)
	delivery := seedDelivery(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ClaimDelivery(context.Background(), tx, delivery.ID, rider.ID)
		return err
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestAutoAssignBestEffort(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	delivery := seedDelivery(t, db)
	ctx := context.Background()

	// Nobody available: no assignment, no error.
	var assignment *models.DeliveryAssignment
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = svc.AutoAssign(ctx, tx, delivery.ID, nil)
		return err
	})
	require.NoError(t, err)
	assert.Nil(t, assignment)

	rider := seedRider(t, db, true)
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = svc.AutoAssign(ctx, tx, delivery.ID, nil)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, rider.ID, assignment.RiderID)
}

func TestReleaseRider(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	rider := seedRider(t, db, true)
	delivery := seedDelivery(t, db)
	ctx := context.Background()

	var assignment *models.DeliveryAssignment
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assignment, err = svc.ClaimDelivery(ctx, tx, delivery.ID, rider.ID)
		return err
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.ReleaseRider(ctx, tx, assignment)
	})
	require.NoError(t, err)

	var gotRider models.Rider
	require.NoError(t, db.First(&gotRider, "id = ?", rider.ID).Error)
	assert.True(t, gotRider.Available)

	var gotAssignment models.DeliveryAssignment
	require.NoError(t, db.First(&gotAssignment, "id = ?", assignment.ID).Error)
	assert.False(t, gotAssignment.Active)
}

func TestBrowseClaimable(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	rider := seedRider(t, db, true)
	open := seedDelivery(t, db)
	claimed := seedDelivery(t, db)
	require.NoError(t, db.Create(&models.DeliveryAssignment{
		DeliveryID: claimed.ID,
		RiderID:    uuid.New(),
		Active:     true,
	}).Error)

	deliveries, err := svc.BrowseClaimable(context.Background(), rider.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, open.ID, deliveries[0].ID)
}
