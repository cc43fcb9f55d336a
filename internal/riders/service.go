package riders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
)

// Service owns rider assignment. Claims and auto-assignment both funnel into
// the same insert, so the delivery_id unique index settles every race the
// same way no matter which path raced.
type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// ClaimDelivery assigns the delivery to the requesting rider. The rider must
// exist and be available; the assignment insert settles concurrent claims.
// The winning rider is marked unavailable inside the same transaction.
func (s *Service) ClaimDelivery(ctx context.Context, tx *gorm.DB, deliveryID, riderID uuid.UUID) (*models.DeliveryAssignment, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if deliveryID == uuid.Nil || riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id and rider id required")
	}
	repo := s.repo.WithTx(tx)

	rider, err := repo.FindByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	if !rider.Available {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rider is not available")
	}

	// Cheap pre-check for a friendlier error on the common case; the
	// unique index still decides true races.
	existing, err := repo.FindActiveAssignment(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "delivery already assigned to a rider")
	}

	assignment := &models.DeliveryAssignment{
		DeliveryID: deliveryID,
		RiderID:    riderID,
		Active:     true,
	}
	if err := repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, err
	}
	if err := repo.SetAvailable(ctx, riderID, false); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithRiderID(ctx, riderID.String())
		s.logg.Info(logCtx, "delivery claimed by rider")
	}
	return assignment, nil
}

// AutoAssign picks the first available rider for the delivery's zone and
// claims the delivery on their behalf. Best effort: no free rider means
// (nil, nil) and the delivery stays pending for manual accepts.
func (s *Service) AutoAssign(ctx context.Context, tx *gorm.DB, deliveryID uuid.UUID, zoneID *uuid.UUID) (*models.DeliveryAssignment, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)

	rider, err := repo.FirstAvailable(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if rider == nil {
		return nil, nil
	}
	return s.ClaimDelivery(ctx, tx, deliveryID, rider.ID)
}

// ReleaseRider frees the rider after a completed or abandoned delivery and
// retires the assignment row.
func (s *Service) ReleaseRider(ctx context.Context, tx *gorm.DB, assignment *models.DeliveryAssignment) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if assignment == nil {
		return nil
	}
	repo := s.repo.WithTx(tx)
	if err := repo.DeactivateAssignment(ctx, assignment.ID); err != nil {
		return err
	}
	return repo.SetAvailable(ctx, assignment.RiderID, true)
}

// BrowseClaimable lists pending deliveries a rider can accept, scoped to the
// rider's zone when they have one.
func (s *Service) BrowseClaimable(ctx context.Context, riderID uuid.UUID) ([]models.Delivery, error) {
	if riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider id required")
	}
	rider, err := s.repo.FindByID(ctx, riderID)
	if err != nil {
		return nil, err
	}
	var deliveries []models.Delivery
	query := s.repo.db.WithContext(ctx).
		Where("status = ?", "pending").
		Where("id NOT IN (?)", s.repo.db.Model(&models.DeliveryAssignment{}).
			Select("delivery_id").
			Where("active = ?", true)).
		Order("created_at ASC")
	if rider.ZoneID != nil {
		query = query.Where("zone_id = ? OR zone_id IS NULL", *rider.ZoneID)
	}
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list claimable deliveries")
	}
	return deliveries, nil
}
