package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tanvirc/bazarly-backend/internal/audit"
	"github.com/tanvirc/bazarly-backend/internal/carts"
	"github.com/tanvirc/bazarly-backend/internal/inventory"
	"github.com/tanvirc/bazarly-backend/internal/loyalty"
	"github.com/tanvirc/bazarly-backend/internal/pricing"
	"github.com/tanvirc/bazarly-backend/internal/riders"
	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	"github.com/tanvirc/bazarly-backend/pkg/enums"
	pkgerrors "github.com/tanvirc/bazarly-backend/pkg/errors"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
	"github.com/tanvirc/bazarly-backend/pkg/outbox"
)

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PlaceOrderInput is everything a checkout request carries.
type PlaceOrderInput struct {
	CustomerID  uuid.UUID
	CartID      uuid.UUID
	ZoneID      *uuid.UUID
	CouponCode  string
	PointsToUse int
}

// Config tunes service behavior.
type Config struct {
	ETAMin time.Duration
	ETAMax time.Duration
}

// Service owns the order/delivery lifecycle. Every mutation runs inside one
// transaction; domain events ride the same transaction through the outbox,
// so side effects only become visible if the state change committed.
type Service struct {
	runner  TxRunner
	repo    *Repository
	carts   *carts.Repository
	pricer  *pricing.Engine
	stock   *inventory.Ledger
	points  *loyalty.Ledger
	riders  *riders.Service
	outbox  *outbox.Service
	audit   *audit.Repository
	logg    *logger.Logger
	etaMin  time.Duration
	etaMax  time.Duration
	now     func() time.Time
	randInt func(n int) int
}

// NewService wires the order orchestrator.
func NewService(
	runner TxRunner,
	repo *Repository,
	cartsRepo *carts.Repository,
	pricer *pricing.Engine,
	stock *inventory.Ledger,
	points *loyalty.Ledger,
	riderSvc *riders.Service,
	outboxSvc *outbox.Service,
	auditRepo *audit.Repository,
	logg *logger.Logger,
	cfg Config,
) (*Service, error) {
	switch {
	case runner == nil:
		return nil, errors.New("tx runner required")
	case repo == nil:
		return nil, errors.New("repository required")
	case cartsRepo == nil:
		return nil, errors.New("carts repository required")
	case pricer == nil:
		return nil, errors.New("pricing engine required")
	case stock == nil:
		return nil, errors.New("inventory ledger required")
	case points == nil:
		return nil, errors.New("loyalty ledger required")
	case riderSvc == nil:
		return nil, errors.New("rider service required")
	case outboxSvc == nil:
		return nil, errors.New("outbox service required")
	case auditRepo == nil:
		return nil, errors.New("audit repository required")
	}
	if cfg.ETAMin <= 0 {
		cfg.ETAMin = 15 * time.Minute
	}
	if cfg.ETAMax < cfg.ETAMin {
		cfg.ETAMax = cfg.ETAMin
	}
	return &Service{
		runner:  runner,
		repo:    repo,
		carts:   cartsRepo,
		pricer:  pricer,
		stock:   stock,
		points:  points,
		riders:  riderSvc,
		outbox:  outboxSvc,
		audit:   auditRepo,
		logg:    logg,
		etaMin:  cfg.ETAMin,
		etaMax:  cfg.ETAMax,
		now:     time.Now,
		randInt: rand.Intn,
	}, nil
}

// PlaceOrder turns an active cart into an order with its delivery, reserving
// stock, moving loyalty points and retiring the cart, all in one
// transaction. Assignment to a rider is attempted best effort; the order is
// valid without one.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	if in.CustomerID == uuid.Nil || in.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and cart id required")
	}

	var placed *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartsRepo := s.carts.WithTx(tx)

		customer, err := repo.FindCustomer(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		cart, err := cartsRepo.FindActiveForCustomer(ctx, in.CartID, in.CustomerID)
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
		}

		zoneID := in.ZoneID
		if zoneID == nil {
			zoneID = customer.DefaultZoneID
		}
		var zoneFee *int
		if zoneID != nil {
			zone, err := repo.FindZone(ctx, *zoneID)
			if err != nil {
				return err
			}
			zoneFee = zone.DeliveryFeeCents
		}

		lines := make([]pricing.LineItem, 0, len(cart.Items))
		reservation := make([]inventory.Line, 0, len(cart.Items))
		productIDs := make([]uuid.UUID, 0, len(cart.Items))
		for _, item := range cart.Items {
			lines = append(lines, pricing.LineItem{
				ProductID:      item.ProductID,
				Qty:            item.Qty,
				UnitPriceCents: item.UnitPriceCents,
			})
			reservation = append(reservation, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
			productIDs = append(productIDs, item.ProductID)
		}

		quote, err := s.pricer.Quote(ctx, pricing.Input{
			Items:           lines,
			ZoneFeeCents:    zoneFee,
			CouponCode:      in.CouponCode,
			PointsToUse:     in.PointsToUse,
			AvailablePoints: customer.AvailablePoints(),
		})
		if err != nil {
			return err
		}

		if err := s.stock.Reserve(ctx, tx, reservation); err != nil {
			return err
		}
		if err := s.points.DebitUsed(ctx, tx, customer.ID, quote.PointsUsed); err != nil {
			return err
		}
		if err := s.points.CreditEarned(ctx, tx, customer.ID, quote.PointsEarned); err != nil {
			return err
		}
		if err := cartsRepo.Deactivate(ctx, cart.ID); err != nil {
			return err
		}

		names, err := repo.FindProductNames(ctx, productIDs)
		if err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			items = append(items, models.OrderItem{
				ProductID:      item.ProductID,
				Name:           names[item.ProductID],
				Qty:            item.Qty,
				UnitPriceCents: item.UnitPriceCents,
				TotalCents:     item.Qty * item.UnitPriceCents,
			})
		}

		order := &models.Order{
			CustomerID:       customer.ID,
			CartID:           cart.ID,
			CouponID:         quote.CouponID,
			SubtotalCents:    quote.SubtotalCents,
			VatCents:         quote.VatCents,
			DeliveryFeeCents: quote.DeliveryFeeCents,
			DiscountCents:    quote.DiscountCents,
			PointsUsed:       quote.PointsUsed,
			PointsValueCents: quote.PointsValueCents,
			TotalCents:       quote.TotalCents,
			PointsEarned:     quote.PointsEarned,
			Status:           enums.OrderStatusPending,
			Items:            items,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		delivery := &models.Delivery{
			OrderID: order.ID,
			ZoneID:  zoneID,
			Status:  enums.DeliveryStatusPending,
		}
		if err := repo.CreateDelivery(ctx, delivery); err != nil {
			return err
		}
		order.Delivery = delivery

		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerID: &customer.ID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: customer.ID,
				DeliveryID: &delivery.ID,
				TotalCents: order.TotalCents,
				Status:     order.Status.String(),
				Message:    "Your order has been placed.",
			},
		}); err != nil {
			return err
		}

		assignment, err := s.riders.AutoAssign(ctx, tx, delivery.ID, zoneID)
		if err != nil {
			return err
		}
		if assignment != nil {
			if err := repo.ApplyPhase(ctx, order.ID, delivery.ID, PhasePlaced, PhaseAssigned); err != nil {
				return err
			}
			order.Status, delivery.Status = PhaseAssigned.Project()
			delivery.Assignment = assignment
			if err := s.emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventRiderAssigned,
				AggregateType: enums.AggregateDelivery,
				AggregateID:   delivery.ID,
				Data: EventPayload{
					OrderID:    order.ID,
					CustomerID: customer.ID,
					DeliveryID: &delivery.ID,
					RiderID:    &assignment.RiderID,
					Message:    "A rider has been assigned to your order.",
				},
			}); err != nil {
				return err
			}
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, placed.ID.String())
		s.logg.Info(logCtx, "order placed")
	}
	return placed, nil
}

// GetOrder returns an order the customer owns.
func (s *Service) GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and customer id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// CustomerCancel cancels an order before it is delivered. Loyalty
// movements always reverse, guarded so a retried cancellation never
// applies twice. What happens to the stock depends on where the goods
// are: a still-unassigned order releases its reservation on the spot and
// lands directly on restored, while an order already with a rider stays
// cancelled with stock held until the goods return and an admin restores
// them.
func (s *Service) CustomerCancel(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and customer id required")
	}

	var cancelled *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		phase, err := s.phaseOf(order)
		if err != nil {
			return err
		}
		if phase == PhaseDelivered || phase == PhaseCancelled || phase == PhaseRestored {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		if err := s.reversePoints(ctx, tx, repo, order); err != nil {
			return err
		}

		if phase == PhasePlaced {
			// Goods never left the warehouse: reservation comes straight
			// back and no admin restoration is needed.
			if err := repo.ApplyPhase(ctx, order.ID, order.Delivery.ID, PhasePlaced, PhaseRestored); err != nil {
				return err
			}
			won, err := repo.ClaimStockRestoration(ctx, order.ID, s.now())
			if err != nil {
				return err
			}
			if won {
				if err := s.stock.Release(ctx, tx, reservationOf(order.Items)); err != nil {
					return err
				}
			}
			order.Status, order.Delivery.Status = PhaseRestored.Project()
		} else {
			// A rider already holds the goods. Stock stays out until they
			// physically return; the order joins the restoration queue.
			if err := repo.ApplyPhase(ctx, order.ID, order.Delivery.ID, phase, PhaseCancelled); err != nil {
				return err
			}
			if order.Delivery.Assignment != nil {
				riderID := order.Delivery.Assignment.RiderID
				if err := s.riders.ReleaseRider(ctx, tx, order.Delivery.Assignment); err != nil {
					return err
				}
				if err := s.emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventGoodsReturnNeeded,
					AggregateType: enums.AggregateDelivery,
					AggregateID:   order.Delivery.ID,
					Actor:         &outbox.ActorRef{CustomerID: &customerID},
					Data: EventPayload{
						OrderID:    order.ID,
						CustomerID: order.CustomerID,
						DeliveryID: &order.Delivery.ID,
						RiderID:    &riderID,
						Message:    "Order cancelled by the customer; return the goods to the warehouse.",
					},
				}); err != nil {
					return err
				}
			}
			order.Status, order.Delivery.Status = PhaseCancelled.Project()
		}

		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerID: &customerID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				DeliveryID: &order.Delivery.ID,
				Status:     order.Status.String(),
				Message:    "Your order has been cancelled.",
			},
		}); err != nil {
			return err
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, cancelled.ID.String())
		s.logg.Info(logCtx, "order cancelled by customer")
	}
	return cancelled, nil
}

// AcceptDelivery lets a rider claim an unassigned delivery. The unique
// index on the assignment table settles concurrent accepts; losers get a
// conflict.
func (s *Service) AcceptDelivery(ctx context.Context, deliveryID, riderID uuid.UUID) (*models.Order, error) {
	if deliveryID == uuid.Nil || riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id and rider id required")
	}

	var accepted *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByDeliveryID(ctx, deliveryID)
		if err != nil {
			return err
		}
		phase, err := s.phaseOf(order)
		if err != nil {
			return err
		}
		if phase != PhasePlaced {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not open for acceptance").
				WithDetails(map[string]any{"status": order.Delivery.Status.String()})
		}

		assignment, err := s.riders.ClaimDelivery(ctx, tx, deliveryID, riderID)
		if err != nil {
			return err
		}
		if err := repo.ApplyPhase(ctx, order.ID, deliveryID, PhasePlaced, PhaseAssigned); err != nil {
			return err
		}

		order.Status, order.Delivery.Status = PhaseAssigned.Project()
		order.Delivery.Assignment = assignment
		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRiderAssigned,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   deliveryID,
			Actor:         &outbox.ActorRef{RiderID: &riderID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				DeliveryID: &deliveryID,
				RiderID:    &riderID,
				Message:    "A rider has been assigned to your order.",
			},
		}); err != nil {
			return err
		}

		accepted = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// ScheduleDelivery moves an assigned delivery out the door and stamps an
// estimated arrival inside the configured window.
func (s *Service) ScheduleDelivery(ctx context.Context, deliveryID, riderID uuid.UUID) (*models.Order, error) {
	if deliveryID == uuid.Nil || riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id and rider id required")
	}

	var scheduled *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByDeliveryID(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedRider(order, riderID); err != nil {
			return err
		}
		phase, err := s.phaseOf(order)
		if err != nil {
			return err
		}
		if phase != PhaseAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery cannot be scheduled from its current state").
				WithDetails(map[string]any{"status": order.Delivery.Status.String()})
		}

		eta := s.now().Add(s.randomETA())
		if err := repo.SetDeliveryETA(ctx, deliveryID, eta); err != nil {
			return err
		}
		if err := repo.ApplyPhase(ctx, order.ID, deliveryID, PhaseAssigned, PhaseOutForDelivery); err != nil {
			return err
		}

		order.Status, order.Delivery.Status = PhaseOutForDelivery.Project()
		order.Delivery.EstimatedAt = &eta
		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryScheduled,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   deliveryID,
			Actor:         &outbox.ActorRef{RiderID: &riderID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				DeliveryID: &deliveryID,
				RiderID:    &riderID,
				Message:    fmt.Sprintf("Your order is out for delivery, arriving around %s.", eta.Format("15:04")),
			},
		}); err != nil {
			return err
		}

		scheduled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scheduled, nil
}

// MarkArrival completes the delivery. Both projections land on delivered
// and the rider becomes available again.
func (s *Service) MarkArrival(ctx context.Context, deliveryID, riderID uuid.UUID) (*models.Order, error) {
	if deliveryID == uuid.Nil || riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id and rider id required")
	}

	var arrived *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByDeliveryID(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedRider(order, riderID); err != nil {
			return err
		}
		phase, err := s.phaseOf(order)
		if err != nil {
			return err
		}
		if phase != PhaseOutForDelivery {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is not out for delivery").
				WithDetails(map[string]any{"status": order.Delivery.Status.String()})
		}

		if err := repo.ApplyPhase(ctx, order.ID, deliveryID, PhaseOutForDelivery, PhaseDelivered); err != nil {
			return err
		}
		if err := s.riders.ReleaseRider(ctx, tx, order.Delivery.Assignment); err != nil {
			return err
		}

		order.Status, order.Delivery.Status = PhaseDelivered.Project()
		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryArrived,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   deliveryID,
			Actor:         &outbox.ActorRef{RiderID: &riderID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				DeliveryID: &deliveryID,
				RiderID:    &riderID,
				Message:    "Your order has arrived.",
			},
		}); err != nil {
			return err
		}

		arrived = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arrived, nil
}

// RiderCancel aborts a claimed delivery. The goods travel back to the
// warehouse with the rider, so stock is NOT restored here; the order joins
// the needs-restoration queue until an admin confirms the goods returned.
// Loyalty movements reverse immediately.
func (s *Service) RiderCancel(ctx context.Context, deliveryID, riderID uuid.UUID, reason string) (*models.Order, error) {
	if deliveryID == uuid.Nil || riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id and rider id required")
	}

	var cancelled *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByDeliveryID(ctx, deliveryID)
		if err != nil {
			return err
		}
		if err := s.requireAssignedRider(order, riderID); err != nil {
			return err
		}
		phase, err := s.phaseOf(order)
		if err != nil {
			return err
		}
		if phase != PhaseAssigned && phase != PhaseOutForDelivery {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery can no longer be cancelled by the rider").
				WithDetails(map[string]any{"status": order.Delivery.Status.String()})
		}

		if err := repo.ApplyPhase(ctx, order.ID, deliveryID, phase, PhaseCancelled); err != nil {
			return err
		}
		if err := s.riders.ReleaseRider(ctx, tx, order.Delivery.Assignment); err != nil {
			return err
		}
		if err := s.reversePoints(ctx, tx, repo, order); err != nil {
			return err
		}

		order.Status, order.Delivery.Status = PhaseCancelled.Project()
		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnToBase,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   deliveryID,
			Actor:         &outbox.ActorRef{RiderID: &riderID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				DeliveryID: &deliveryID,
				RiderID:    &riderID,
				Message:    "Delivery cancelled; goods returning to warehouse. " + reason,
			},
		}); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{RiderID: &riderID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				DeliveryID: &deliveryID,
				Status:     order.Status.String(),
				Message:    "Your order was cancelled during delivery.",
			},
		}); err != nil {
			return err
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, cancelled.ID.String())
		logCtx = s.logg.WithRiderID(logCtx, riderID.String())
		s.logg.Warn(logCtx, "order cancelled by rider")
	}
	return cancelled, nil
}

// ConfirmPayment records cash collection. Confirming while the delivery is
// still underway also completes it, which is the common handover flow.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and customer id required")
	}

	var confirmed *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		phase, err := s.phaseOf(order)
		if err != nil {
			return err
		}
		if phase != PhaseOutForDelivery && phase != PhaseDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment can only be confirmed at handover").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		paidAt := s.now()
		if err := repo.ConfirmPayment(ctx, order.ID, paidAt); err != nil {
			return err
		}
		if phase == PhaseOutForDelivery {
			if err := repo.ApplyPhase(ctx, order.ID, order.Delivery.ID, PhaseOutForDelivery, PhaseDelivered); err != nil {
				return err
			}
			if order.Delivery.Assignment != nil {
				if err := s.riders.ReleaseRider(ctx, tx, order.Delivery.Assignment); err != nil {
					return err
				}
			}
		}

		order.Status, order.Delivery.Status = PhaseDelivered.Project()
		order.PaymentStatus = true
		order.PaymentDate = &paidAt
		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerID: &customerID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				TotalCents: order.TotalCents,
				Status:     order.Status.String(),
				Message:    "Payment received. Thank you for your order.",
			},
		}); err != nil {
			return err
		}

		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// RestoreStock puts a cancelled order's goods back on the shelf after they
// physically returned. The stock_restored_at claim makes the operation
// single-shot; a second attempt is a state conflict, never a double credit.
func (s *Service) RestoreStock(ctx context.Context, orderID, adminID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and admin id required")
	}

	var restored *models.Order
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		phase, err := s.phaseOf(order)
		if err != nil {
			return err
		}
		if phase != PhaseCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only cancelled orders can be restored").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		won, err := repo.ClaimStockRestoration(ctx, order.ID, s.now())
		if err != nil {
			return err
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stock for this order was already restored")
		}

		if err := s.stock.Release(ctx, tx, reservationOf(order.Items)); err != nil {
			return err
		}
		if err := repo.ApplyPhase(ctx, order.ID, order.Delivery.ID, PhaseCancelled, PhaseRestored); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, models.AuditLog{
			ActorID:     adminID,
			Action:      enums.AuditStockRestore,
			TableName:   "orders",
			RecordID:    order.ID,
			Description: fmt.Sprintf("restored stock for %d order items", len(order.Items)),
		}); err != nil {
			return err
		}

		order.Status, order.Delivery.Status = PhaseRestored.Project()
		if err := s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockRestored,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{AdminID: &adminID},
			Data: EventPayload{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				Status:     order.Status.String(),
				Message:    "Returned goods are back in stock.",
			},
		}); err != nil {
			return err
		}

		restored = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, restored.ID.String())
		s.logg.Info(logCtx, "order stock restored")
	}
	return restored, nil
}

// ListNeedsRestoration returns cancelled orders still holding reserved
// stock, oldest first.
func (s *Service) ListNeedsRestoration(ctx context.Context) ([]models.Order, error) {
	return s.repo.ListNeedsRestoration(ctx)
}

// BrowseClaimable proxies the rider-facing open delivery listing.
func (s *Service) BrowseClaimable(ctx context.Context, riderID uuid.UUID) ([]models.Delivery, error) {
	return s.riders.BrowseClaimable(ctx, riderID)
}

func (s *Service) phaseOf(order *models.Order) (Phase, error) {
	if order.Delivery == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "order has no delivery")
	}
	phase, err := PhaseOf(order.Status, order.Delivery.Status)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order state is inconsistent")
	}
	return phase, nil
}

func (s *Service) requireAssignedRider(order *models.Order, riderID uuid.UUID) error {
	if order.Delivery == nil || order.Delivery.Assignment == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery has no active assignment")
	}
	if order.Delivery.Assignment.RiderID != riderID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another rider")
	}
	return nil
}

// reversePoints undoes the loyalty movements recorded on the order, exactly
// once. Amounts come off the order row, not a recomputation, so the
// reversal matches what placement actually moved.
func (s *Service) reversePoints(ctx context.Context, tx *gorm.DB, repo *Repository, order *models.Order) error {
	won, err := repo.ClaimPointsReversal(ctx, order.ID, s.now())
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	if err := s.points.ReverseUsed(ctx, tx, order.CustomerID, order.PointsUsed); err != nil {
		return err
	}
	return s.points.ReverseEarned(ctx, tx, order.CustomerID, order.PointsEarned)
}

func (s *Service) randomETA() time.Duration {
	window := int(s.etaMax-s.etaMin) / int(time.Minute)
	if window <= 0 {
		return s.etaMin
	}
	return s.etaMin + time.Duration(s.randInt(window+1))*time.Minute
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	event.Version = 1
	event.OccurredAt = s.now()
	return s.outbox.Emit(ctx, tx, event)
}

func reservationOf(items []models.OrderItem) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Qty: item.Qty})
	}
	return lines
}
