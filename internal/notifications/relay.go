package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tanvirc/bazarly-backend/internal/orders"
	"github.com/tanvirc/bazarly-backend/pkg/db/models"
	"github.com/tanvirc/bazarly-backend/pkg/enums"
	"github.com/tanvirc/bazarly-backend/pkg/logger"
	"github.com/tanvirc/bazarly-backend/pkg/metrics"
	"github.com/tanvirc/bazarly-backend/pkg/outbox"
	"github.com/tanvirc/bazarly-backend/pkg/redis"
)

// Relay drains the outbox and fans events out as stored notifications plus
// best-effort push messages. It only ever reads committed rows, so a crash
// at any point re-processes events instead of losing them; notification
// writes are therefore at-least-once.
type Relay struct {
	events   *outbox.Repository
	repo     *Repository
	push     redis.Publisher
	logg     *logger.Logger
	metrics  *metrics.RelayMetrics
	interval time.Duration
	batch    int
}

// RelayConfig tunes the polling loop.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// NewRelay wires the relay. The push publisher is optional; without one,
// notifications are stored but nothing is pushed.
func NewRelay(events *outbox.Repository, repo *Repository, push redis.Publisher, logg *logger.Logger, relayMetrics *metrics.RelayMetrics, cfg RelayConfig) (*Relay, error) {
	if events == nil {
		return nil, errors.New("outbox repository required")
	}
	if repo == nil {
		return nil, errors.New("notification repository required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Relay{
		events:   events,
		repo:     repo,
		push:     push,
		logg:     logg,
		metrics:  relayMetrics,
		interval: cfg.PollInterval,
		batch:    cfg.BatchSize,
	}, nil
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.ProcessBatch(ctx); err != nil && r.logg != nil {
				r.logg.Error(ctx, "relay batch failed", err)
			}
		}
	}
}

// ProcessBatch drains one batch of unpublished events and reports how many
// it handled. Per-event failures are recorded on the event row and do not
// stop the batch.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	start := time.Now()
	events, err := r.events.FetchUnpublished(r.batch)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, event := range events {
		if err := r.handle(ctx, event); err != nil {
			if markErr := r.events.MarkFailed(event.ID, err); markErr != nil && r.logg != nil {
				r.logg.Error(ctx, "marking outbox event failed", markErr)
			}
			if r.metrics != nil {
				r.metrics.EventsFailed.Inc()
			}
			continue
		}
		if err := r.events.MarkPublished(event.ID); err != nil {
			return processed, err
		}
		if r.metrics != nil {
			r.metrics.EventsPublished.WithLabelValues(string(event.EventType)).Inc()
		}
		processed++
	}
	if r.metrics != nil {
		r.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}
	return processed, nil
}

func (r *Relay) handle(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return err
	}
	var payload orders.EventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return err
	}

	for _, target := range targetsFor(event.EventType, payload) {
		notification := models.Notification{
			RecipientKind: target.kind,
			RecipientID:   target.recipientID,
			DeliveryID:    payload.DeliveryID,
			Type:          target.notifType,
			Title:         target.title,
			Message:       payload.Message,
		}
		if notification.Message == "" {
			notification.Message = target.title
		}
		if err := r.repo.Create(ctx, &notification); err != nil {
			return err
		}
		if r.metrics != nil {
			r.metrics.NotificationsCreated.WithLabelValues(string(target.kind)).Inc()
		}
		r.pushOut(ctx, target, notification)
	}
	return nil
}

// pushOut publishes the notification on the recipient's channel. Push is
// fire and forget; a dead Redis never blocks the relay.
func (r *Relay) pushOut(ctx context.Context, target notifTarget, notification models.Notification) {
	if r.push == nil {
		return
	}
	body, err := json.Marshal(notification)
	if err != nil {
		return
	}
	channel := r.push.PushChannel(string(target.kind), target.recipientID.String())
	if err := r.push.Publish(ctx, channel, body); err != nil && r.logg != nil {
		r.logg.Warn(r.logg.WithField(ctx, "channel", channel), "push publish failed")
	}
}

type notifTarget struct {
	kind        enums.RecipientKind
	recipientID uuid.UUID
	notifType   enums.NotificationType
	title       string
}

func targetsFor(eventType enums.OutboxEventType, payload orders.EventPayload) []notifTarget {
	var targets []notifTarget
	customer := func(notifType enums.NotificationType, title string) {
		targets = append(targets, notifTarget{
			kind:        enums.RecipientCustomer,
			recipientID: payload.CustomerID,
			notifType:   notifType,
			title:       title,
		})
	}
	rider := func(notifType enums.NotificationType, title string) {
		if payload.RiderID == nil {
			return
		}
		targets = append(targets, notifTarget{
			kind:        enums.RecipientRider,
			recipientID: *payload.RiderID,
			notifType:   notifType,
			title:       title,
		})
	}

	switch eventType {
	case enums.EventOrderPlaced:
		customer(enums.NotificationOrderUpdate, "Order placed")
	case enums.EventRiderAssigned:
		customer(enums.NotificationOrderUpdate, "Rider assigned")
		rider(enums.NotificationRiderDispatch, "New delivery assigned to you")
	case enums.EventDeliveryScheduled:
		customer(enums.NotificationOrderUpdate, "Out for delivery")
	case enums.EventDeliveryArrived:
		customer(enums.NotificationOrderUpdate, "Order delivered")
	case enums.EventPaymentConfirmed:
		customer(enums.NotificationPaymentReceipt, "Payment received")
	case enums.EventOrderCancelled:
		customer(enums.NotificationOrderUpdate, "Order cancelled")
	case enums.EventReturnToBase, enums.EventGoodsReturnNeeded:
		rider(enums.NotificationGoodsReturn, "Return goods to warehouse")
	case enums.EventOrderRestored, enums.EventStockRestored:
		// Internal bookkeeping; nobody to notify.
	}
	return targets
}
