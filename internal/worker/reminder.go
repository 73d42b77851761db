package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/logger"
	"marketplace/internal/repo"
)

// CustomNotifier is the part of the dispatcher the reminder uses.
type CustomNotifier interface {
	SendCustomNotification(ctx context.Context, storefrontID uuid.UUID, message string, data any)
}

// ReminderWorker nudges storefronts about orders still waiting in CREATED.
// Each pass scans [lastTo, now-after) and then advances lastTo, so windows are
// contiguous even when a tick runs late and an order is reminded about once.
// The first pass starts at now-after-interval.
type ReminderWorker struct {
	orderRepo repo.OrderRepo
	notifier  CustomNotifier
	interval  time.Duration
	after     time.Duration
	log       *logrus.Entry
	now       func() time.Time
	lastTo    time.Time
}

func NewReminderWorker(
	orderRepo repo.OrderRepo,
	notifier CustomNotifier,
	interval time.Duration,
	after time.Duration,
	log logrus.FieldLogger,
) *ReminderWorker {
	return &ReminderWorker{
		orderRepo: orderRepo,
		notifier:  notifier,
		interval:  interval,
		after:     after,
		log:       logger.Component(log, "reminder"),
		now:       time.Now,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithFields(logrus.Fields{"interval": w.interval.String(), "after": w.after.String()}).Info("reminder worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("reminder worker stopped")
			return nil
		case <-ticker.C:
			if err := w.process(ctx); err != nil {
				w.log.WithError(err).Error("reminder pass failed")
			}
		}
	}
}

func (w *ReminderWorker) process(ctx context.Context) error {
	to := w.now().UTC().Add(-w.after)
	from := w.lastTo
	if from.IsZero() {
		from = to.Add(-w.interval)
	}
	if !from.Before(to) {
		return nil
	}

	pending, err := w.orderRepo.FindStaleOrders(ctx, domain.OrderCreated, from, to)
	if err != nil {
		return err
	}
	w.lastTo = to
	if len(pending) == 0 {
		return nil
	}

	w.log.WithField("orders", len(pending)).Info("reminding storefronts about pending orders")

	for _, order := range pending {
		waiting := w.now().Sub(order.RequestedAt).Round(time.Minute)
		w.notifier.SendCustomNotification(ctx, order.ClientID,
			fmt.Sprintf("order from %s is waiting for acceptance for %s", order.Name, waiting),
			map[string]any{"orderId": order.ID, "requestedAt": order.RequestedAt},
		)
	}
	return nil
}
