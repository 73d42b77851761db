package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/logger"
)

// Publisher delivers events to connected sessions. Implementations must not
// block on slow sessions.
type Publisher interface {
	// Publish delivers msg to every session subscribed to channel and reports
	// how many sessions it was queued for.
	Publish(channel string, msg domain.Message) int
	PublishAll(msg domain.Message) int
	Sessions() []domain.SessionInfo
}

// Relay receives a copy of every dispatched event. An empty channel means
// the event was broadcast.
type Relay interface {
	Relay(channel string, msg domain.Message)
}

type NotificationService interface {
	Notifier
	SendCustomNotification(ctx context.Context, storefrontID uuid.UUID, message string, data any)
	Broadcast(ctx context.Context, message string, data any)
	Sessions(ctx context.Context) []domain.SessionInfo
}

type notificationService struct {
	publisher Publisher
	relay     Relay
	log       *logrus.Entry
	now       func() time.Time
}

// NewNotificationService returns the dispatcher. relay may be nil.
func NewNotificationService(publisher Publisher, relay Relay, log logrus.FieldLogger) NotificationService {
	return &notificationService{
		publisher: publisher,
		relay:     relay,
		log:       logger.Component(log, "notifications"),
		now:       time.Now,
	}
}

func (s *notificationService) SendOrderStatusUpdate(ctx context.Context, order domain.Order) {
	msg := domain.Message{
		Event: domain.EventOrderStatusUpdate,
		Data: domain.OrderStatusPayload{
			OrderID:      order.ID,
			StorefrontID: order.ClientID,
			Status:       order.Status,
			Message:      order.Status.Message(),
			Timestamp:    s.now().UTC(),
		},
	}
	s.dispatch(ctx, order.ClientID.String(), msg, logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	})
}

func (s *notificationService) SendCustomNotification(ctx context.Context, storefrontID uuid.UUID, message string, data any) {
	msg := domain.Message{
		Event: domain.EventCustom,
		Data:  domain.CustomPayload{Message: message, Data: data, Timestamp: s.now().UTC()},
	}
	s.dispatch(ctx, storefrontID.String(), msg, nil)
}

func (s *notificationService) Broadcast(ctx context.Context, message string, data any) {
	msg := domain.Message{
		Event: domain.EventBroadcast,
		Data:  domain.CustomPayload{Message: message, Data: data, Timestamp: s.now().UTC()},
	}
	s.dispatch(ctx, "", msg, nil)
}

func (s *notificationService) Sessions(ctx context.Context) []domain.SessionInfo {
	return s.publisher.Sessions()
}

// dispatch never returns an error and never panics into the caller: a failed
// notification must not undo the state change that triggered it.
func (s *notificationService) dispatch(ctx context.Context, channel string, msg domain.Message, fields logrus.Fields) {
	entry := s.log.WithContext(ctx).WithFields(fields).WithField("event", msg.Event)
	if channel != "" {
		entry = entry.WithField("channel", channel)
	}

	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("notification dispatch failed")
		}
	}()

	var delivered int
	if channel == "" {
		delivered = s.publisher.PublishAll(msg)
	} else {
		delivered = s.publisher.Publish(channel, msg)
	}
	if s.relay != nil {
		s.relay.Relay(channel, msg)
	}

	entry.WithField("sessions", delivered).Debug("notification dispatched")
}
