package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
)

const publishTimeout = 5 * time.Second

// Publisher is the subset of *amqp.Channel the relay uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Envelope is the body of every relayed message. Channel is empty for
// broadcasts.
type Envelope struct {
	Channel string `json:"channel,omitempty"`
	Event   string `json:"event"`
	Data    any    `json:"data"`
}

// AMQPRelay copies dispatched events to a fanout exchange. Relay never blocks;
// Run drains the queue and publishes.
type AMQPRelay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	pub      Publisher
	exchange string
	queue    chan Envelope
	log      *logrus.Entry
}

// Dial connects to url and declares exchange as a durable fanout.
func Dial(url, exchange string, buffer int, log logrus.FieldLogger) (*AMQPRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	r := New(ch, exchange, buffer, log)
	r.conn, r.ch = conn, ch
	return r, nil
}

func New(pub Publisher, exchange string, buffer int, log logrus.FieldLogger) *AMQPRelay {
	if buffer <= 0 {
		buffer = 1
	}
	return &AMQPRelay{
		pub:      pub,
		exchange: exchange,
		queue:    make(chan Envelope, buffer),
		log:      log.WithFields(logrus.Fields{"component": "relay", "exchange": exchange}),
	}
}

func (r *AMQPRelay) Relay(channel string, msg domain.Message) {
	select {
	case r.queue <- Envelope{Channel: channel, Event: msg.Event, Data: msg.Data}:
	default:
		r.log.WithField("event", msg.Event).Warn("relay queue full, event dropped")
	}
}

// Run publishes queued events until ctx is cancelled.
func (r *AMQPRelay) Run(ctx context.Context) error {
	r.log.Info("relay started")
	defer r.log.Info("relay stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-r.queue:
			if err := r.publish(ctx, env); err != nil {
				r.log.WithError(err).WithField("event", env.Event).Error("relay publish failed")
			}
		}
	}
}

func (r *AMQPRelay) publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return r.pub.PublishWithContext(ctx, r.exchange, env.Channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{"event": env.Event},
		Body:         body,
	})
}

func (r *AMQPRelay) Close() {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}
