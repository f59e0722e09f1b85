package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-booking/internal/model"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel plus a closer for whatever owns it.
type dialFunc func(url string) (channel, func() error, error)

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn.Close, nil
}

// Publisher sends StatusChangedEvents to a durable queue on the default
// exchange. The connection is opened on first use and dropped after any
// failure so the next publish redials. It is safe for concurrent use.
type Publisher struct {
	url   string
	queue string
	log   logrus.FieldLogger
	dial  dialFunc
	now   func() time.Time

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

// NewPublisher returns a publisher for queue on the broker at url. No
// connection is made until the first event is published.
func NewPublisher(url, queue string, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{url: url, queue: queue, log: log, dial: dialAMQP, now: time.Now}
}

// BookingStatusChanged publishes a booking event.
func (p *Publisher) BookingStatusChanged(ctx context.Context, b model.Booking, from model.BookingStatus) error {
	return p.Publish(ctx, BookingEvent(b, from, p.now()))
}

// OrderStatusChanged publishes an order event.
func (p *Publisher) OrderStatusChanged(ctx context.Context, o model.Order, from model.OrderStatus) error {
	return p.Publish(ctx, OrderEvent(o, from, p.now()))
}

// Publish sends ev as a persistent JSON message. Errors are logged and
// returned; callers treat them as non-fatal.
func (p *Publisher) Publish(ctx context.Context, ev StatusChangedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	log := p.log.WithFields(logrus.Fields{"event_id": ev.EventID, "entity": ev.Entity, "id": ev.ID, "status": ev.To})

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: publish skipped")
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Entity + ".status_changed",
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		p.resetLocked()
		return fmt.Errorf("publish: %w", err)
	}
	log.Debug("rabbitmq: event published")
	return nil
}

func (p *Publisher) channelLocked() (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	p.ch, p.closeConn = ch, closeConn
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}

// Close drops the broker connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
