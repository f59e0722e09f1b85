package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking/internal/model"
)

var occurred = time.Date(2024, 6, 1, 18, 45, 0, 0, time.UTC)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	failNext  error
	closed    bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func newTestPublisher(dials *int, channels *[]*fakeChannel) (*Publisher, *test.Hook) {
	log, hook := test.NewNullLogger()
	p := NewPublisher("amqp://test", "booking.status_changed", log)
	p.now = func() time.Time { return occurred }
	p.dial = func(string) (channel, func() error, error) {
		*dials++
		ch := &fakeChannel{}
		*channels = append(*channels, ch)
		return ch, func() error { return nil }, nil
	}
	return p, hook
}

func sampleBooking() model.Booking {
	rid := uint64(3)
	start := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	return model.Booking{
		ID: 42, Number: "RSVLX2ABC123", Kind: model.BookingTable, UserID: 7, VenueID: 1,
		ResourceID: &rid, StartsAt: start, EndsAt: start.Add(2 * time.Hour), Status: model.BookingConfirmed,
	}
}

func TestPublisher_BookingStatusChanged(t *testing.T) {
	var dials int
	var chans []*fakeChannel
	p, _ := newTestPublisher(&dials, &chans)

	require.NoError(t, p.BookingStatusChanged(context.Background(), sampleBooking(), model.BookingPending))
	require.NoError(t, p.BookingStatusChanged(context.Background(), sampleBooking(), model.BookingPending))

	assert.Equal(t, 1, dials, "connection is reused")
	ch := chans[0]
	assert.Equal(t, []string{"booking.status_changed"}, ch.declared)
	require.Len(t, ch.published, 2)
	msg := ch.published[0]
	assert.Equal(t, "booking.status_changed", ch.keys[0])
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "booking.status_changed", msg.Type)

	var ev StatusChangedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &ev))
	assert.Equal(t, msg.MessageId, ev.EventID)
	assert.Equal(t, EntityBooking, ev.Entity)
	assert.Equal(t, "PENDING", ev.From)
	assert.Equal(t, "CONFIRMED", ev.To)
	require.NotNil(t, ev.ResourceID)
	assert.Equal(t, uint64(3), *ev.ResourceID)
	assert.Equal(t, occurred, ev.OccurredAt)
	assert.NotEqual(t, ev.EventID, mustEvent(t, ch.published[1]).EventID)
}

func mustEvent(t *testing.T, msg amqp.Publishing) StatusChangedEvent {
	t.Helper()
	var ev StatusChangedEvent
	require.NoError(t, json.Unmarshal(msg.Body, &ev))
	return ev
}

func TestPublisher_RedialsAfterFailure(t *testing.T) {
	var dials int
	var chans []*fakeChannel
	p, hook := newTestPublisher(&dials, &chans)

	require.NoError(t, p.OrderStatusChanged(context.Background(), model.Order{ID: 1, Status: model.OrderPreparing}, model.OrderPending))
	chans[0].failNext = amqp.ErrClosed

	err := p.OrderStatusChanged(context.Background(), model.Order{ID: 1, Status: model.OrderReady}, model.OrderPreparing)
	assert.ErrorIs(t, err, amqp.ErrClosed)
	assert.True(t, chans[0].closed)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	require.NoError(t, p.OrderStatusChanged(context.Background(), model.Order{ID: 1, Status: model.OrderReady}, model.OrderPreparing))
	assert.Equal(t, 2, dials)
	assert.Len(t, chans[1].published, 1)
}

func TestPublisher_DialFailureIsReturned(t *testing.T) {
	log, _ := test.NewNullLogger()
	p := NewPublisher("amqp://test", "q", log)
	p.dial = func(string) (channel, func() error, error) { return nil, nil, errors.New("connection refused") }

	err := p.BookingStatusChanged(context.Background(), sampleBooking(), model.BookingPending)
	assert.ErrorContains(t, err, "connection refused")
}

func TestAuditLine(t *testing.T) {
	ev := BookingEvent(sampleBooking(), "", occurred)
	ev.EventID = "evt-1"

	assert.Equal(t,
		"[2024-06-01T18:45:00Z] booking RSVLX2ABC123 NEW -> CONFIRMED | id=42 | kind=TABLE | venue_id=1 | user_id=7"+
			" | resource_id=3 | window=[2024-06-01T19:00:00Z, 2024-06-01T21:00:00Z) | event_id=evt-1\n",
		ev.AuditLine())
}

func TestAuditLine_OrderHasNoWindow(t *testing.T) {
	ev := OrderEvent(model.Order{ID: 5, Number: "ORD9", Type: model.OrderDelivery, Status: model.OrderOutForDelivery}, model.OrderReady, occurred)
	line := ev.AuditLine()
	assert.Contains(t, line, "order ORD9 READY -> OUT_FOR_DELIVERY")
	assert.NotContains(t, line, "window=")
	assert.NotContains(t, line, "resource_id=")
}

func TestHandleMessage(t *testing.T) {
	var out bytes.Buffer
	body, err := json.Marshal(BookingEvent(sampleBooking(), model.BookingPending, occurred))
	require.NoError(t, err)

	require.NoError(t, handleMessage(body, &out))
	assert.Contains(t, out.String(), "booking RSVLX2ABC123 PENDING -> CONFIRMED")

	assert.Error(t, handleMessage([]byte("{not json"), &out))
	assert.Error(t, handleMessage([]byte(`{"entity":"booking"}`), &out))
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
}
