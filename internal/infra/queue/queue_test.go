package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func sampleEvent() PaymentCompletedEvent {
	return PaymentCompletedEvent{
		LeadID:     "3f1c1d4e-8b7a-4d0e-9a55-0f1b2c3d4e5f",
		Email:      "a@b.com",
		FullName:   "Asha Rao",
		PaymentID:  "pi_1",
		Amount:     1999900,
		Currency:   "inr",
		Plan:       "PMP Success Program",
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublishPaymentCompleted(t *testing.T) {
	pub := &fakePublisher{}
	p := &RabbitMQProducer{ch: pub}

	require.NoError(t, p.PublishPaymentCompleted(context.Background(), sampleEvent()))

	assert.Equal(t, ExchangeName, pub.exchange)
	assert.Equal(t, RoutingKey, pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "pi_1", pub.msg.MessageId)

	var got PaymentCompletedEvent
	require.NoError(t, json.Unmarshal(pub.msg.Body, &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestPublishPaymentCompletedError(t *testing.T) {
	p := &RabbitMQProducer{ch: &fakePublisher{err: amqp.ErrClosed}}

	err := p.PublishPaymentCompleted(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

type ackRecorder struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { return nil }

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendEnrollmentConfirmation(ctx context.Context, event PaymentCompletedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fakeConsumer struct {
	deliveries chan amqp.Delivery
}

func (f *fakeConsumer) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, v any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestWorkerAcksAfterNotification(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("SendEnrollmentConfirmation", mock.Anything, sampleEvent()).Return(nil)
	ack := &ackRecorder{}

	w := NewWorker(nil, notifier, nil)
	w.handle(context.Background(), delivery(t, ack, sampleEvent()))

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 0, ack.nacked)
	notifier.AssertExpectations(t)
}

func TestWorkerDeadLettersOnNotifierError(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("SendEnrollmentConfirmation", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	ack := &ackRecorder{}

	w := NewWorker(nil, notifier, nil)
	w.handle(context.Background(), delivery(t, ack, sampleEvent()))

	assert.Equal(t, 0, ack.acked)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestWorkerDiscardsMalformedBody(t *testing.T) {
	notifier := new(mockNotifier)
	ack := &ackRecorder{}

	w := NewWorker(nil, notifier, nil)
	w.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{nope")})

	assert.Equal(t, 1, ack.nacked)
	notifier.AssertNotCalled(t, "SendEnrollmentConfirmation", mock.Anything, mock.Anything)
}

func TestWorkerStartStopsOnCancel(t *testing.T) {
	notifier := new(mockNotifier)
	notifier.On("SendEnrollmentConfirmation", mock.Anything, mock.Anything).Return(nil)
	ack := &ackRecorder{}

	src := &fakeConsumer{deliveries: make(chan amqp.Delivery, 1)}
	src.deliveries <- delivery(t, ack, sampleEvent())

	w := NewWorker(nil, notifier, nil)
	w.ch = src

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool {
		ack.mu.Lock()
		defer ack.mu.Unlock()
		return ack.acked == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerStartReportsClosedChannel(t *testing.T) {
	src := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	close(src.deliveries)

	w := NewWorker(nil, new(mockNotifier), nil)
	w.ch = src

	assert.ErrorIs(t, w.Start(context.Background()), ErrDeliveriesClosed)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.NoError(t, n.SendEnrollmentConfirmation(context.Background(), sampleEvent()))
}
