package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Notifier handles a completed payment, typically by emailing the customer.
type Notifier interface {
	SendEnrollmentConfirmation(ctx context.Context, event PaymentCompletedEvent) error
}

type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	ch       consumer
	notifier Notifier
	logg     *logger.Logger
}

func NewWorker(ch *amqp.Channel, notifier Notifier, logg *logger.Logger) *Worker {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Worker{ch: ch, notifier: notifier, logg: logg}
}

// Start consumes QueueName until ctx is cancelled or the broker closes the channel.
func (w *Worker) Start(ctx context.Context) error {
	msgs, err := w.ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.logg.Info(w.logg.WithField(ctx, "queue", QueueName), "payment worker started")

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "payment worker stopped")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks processed messages and dead-letters the rest without requeue.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var event PaymentCompletedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		w.logg.Error(ctx, "discarding malformed payment event", err)
		d.Nack(false, false)
		return
	}

	ctx = w.logg.WithFields(ctx, map[string]any{
		"lead_id":    event.LeadID,
		"payment_id": event.PaymentID,
	})

	if err := w.notifier.SendEnrollmentConfirmation(ctx, event); err != nil {
		w.logg.Error(ctx, "enrollment confirmation failed", err)
		d.Nack(false, false)
		return
	}

	w.logg.Info(ctx, "enrollment confirmation sent")
	d.Ack(false)
}
