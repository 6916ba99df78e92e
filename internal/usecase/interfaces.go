package usecase

import (
	"context"

	"github.com/xavierca1/pmp-enrollment/internal/infra/queue"
)

// EventPublisher fans reconciled payments out to asynchronous consumers.
type EventPublisher interface {
	PublishPaymentCompleted(ctx context.Context, event queue.PaymentCompletedEvent) error
}
