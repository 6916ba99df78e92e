package queue

import (
	"context"

	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

// LogNotifier records confirmations instead of sending them. Used when SMTP is not configured.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) SendEnrollmentConfirmation(ctx context.Context, event PaymentCompletedEvent) error {
	n.logg.Info(n.logg.WithFields(ctx, map[string]any{
		"email":    event.Email,
		"plan":     event.Plan,
		"amount":   event.Amount,
		"currency": event.Currency,
	}), "mail disabled, confirmation logged only")
	return nil
}
