package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
	paymentgw "github.com/xavierca1/pmp-enrollment/internal/infra/integration/stripe"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
	"github.com/xavierca1/pmp-enrollment/internal/infra/queue"
)

type ReconcilePaymentUseCase struct {
	Repo      entity.LeadRepository
	Publisher EventPublisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewReconcilePaymentUseCase wires the webhook dispatch table. publisher may be nil.
func NewReconcilePaymentUseCase(repo entity.LeadRepository, publisher EventPublisher, logg *logger.Logger) *ReconcilePaymentUseCase {
	if logg == nil {
		logg = logger.Nop()
	}
	return &ReconcilePaymentUseCase{
		Repo:      repo,
		Publisher: publisher,
		logg:      logg,
		now:       time.Now,
	}
}

// Execute dispatches a verified event by type. Only succeeded payments mutate state.
func (uc *ReconcilePaymentUseCase) Execute(ctx context.Context, event stripe.Event) (*ReconcileResult, error) {
	ctx = uc.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		return uc.paymentSucceeded(ctx, event)

	case stripe.EventTypePaymentIntentPaymentFailed:
		pi, err := decodePaymentIntent(event)
		if err != nil {
			return nil, err
		}
		failCtx := uc.logg.WithField(ctx, "payment_intent_id", pi.ID)
		if pi.LastPaymentError != nil {
			failCtx = uc.logg.WithField(failCtx, "reason", pi.LastPaymentError.Msg)
		}
		uc.logg.Warn(failCtx, "payment failed")
		return &ReconcileResult{EventType: string(event.Type), Handled: true}, nil

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		if event.Data == nil {
			return nil, &DomainError{Code: CodeInvalidEvent, Message: "event has no data"}
		}
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, &DomainError{Code: CodeInvalidEvent, Message: fmt.Sprintf("decode subscription: %v", err)}
		}
		uc.logg.Info(uc.logg.WithFields(ctx, map[string]any{
			"subscription_id": sub.ID,
			"status":          string(sub.Status),
		}), "subscription lifecycle event")
		return &ReconcileResult{EventType: string(event.Type), Handled: true}, nil

	default:
		uc.logg.Info(ctx, "unhandled event type")
		return &ReconcileResult{EventType: string(event.Type)}, nil
	}
}

// paymentSucceeded marks the lead named by lead_id metadata, or else the first
// lead with the metadata email. No match is logged and dropped.
func (uc *ReconcilePaymentUseCase) paymentSucceeded(ctx context.Context, event stripe.Event) (*ReconcileResult, error) {
	pi, err := decodePaymentIntent(event)
	if err != nil {
		return nil, err
	}

	leadID := pi.Metadata[paymentgw.MetadataLeadID]
	email := pi.Metadata[paymentgw.MetadataEmail]
	ctx = uc.logg.WithFields(ctx, map[string]any{
		"payment_intent_id": pi.ID,
		"email":             email,
	})

	if leadID == "" && email == "" {
		uc.logg.Warn(ctx, "succeeded payment carries no lead reference")
		return &ReconcileResult{EventType: string(event.Type), Handled: true}, nil
	}

	// The id only counts when it belongs to the paying email; otherwise email decides.
	var lead *entity.Lead
	if leadID != "" {
		lead, err = uc.Repo.MarkPaymentCompletedByID(ctx, leadID, email, pi.ID)
		if errors.Is(err, entity.ErrLeadAlreadyPaid) {
			uc.logg.Info(uc.logg.WithField(ctx, "lead_id", leadID), "lead already paid")
			return &ReconcileResult{EventType: string(event.Type), Handled: true}, nil
		}
		if err != nil {
			return nil, &TechnicalError{Code: CodeReconcileFailed, Message: "failed to update lead payment", Err: err}
		}
		if lead == nil && email != "" {
			uc.logg.Warn(uc.logg.WithField(ctx, "lead_id", leadID), "lead id did not match payment email, matching by email")
		}
	}
	if lead == nil && email != "" {
		lead, err = uc.Repo.MarkPaymentCompleted(ctx, email, pi.ID)
		if err != nil {
			return nil, &TechnicalError{Code: CodeReconcileFailed, Message: "failed to update lead payment", Err: err}
		}
	}

	result := &ReconcileResult{EventType: string(event.Type), Handled: true, Lead: lead}
	if lead == nil {
		uc.logg.Info(ctx, "no unpaid lead matched payment")
		return result, nil
	}

	uc.logg.Info(uc.logg.WithField(ctx, "lead_id", lead.ID), "lead payment completed")
	uc.publish(ctx, lead, pi)
	return result, nil
}

// publish is best effort: the lead is already updated, so a broker failure is only logged.
func (uc *ReconcilePaymentUseCase) publish(ctx context.Context, lead *entity.Lead, pi *stripe.PaymentIntent) {
	if uc.Publisher == nil {
		return
	}
	event := queue.PaymentCompletedEvent{
		LeadID:     lead.ID,
		Email:      lead.Email,
		FullName:   lead.FullName,
		PaymentID:  pi.ID,
		Amount:     pi.Amount,
		Currency:   string(pi.Currency),
		Plan:       pi.Metadata[paymentgw.MetadataPlan],
		OccurredAt: uc.now().UTC(),
	}
	if err := uc.Publisher.PublishPaymentCompleted(ctx, event); err != nil {
		uc.logg.Error(ctx, "lead updated but payment event was not published", err)
	}
}

func decodePaymentIntent(event stripe.Event) (*stripe.PaymentIntent, error) {
	if event.Data == nil {
		return nil, &DomainError{Code: CodeInvalidEvent, Message: "event has no data"}
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, &DomainError{Code: CodeInvalidEvent, Message: fmt.Sprintf("decode payment intent: %v", err)}
	}
	return &pi, nil
}
