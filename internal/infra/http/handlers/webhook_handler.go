package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/xavierca1/pmp-enrollment/internal/infra/http/middleware"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
	"github.com/xavierca1/pmp-enrollment/internal/usecase"
)

const signatureHeader = "Stripe-Signature"

var errWebhookSecretMissing = errors.New("webhook signing secret is not configured")

type EventReconciler interface {
	Execute(ctx context.Context, event stripe.Event) (*usecase.ReconcileResult, error)
}

// WebhookGuard deduplicates deliveries by event id.
type WebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type WebhookHandler struct {
	reconciler EventReconciler
	secret     string
	guard      WebhookGuard
	logg       *logger.Logger
}

// NewWebhookHandler builds the processor callback. guard may be nil.
func NewWebhookHandler(reconciler EventReconciler, secret string, guard WebhookGuard, logg *logger.Logger) *WebhookHandler {
	if logg == nil {
		logg = logger.Nop()
	}
	return &WebhookHandler{reconciler: reconciler, secret: secret, guard: guard, logg: logg}
}

// Handle reads the raw body, which must not be touched by any JSON decoding
// before signature verification.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.reject(w, r, err)
		return
	}

	event, err := h.verify(payload, r.Header.Get(signatureHeader))
	if err != nil {
		h.reject(w, r, err)
		return
	}

	eventType := string(event.Type)
	ctx = h.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": eventType,
	})

	marked := false
	if h.guard != nil {
		seen, err := h.guard.CheckAndMark(ctx, event.ID)
		switch {
		case err != nil:
			middleware.RecordIntegrationError("redis")
			h.logg.Error(ctx, "idempotency check failed, processing anyway", err)
		case seen:
			h.logg.Info(ctx, "duplicate webhook delivery")
			middleware.RecordWebhookEvent(eventType, "duplicate")
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		default:
			marked = true
		}
	}

	result, err := h.reconciler.Execute(ctx, event)
	if err != nil {
		middleware.RecordWebhookEvent(eventType, "failed")
		if usecase.IsTechnicalError(err) {
			// Let the processor redeliver once the store recovers.
			h.logg.Error(ctx, "webhook dispatch failed", err)
			if marked {
				if derr := h.guard.Delete(ctx, event.ID); derr != nil {
					h.logg.Error(ctx, "release idempotency key", derr)
				}
			}
			writeError(w, http.StatusInternalServerError, "Webhook processing failed")
			return
		}
		h.logg.Warn(h.logg.WithField(ctx, "reason", err.Error()), "webhook event discarded")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	outcome := "ignored"
	if result != nil && result.Handled {
		outcome = "processed"
	}
	if result != nil && result.Lead != nil {
		middleware.RecordPaymentReconciled()
	}
	middleware.RecordWebhookEvent(eventType, outcome)

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *WebhookHandler) verify(payload []byte, signature string) (stripe.Event, error) {
	if h.secret == "" {
		return stripe.Event{}, errWebhookSecretMissing
	}
	// The account's API version may trail the library's; the payload fields
	// read downstream are stable across versions.
	return webhook.ConstructEventWithOptions(payload, signature, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// reject answers 400 text/plain, the shape the processor dashboard shows verbatim.
func (h *WebhookHandler) reject(w http.ResponseWriter, r *http.Request, err error) {
	h.logg.Warn(h.logg.WithField(r.Context(), "reason", err.Error()), "webhook rejected")
	middleware.RecordWebhookEvent("unverified", "rejected")
	http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
}
