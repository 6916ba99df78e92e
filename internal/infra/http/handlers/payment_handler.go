package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/pmp-enrollment/internal/infra/http/middleware"
	paymentgw "github.com/xavierca1/pmp-enrollment/internal/infra/integration/stripe"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

const (
	kindPaymentIntent      = "payment_intent"
	kindSubscription       = "subscription"
	kindSubscriptionStatus = "subscription_status"
	kindCheckoutSession    = "checkout_session"

	msgPaymentFailed = "Payment request failed"
)

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, input paymentgw.PaymentIntentInput) (*paymentgw.PaymentIntentOutput, error)
	CreateOrReuseSubscription(ctx context.Context, input paymentgw.SubscriptionInput) (*paymentgw.SubscriptionOutput, error)
	SubscriptionStatus(ctx context.Context, subscriptionID string) (*paymentgw.SubscriptionStatusOutput, error)
	CreateCheckoutSession(ctx context.Context, input paymentgw.CheckoutSessionInput) (*paymentgw.CheckoutSessionOutput, error)
}

// PaymentRequest is the body of both /create-payment-intent and
// /create-checkout-session. Amount is in minor units.
type PaymentRequest struct {
	Amount        int64  `json:"amount" validate:"gt=0"`
	Currency      string `json:"currency" validate:"omitempty,alpha,len=3"`
	PlanName      string `json:"planName"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	CustomerName  string `json:"customerName"`
	LeadID        string `json:"leadId"`
}

type SubscriptionRequest struct {
	PriceID       string `json:"priceId" validate:"required"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	CustomerName  string `json:"customerName"`
}

type PaymentHandler struct {
	gateway PaymentGateway
	logg    *logger.Logger
}

func NewPaymentHandler(gateway PaymentGateway, logg *logger.Logger) *PaymentHandler {
	if logg == nil {
		logg = logger.Nop()
	}
	return &PaymentHandler{gateway: gateway, logg: logg}
}

func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.gateway.CreatePaymentIntent(r.Context(), paymentgw.PaymentIntentInput{
		Amount:        req.Amount,
		Currency:      req.Currency,
		PlanName:      req.PlanName,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		LeadID:        req.LeadID,
	})
	if err != nil {
		h.fail(w, r, kindPaymentIntent, err)
		return
	}

	middleware.RecordPayment(kindPaymentIntent, "ok")
	writeJSON(w, http.StatusOK, out)
}

func (h *PaymentHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req SubscriptionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.gateway.CreateOrReuseSubscription(r.Context(), paymentgw.SubscriptionInput{
		PriceID:       req.PriceID,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
	})
	if err != nil {
		h.fail(w, r, kindSubscription, err)
		return
	}

	middleware.RecordPayment(kindSubscription, "ok")
	writeJSON(w, http.StatusOK, out)
}

func (h *PaymentHandler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	subscriptionID := chi.URLParam(r, "subscriptionId")

	out, err := h.gateway.SubscriptionStatus(r.Context(), subscriptionID)
	if err != nil {
		h.fail(w, r, kindSubscriptionStatus, err)
		return
	}

	middleware.RecordPayment(kindSubscriptionStatus, "ok")
	writeJSON(w, http.StatusOK, out)
}

// CreateCheckoutSession backs the hosted-redirect payment branch.
func (h *PaymentHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.gateway.CreateCheckoutSession(r.Context(), paymentgw.CheckoutSessionInput{
		Amount:        req.Amount,
		Currency:      req.Currency,
		PlanName:      req.PlanName,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		LeadID:        req.LeadID,
	})
	if err != nil {
		h.fail(w, r, kindCheckoutSession, err)
		return
	}

	middleware.RecordPayment(kindCheckoutSession, "ok")
	writeJSON(w, http.StatusOK, out)
}

// fail surfaces the processor's own message as a 500.
func (h *PaymentHandler) fail(w http.ResponseWriter, r *http.Request, kind string, err error) {
	h.logg.Error(h.logg.WithField(r.Context(), "kind", kind), "payment request failed", err)
	middleware.RecordPayment(kind, "failed")
	middleware.RecordIntegrationError("stripe")

	msg := msgPaymentFailed
	var upstream *paymentgw.UpstreamPaymentError
	if errors.As(err, &upstream) && upstream.Message != "" {
		msg = upstream.Message
	}
	writeError(w, http.StatusInternalServerError, msg)
}
