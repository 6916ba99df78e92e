package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

const (
	paymentBehaviorDefaultIncomplete = "default_incomplete"
	expandInvoiceConfirmationSecret  = "latest_invoice.confirmation_secret"
)

var errMissingClientSecret = errors.New("subscription invoice has no confirmation secret")

type Gateway struct {
	api             API
	defaultCurrency string
	successURL      string
	cancelURL       string
	logg            *logger.Logger
}

type GatewayOptions struct {
	DefaultCurrency string
	SuccessURL      string
	CancelURL       string
}

func NewGateway(api API, opts GatewayOptions, logg *logger.Logger) *Gateway {
	if logg == nil {
		logg = logger.Nop()
	}
	currency := strings.ToLower(strings.TrimSpace(opts.DefaultCurrency))
	if currency == "" {
		currency = "inr"
	}
	return &Gateway{
		api:             api,
		defaultCurrency: currency,
		successURL:      opts.SuccessURL,
		cancelURL:       opts.CancelURL,
		logg:            logg,
	}
}

func (g *Gateway) currency(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return g.defaultCurrency
	}
	return c
}

// CreatePaymentIntent creates a single charge with automatic payment methods.
// No idempotency key is sent, so every call is a new intent.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntentOutput, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(input.Amount),
		Currency: stripe.String(g.currency(input.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: paymentMetadata(input.PlanName, input.CustomerEmail, input.CustomerName, input.LeadID),
	}

	pi, err := g.api.CreatePaymentIntent(ctx, params)
	if err != nil {
		return nil, upstreamError("create payment intent", err)
	}

	g.logg.Info(g.logg.WithFields(ctx, map[string]any{
		"payment_intent_id": pi.ID,
		"amount":            input.Amount,
		"currency":          g.currency(input.Currency),
	}), "payment intent created")

	return &PaymentIntentOutput{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
	}, nil
}

// CreateOrReuseSubscription reuses the first customer with the email, creating
// one when none exists, and opens an incomplete subscription on the price.
func (g *Gateway) CreateOrReuseSubscription(ctx context.Context, input SubscriptionInput) (*SubscriptionOutput, error) {
	customerID, err := g.ensureCustomer(ctx, input.CustomerEmail, input.CustomerName)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionCreateParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionCreateItemParams{
			{Price: stripe.String(input.PriceID)},
		},
		PaymentBehavior: stripe.String(paymentBehaviorDefaultIncomplete),
	}
	params.AddExpand(expandInvoiceConfirmationSecret)

	sub, err := g.api.CreateSubscription(ctx, params)
	if err != nil {
		return nil, upstreamError("create subscription", err)
	}

	secret := subscriptionClientSecret(sub)
	if secret == "" {
		return nil, &UpstreamPaymentError{Op: "create subscription", Message: errMissingClientSecret.Error(), Err: errMissingClientSecret}
	}

	g.logg.Info(g.logg.WithFields(ctx, map[string]any{
		"subscription_id": sub.ID,
		"customer_id":     customerID,
	}), "subscription created")

	return &SubscriptionOutput{
		SubscriptionID: sub.ID,
		ClientSecret:   secret,
		CustomerID:     customerID,
	}, nil
}

func (g *Gateway) ensureCustomer(ctx context.Context, email, name string) (string, error) {
	if email != "" {
		existing, err := g.api.FindCustomerByEmail(ctx, email)
		if err != nil {
			return "", upstreamError("list customers", err)
		}
		if existing != nil {
			return existing.ID, nil
		}
	}

	params := &stripe.CustomerCreateParams{}
	if email != "" {
		params.Email = stripe.String(email)
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	created, err := g.api.CreateCustomer(ctx, params)
	if err != nil {
		return "", upstreamError("create customer", err)
	}
	return created.ID, nil
}

func (g *Gateway) SubscriptionStatus(ctx context.Context, subscriptionID string) (*SubscriptionStatusOutput, error) {
	sub, err := g.api.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, upstreamError("retrieve subscription", err)
	}

	out := &SubscriptionStatusOutput{
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	// The billing period lives on the items since the basil API version.
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		out.CurrentPeriodEnd = sub.Items.Data[0].CurrentPeriodEnd
	}
	return out, nil
}

// CreateCheckoutSession opens a hosted payment page for a one-off charge.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSessionOutput, error) {
	productName := input.PlanName
	if productName == "" {
		productName = "Enrollment"
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(g.currency(input.Currency)),
					UnitAmount: stripe.Int64(input.Amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(productName),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: paymentMetadata(input.PlanName, input.CustomerEmail, input.CustomerName, input.LeadID),
		},
	}
	if input.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(input.CustomerEmail)
	}

	sess, err := g.api.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, upstreamError("create checkout session", err)
	}

	g.logg.Info(g.logg.WithField(ctx, "checkout_session_id", sess.ID), "checkout session created")

	return &CheckoutSessionOutput{SessionID: sess.ID, URL: sess.URL}, nil
}

func subscriptionClientSecret(sub *stripe.Subscription) string {
	if sub == nil || sub.LatestInvoice == nil || sub.LatestInvoice.ConfirmationSecret == nil {
		return ""
	}
	return sub.LatestInvoice.ConfirmationSecret.ClientSecret
}

// paymentMetadata skips empty values; the email key is what reconciliation matches on.
func paymentMetadata(plan, email, name, leadID string) map[string]string {
	md := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			md[k] = v
		}
	}
	set(MetadataPlan, plan)
	set(MetadataEmail, email)
	set(MetadataName, name)
	set(MetadataLeadID, leadID)
	return md
}
