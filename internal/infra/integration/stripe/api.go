package stripe

import (
	"context"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"
)

// API is the subset of Stripe resources the gateway uses. Tests swap it for a fake.
type API interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerCreateParams) (*stripe.Customer, error)
	CreateSubscription(ctx context.Context, params *stripe.SubscriptionCreateParams) (*stripe.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

type sdkAPI struct {
	client *stripe.Client
}

// NewAPI builds a Stripe client with its own backends, leaving the package globals untouched.
func NewAPI(secretKey string, timeout time.Duration, maxNetworkRetries int64) API {
	return newSDKAPI(secretKey, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(maxNetworkRetries),
	})
}

func newSDKAPI(secretKey string, cfg *stripe.BackendConfig) *sdkAPI {
	backends := stripe.NewBackendsWithConfig(cfg)
	return &sdkAPI{client: stripe.NewClient(secretKey, stripe.WithBackends(backends))}
}

func (a *sdkAPI) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	return a.client.V1PaymentIntents.Create(ctx, params)
}

func (a *sdkAPI) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)

	for c, err := range a.client.V1Customers.List(ctx, params) {
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, nil
}

func (a *sdkAPI) CreateCustomer(ctx context.Context, params *stripe.CustomerCreateParams) (*stripe.Customer, error) {
	return a.client.V1Customers.Create(ctx, params)
}

func (a *sdkAPI) CreateSubscription(ctx context.Context, params *stripe.SubscriptionCreateParams) (*stripe.Subscription, error) {
	return a.client.V1Subscriptions.Create(ctx, params)
}

func (a *sdkAPI) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	return a.client.V1Subscriptions.Retrieve(ctx, id, nil)
}

func (a *sdkAPI) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return a.client.V1CheckoutSessions.Create(ctx, params)
}
