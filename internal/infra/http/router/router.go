package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/pmp-enrollment/internal/infra/http/handlers"
	"github.com/xavierca1/pmp-enrollment/internal/infra/http/middleware"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

type Handlers struct {
	Page    *handlers.PageHandler
	Health  *handlers.HealthHandler
	Geo     *handlers.GeoHandler
	Lead    *handlers.LeadHandler
	Payment *handlers.PaymentHandler
	Webhook *handlers.WebhookHandler
}

type Options struct {
	CORSOrigins []string
	// TrustProxy rewrites RemoteAddr from X-Forwarded-For / X-Real-IP. Only set it
	// when every request arrives through a proxy that overwrites those headers.
	TrustProxy bool
	// SaveUserLimiter throttles lead submissions when set.
	SaveUserLimiter *middleware.RateLimiter
	Logger          *logger.Logger
}

func New(h Handlers, opts Options) http.Handler {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.Recoverer(opts.Logger),
		middleware.RequestID(opts.Logger),
		middleware.Logging(opts.Logger),
		middleware.Metrics,
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Stripe-Signature", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}),
	)

	r.Get("/", h.Page.Handle)
	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ip-info", h.Geo.Handle)
		if opts.SaveUserLimiter != nil {
			r.With(opts.SaveUserLimiter.Limit).Post("/save-user", h.Lead.SaveUser)
		} else {
			r.Post("/save-user", h.Lead.SaveUser)
		}
		r.Get("/users", h.Lead.ListUsers)
	})

	r.Post("/webhook", h.Webhook.Handle)

	r.Post("/create-payment-intent", h.Payment.CreatePaymentIntent)
	r.Post("/create-subscription", h.Payment.CreateSubscription)
	r.Get("/subscription-status/{subscriptionId}", h.Payment.SubscriptionStatus)
	r.Post("/create-checkout-session", h.Payment.CreateCheckoutSession)

	return r
}
