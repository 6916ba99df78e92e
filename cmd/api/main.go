package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/xavierca1/pmp-enrollment/internal/config"
	"github.com/xavierca1/pmp-enrollment/internal/enrollment"
	"github.com/xavierca1/pmp-enrollment/internal/entity"
	"github.com/xavierca1/pmp-enrollment/internal/infra/cache"
	"github.com/xavierca1/pmp-enrollment/internal/infra/database"
	"github.com/xavierca1/pmp-enrollment/internal/infra/http/handlers"
	"github.com/xavierca1/pmp-enrollment/internal/infra/http/middleware"
	"github.com/xavierca1/pmp-enrollment/internal/infra/http/router"
	"github.com/xavierca1/pmp-enrollment/internal/infra/integration/ipapi"
	paymentgw "github.com/xavierca1/pmp-enrollment/internal/infra/integration/stripe"
	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
	"github.com/xavierca1/pmp-enrollment/internal/infra/mail"
	"github.com/xavierca1/pmp-enrollment/internal/infra/queue"
	"github.com/xavierca1/pmp-enrollment/internal/usecase"
	"github.com/xavierca1/pmp-enrollment/web"
)

const (
	serviceName       = "pmp-enrollment-api"
	version           = "1.0.0"
	idempotencyScope  = "stripe-webhook"
	saveUserRateScope = "save-user"
	shutdownTimeout   = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// run wires every dependency, serves until ctx is cancelled, then shuts down.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	health := handlers.HealthDependencies{
		StripeConfigured: cfg.Stripe.SecretKey != "",
		WebhookSecretSet: cfg.Stripe.WebhookSecret != "",
	}

	// 1. Lead store
	var leads entity.LeadRepository
	if cfg.DB.URL != "" {
		db, err := database.NewDBConnection(ctx, cfg.DB)
		if err != nil {
			return err
		}
		closers = append(closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		leads = database.NewLeadRepository(db)
		health.DB = db
		logg.Info(ctx, "lead store: postgres")
	} else {
		leads = database.NewMemoryLeadRepository()
		logg.Warn(ctx, "DATABASE_URL not set, leads are kept in memory")
	}

	// 2. Webhook idempotency
	var (
		guard       handlers.WebhookGuard
		redisClient *cache.Client
	)
	if cfg.Redis.URL != "" {
		redisClient, err = cache.New(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)
		guard = redisClient.Events(idempotencyScope, cfg.Redis.IdempotencyTTL)
		health.Redis = redisClient
	}

	// 3. Payment events and confirmation mail
	var publisher usecase.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		broker, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		closers = append(closers, broker.Close)
		publisher = queue.NewProducer(broker.Ch)
		health.RabbitMQ = broker.Conn

		var notifier queue.Notifier = queue.NewLogNotifier(logg)
		if cfg.Mail.Enabled() {
			notifier = mail.NewEmailSender(cfg.Mail)
		}
		worker := queue.NewWorker(broker.Ch, notifier, logg)
		go func() {
			if err := worker.Start(ctx); err != nil {
				middleware.RecordIntegrationError("rabbitmq")
				logg.Error(ctx, "payment worker stopped", err)
			}
		}()
	}

	// 4. Integrations
	if cfg.Stripe.SecretKey == "" {
		logg.Warn(ctx, "STRIPE_SECRET_KEY not set, payment endpoints will fail")
	}
	gateway := paymentgw.NewGateway(
		paymentgw.NewAPI(cfg.Stripe.SecretKey, cfg.Stripe.Timeout, cfg.Stripe.MaxNetworkRetries),
		paymentgw.GatewayOptions{
			DefaultCurrency: cfg.Stripe.DefaultCurrency,
			SuccessURL:      cfg.Stripe.SuccessURL,
			CancelURL:       cfg.Stripe.CancelURL,
		},
		logg,
	)
	geo := ipapi.NewClient(cfg.Geo.BaseURL, cfg.Geo.Timeout, logg)

	// 5. Handlers
	plan := enrollment.DefaultPlan
	page, err := handlers.NewPageHandler(web.IndexHTML, handlers.PageData{
		PlanName:       plan.Name,
		Amount:         plan.Amount,
		Currency:       plan.Currency,
		PublishableKey: cfg.Stripe.PublishableKey,
	})
	if err != nil {
		return err
	}

	opts := router.Options{
		CORSOrigins: cfg.App.CORSOrigins,
		TrustProxy:  cfg.App.TrustProxyHeaders,
		Logger:      logg,
	}
	if cfg.App.SaveUserRateLimit > 0 {
		var counter middleware.WindowCounter
		if redisClient != nil {
			counter = redisClient
		} else {
			logg.Warn(ctx, "REDIS_URL not set, save-user rate limit is per process")
			counter = middleware.NewMemoryWindow(ctx)
		}
		opts.SaveUserLimiter = middleware.NewRateLimiter(counter, saveUserRateScope, cfg.App.SaveUserRateLimit, cfg.App.SaveUserRateWindow, logg)
	}

	handler := router.New(router.Handlers{
		Page:    page,
		Health:  handlers.NewHealthHandler(version, health),
		Geo:     handlers.NewGeoHandler(geo),
		Lead:    handlers.NewLeadHandler(usecase.NewSaveLeadUseCase(leads, logg), usecase.NewListLeadsUseCase(leads), logg),
		Payment: handlers.NewPaymentHandler(gateway, logg),
		Webhook: handlers.NewWebhookHandler(usecase.NewReconcilePaymentUseCase(leads, publisher, logg), cfg.Stripe.WebhookSecret, guard, logg),
	}, opts)

	// 6. Server
	server := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
