package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Stripe   StripeConfig
	Geo      GeoConfig
	DB       DBConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Mail     MailConfig
}

type AppConfig struct {
	Port        string   `envconfig:"PORT" default:"3000"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string   `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// SaveUserRateLimit caps lead submissions per client address and window. Zero disables it.
	SaveUserRateLimit  int           `envconfig:"SAVE_USER_RATE_LIMIT" default:"0"`
	SaveUserRateWindow time.Duration `envconfig:"SAVE_USER_RATE_WINDOW" default:"1m"`

	// TrustProxyHeaders takes the client address from proxy headers instead of the socket.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`
}

func (a AppConfig) Addr() string {
	if strings.HasPrefix(a.Port, ":") {
		return a.Port
	}
	return ":" + a.Port
}

type StripeConfig struct {
	SecretKey         string        `envconfig:"STRIPE_SECRET_KEY"`
	PublishableKey    string        `envconfig:"STRIPE_PUBLISHABLE_KEY"`
	WebhookSecret     string        `envconfig:"STRIPE_WEBHOOK_SECRET"`
	Timeout           time.Duration `envconfig:"STRIPE_TIMEOUT" default:"10s"`
	MaxNetworkRetries int64         `envconfig:"STRIPE_MAX_NETWORK_RETRIES" default:"1"`
	DefaultCurrency   string        `envconfig:"DEFAULT_CURRENCY" default:"inr"`
	SuccessURL        string        `envconfig:"CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/?checkout=success"`
	CancelURL         string        `envconfig:"CHECKOUT_CANCEL_URL" default:"http://localhost:3000/?checkout=cancelled"`
}

type GeoConfig struct {
	BaseURL string        `envconfig:"GEO_BASE_URL" default:"http://ip-api.com/json"`
	Timeout time.Duration `envconfig:"GEO_TIMEOUT" default:"3s"`
}

// DBConfig is optional: an empty URL keeps leads in memory.
type DBConfig struct {
	URL             string        `envconfig:"DATABASE_URL"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

type RedisConfig struct {
	URL            string        `envconfig:"REDIS_URL"`
	IdempotencyTTL time.Duration `envconfig:"WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type RabbitMQConfig struct {
	URL string `envconfig:"RABBITMQ_URL"`
}

type MailConfig struct {
	Host     string `envconfig:"MAIL_HOST"`
	Port     int    `envconfig:"MAIL_PORT" default:"587"`
	User     string `envconfig:"MAIL_USER"`
	Password string `envconfig:"MAIL_PASS"`
	From     string `envconfig:"MAIL_FROM" default:"no-reply@pmp-success.example"`
}

func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Stripe.DefaultCurrency = strings.ToLower(strings.TrimSpace(cfg.Stripe.DefaultCurrency))
	return &cfg, nil
}
