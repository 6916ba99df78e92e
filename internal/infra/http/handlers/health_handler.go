package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

type DBPinger interface {
	PingContext(ctx context.Context) error
}

type RedisPinger interface {
	Ping(ctx context.Context) error
}

type BrokerConn interface {
	IsClosed() bool
}

// HealthDependencies lists what /health reports on. Nil fields are "not configured".
type HealthDependencies struct {
	DB               DBPinger
	Redis            RedisPinger
	RabbitMQ         BrokerConn
	StripeConfigured bool
	WebhookSecretSet bool
}

type HealthHandler struct {
	deps      HealthDependencies
	version   string
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(version string, deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		deps:      deps,
		version:   version,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	deps := make(map[string]string)

	if h.deps.DB != nil {
		deps["database"] = pingStatus(h.deps.DB.PingContext(ctx))
	} else {
		deps["database"] = "not configured"
	}

	if h.deps.Redis != nil {
		deps["redis"] = pingStatus(h.deps.Redis.Ping(ctx))
	} else {
		deps["redis"] = "not configured"
	}

	if h.deps.RabbitMQ != nil {
		if h.deps.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	deps["stripe"] = configured(h.deps.StripeConfigured)
	deps["stripe_webhook"] = configured(h.deps.WebhookSecretSet)

	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "configured" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:       status,
		Version:      h.version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

func pingStatus(err error) string {
	if err != nil {
		return fmt.Sprintf("unhealthy: %v", err)
	}
	return "healthy"
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
