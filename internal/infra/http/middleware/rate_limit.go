package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/xavierca1/pmp-enrollment/internal/infra/logger"
)

// WindowCounter counts hits per id in fixed windows. cache.Client implements it on Redis.
type WindowCounter interface {
	FixedWindowAllow(ctx context.Context, scope, id string, limit int64, window time.Duration) (bool, error)
}

// RateLimiter throttles one route per peer address.
type RateLimiter struct {
	counter WindowCounter
	scope   string
	limit   int64
	window  time.Duration
	logg    *logger.Logger
}

func NewRateLimiter(counter WindowCounter, scope string, limit int, window time.Duration, logg *logger.Logger) *RateLimiter {
	if logg == nil {
		logg = logger.Nop()
	}
	return &RateLimiter{
		counter: counter,
		scope:   scope,
		limit:   int64(limit),
		window:  window,
		logg:    logg,
	}
}

// Limit rejects requests over the limit with 429. A failing counter lets the request through.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := PeerIP(r)

		allowed, err := rl.counter.FixedWindowAllow(ctx, rl.scope, ip, rl.limit, rl.window)
		if err != nil {
			RecordIntegrationError("redis")
			rl.logg.Error(rl.logg.WithField(ctx, "scope", rl.scope), "rate limit check failed", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			rl.logg.Warn(rl.logg.WithFields(ctx, map[string]any{
				"scope":          rl.scope,
				"ip":             ip,
				"limit":          rl.limit,
				"window_seconds": int(rl.window.Seconds()),
			}), "rate_limit.blocked")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "Too many requests. Please try again later.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MemoryWindow is the in-process WindowCounter used when Redis is not configured.
// Counts are per process.
type MemoryWindow struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

// NewMemoryWindow starts a sweeper that drops expired windows until ctx is done.
func NewMemoryWindow(ctx context.Context) *MemoryWindow {
	m := &MemoryWindow{
		windows: make(map[string]*window),
		now:     time.Now,
	}

	go m.cleanup(ctx)
	return m
}

func (m *MemoryWindow) FixedWindowAllow(_ context.Context, scope, id string, limit int64, size time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scope + ":" + id
	now := m.now()

	w, exists := m.windows[key]
	if !exists || !now.Before(w.resetAt) {
		m.windows[key] = &window{count: 1, resetAt: now.Add(size)}
		return limit >= 1, nil
	}

	w.count++
	return w.count <= limit, nil
}

func (m *MemoryWindow) cleanup(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryWindow) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
