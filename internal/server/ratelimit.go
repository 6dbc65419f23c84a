package server

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"

	"golang.org/x/time/rate"
)

const (
	defaultLimiterWindow  = time.Minute
	defaultLimiterCleanup = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterManager hands out one token bucket per client, keyed by API key
// or IP as configured. Buckets idle for a full cleanup interval are dropped.
type LimiterManager struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	cfg       config.RateLimitConfig
	limit     rate.Limit
	done      chan struct{}
	closeOnce sync.Once
	logger    *errors.Logger
}

// NewLimiterManager allows cfg.RequestsPerMin requests per cfg.Window with
// cfg.BurstCapacity headroom. Zero window and interval take defaults.
func NewLimiterManager(cfg config.RateLimitConfig, logger *errors.Logger) *LimiterManager {
	if cfg.Window <= 0 {
		cfg.Window = defaultLimiterWindow
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultLimiterCleanup
	}
	if cfg.BurstCapacity <= 0 {
		cfg.BurstCapacity = 1
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 1
	}

	m := &LimiterManager{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		limit:   rate.Every(cfg.Window / time.Duration(cfg.RequestsPerMin)),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go m.sweep()
	return m
}

// Key returns the bucket key for r, or "" when r is not limited.
func (m *LimiterManager) Key(r *http.Request) string {
	if m.cfg.ByAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if m.cfg.ByIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// Allow takes a token from key's bucket. It never blocks.
func (m *LimiterManager) Allow(key string) bool {
	m.mu.Lock()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.cfg.BurstCapacity)}
		m.buckets[key] = b
	}
	b.lastSeen = time.Now()
	m.mu.Unlock()

	return b.limiter.Allow()
}

// RetryAfter is the Retry-After header value, in whole seconds, for a
// rejected request: the time one token takes to refill.
func (m *LimiterManager) RetryAfter() string {
	refill := m.cfg.Window / time.Duration(m.cfg.RequestsPerMin)
	return fmt.Sprint(int(math.Ceil(refill.Seconds())))
}

func (m *LimiterManager) Stats() map[string]any {
	m.mu.Lock()
	active := len(m.buckets)
	m.mu.Unlock()

	return map[string]any{
		"active_limiters": active,
		"rate_per_minute": float64(m.limit) * 60.0,
		"burst_capacity":  m.cfg.BurstCapacity,
		"window":          m.cfg.Window.String(),
	}
}

func (m *LimiterManager) sweep() {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.evictIdle(now.Add(-m.cfg.CleanupInterval))
		case <-m.done:
			return
		}
	}
}

// evictIdle drops buckets not used since cutoff and reports how many remain.
func (m *LimiterManager) evictIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
	if m.logger != nil {
		m.logger.Debug("Rate limiter sweep", "remaining_limiters", len(m.buckets))
	}
	return len(m.buckets)
}

// Close stops the sweeper. Safe to call more than once.
func (m *LimiterManager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// getClientIP returns the first valid address from X-Forwarded-For, then
// X-Real-IP, then the connection's remote address.
func getClientIP(r *http.Request) string {
	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
