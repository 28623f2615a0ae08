package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"service-delivery/internal/logx"
	"service-delivery/internal/ratelimit"
)

type rateLimitedBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RateLimit ограничивает количество запросов с одного IP
type RateLimit struct {
	logger     logx.Logger
	rejected   prometheus.Counter // nil - не считаем
	limiter    ratelimit.Limiter
	retryAfter string
}

// RateLimitOption tunes RateLimit.
type RateLimitOption func(*RateLimit)

// WithRetryAfter sets the Retry-After hint, rounded up to whole seconds.
// Typically the time one token takes to refill.
func WithRetryAfter(d time.Duration) RateLimitOption {
	return func(m *RateLimit) {
		secs := int(math.Ceil(d.Seconds()))
		if secs < 1 {
			secs = 1
		}
		m.retryAfter = strconv.Itoa(secs)
	}
}

// NewRateLimit keys limiter by client IP. A nil limiter lets everything through.
func NewRateLimit(logger logx.Logger, rejected prometheus.Counter, limiter ratelimit.Limiter, opts ...RateLimitOption) *RateLimit {
	m := &RateLimit{
		logger:     logger,
		rejected:   rejected,
		limiter:    limiter,
		retryAfter: "1",
	}
	if m.logger == nil {
		m.logger = logx.Nop()
	}
	if m.limiter == nil {
		m.limiter = ratelimit.NopLimiter{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler returns chi-style middleware.
func (m *RateLimit) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if m.limiter.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, ip)
		})
	}
}

func (m *RateLimit) reject(w http.ResponseWriter, r *http.Request, ip string) {
	if m.rejected != nil {
		m.rejected.Inc()
	}
	m.logger.Warn("rate limit exceeded",
		logx.String("ip", ip),
		logx.String("method", r.Method),
		logx.String("path", r.URL.Path),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", m.retryAfter)
	w.WriteHeader(http.StatusTooManyRequests)
	if err := json.NewEncoder(w).Encode(rateLimitedBody{Error: "too many requests", Code: "rate_limited"}); err != nil {
		// клиент уже ушёл
		m.logger.Debug("rate limit response write failed", logx.String("ip", ip), logx.Err(err))
	}
}

// clientIP relies on chi RealIP having rewritten RemoteAddr from proxy headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	return r.RemoteAddr
}
