package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds per-client rate limiting configuration
type Config struct {
	Capacity   int     // max burst per client
	RefillRate float64 // requests per second per client
	BucketTTL  time.Duration
}

// DefaultExchangeConfig limits each client to a small burst of exchange
// attempts; legitimate flows use one per impersonation act.
func DefaultExchangeConfig() *Config {
	return &Config{
		Capacity:   10,
		RefillRate: 10.0 / 60.0, // 10 per minute
		BucketTTL:  time.Hour,
	}
}

// Middleware rate-limits requests per client IP
type Middleware struct {
	limiter *KeyedLimiter
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultExchangeConfig()
	}
	return &Middleware{
		limiter: NewKeyedLimiter(config.Capacity, config.RefillRate, config.BucketTTL),
	}
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip != "" && !m.limiter.Allow(ip) {
			slog.Warn("Rate limit exceeded",
				"ip", ip,
				"path", r.URL.Path,
				"method", r.Method,
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": "Too many requests. Please try again later.", "code": "RATE_LIMITED"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client IP address from the request
func clientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "IP:port"
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
