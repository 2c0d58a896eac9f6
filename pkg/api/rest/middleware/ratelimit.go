package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration. Clustering batches
// are CPU-heavy, so the limits here are expected to sit far below typical
// HTTP-API defaults.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
	PerIP          bool // key the limit by client IP; false keys by authenticated user when available
	GlobalLimit    bool // additionally cap the total request rate across all clients
}

// RateLimiter hands out one token-bucket limiter per client key, plus an
// optional global bucket shared by everyone.
type RateLimiter struct {
	config   RateLimitConfig
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	global   *rate.Limiter
}

// NewRateLimiter creates a RateLimiter and starts its background cleanup.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
	}

	if config.GlobalLimit {
		rl.global = rate.NewLimiter(rate.Limit(config.RequestsPerSec), config.Burst)
	}

	go rl.cleanup()

	return rl
}

// getLimiter returns the limiter for key, creating it on first use.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists = rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSec), rl.config.Burst)
	rl.limiters[key] = limiter

	return limiter
}

// cleanup bounds the per-client limiter map so a churn of one-off client
// IPs cannot grow it without limit.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		if len(rl.limiters) > 10000 {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware enforces the configured per-client (and optional
// global) request rate, answering 429 with a Retry-After hint when a
// bucket is empty.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			if limiter.config.GlobalLimit && limiter.global != nil {
				if !limiter.global.Allow() {
					writeRateLimitError(w, "Global rate limit exceeded")
					return
				}
			}

			var key string
			if !limiter.config.PerIP {
				if claims, ok := GetClaimsFromContext(r.Context()); ok {
					key = "user:" + claims.UserID
				}
			}
			if key == "" {
				key = getClientIP(r)
			}

			clientLimiter := limiter.getLimiter(key)
			if !clientLimiter.Allow() {
				writeRateLimitError(w, fmt.Sprintf("Rate limit exceeded for %s", key))
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.Burst))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(clientLimiter.Tokens())))

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client address, preferring proxy-set headers
// over the raw socket address.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func writeRateLimitError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error": %q, "status": 429}`, message)
}
