// Package ratelimit throttles simulation requests per client using a
// token-bucket limiter, keyed by correlation ID with a remote-IP
// fallback for clients that bypass the correlation middleware.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"predictive-analysis-engine/pkg/common"
	"predictive-analysis-engine/pkg/config"
)

type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New builds a Limiter that refills at cfg.MaxRequests per cfg.WindowMs,
// with a burst equal to MaxRequests.
func New(cfg config.RateLimitConfig) *Limiter {
	windowSeconds := float64(cfg.WindowMs) / 1000.0
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 60
	}
	return &Limiter{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(maxRequests) / windowSeconds),
		burst:   maxRequests,
	}
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.clients[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.clients[key] = lim
	return lim
}

func clientKey(r *http.Request) string {
	if cid := common.GetCorrelationID(r.Context()); cid != "" {
		return cid
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx >= 0 {
		addr = addr[:idx]
	}
	return addr
}

// Middleware returns chi-compatible middleware that rejects requests
// exceeding the bucket with 429 and a Retry-After header. It never
// classifies through the core's error taxonomy — exhaustion is a
// transport-level concern, not a simulation result.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		reservation := l.limiterFor(key).Reserve()
		if !reservation.OK() {
			writeTooManyRequests(w, 60*time.Second)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			writeTooManyRequests(w, delay)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeTooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds()) + 1
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"too many requests, retry later"}`))
}
