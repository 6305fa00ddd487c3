package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client, one token bucket per
// identifier, modeled on gateway/middleware's RateLimit — generalized from
// a per-route-key config map to a single global limit, since this service
// has one query surface rather than a per-upstream-route gateway.
type RateLimiter struct {
	perSecond float64
	burst     int

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter allowing perSecond requests per client on
// average, with bursts up to burst. A non-positive perSecond disables
// limiting entirely.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		perSecond: perSecond,
		burst:     burst,
		visitors:  make(map[string]*rate.Limiter),
	}
}

// Middleware rejects requests over the per-client rate with 429, once the
// limiter is actually configured (perSecond > 0).
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.perSecond <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := rl.limiterFor(clientID(r))
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(id string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, ok := rl.visitors[id]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.perSecond), rl.burst)
		rl.visitors[id] = limiter
		go rl.evictAfter(id, 5*time.Minute)
	}
	return limiter
}

// evictAfter drops id from visitors d after its limiter was created,
// whether or not the client is still active, keeping the visitor map
// bounded under a long-lived process.
func (rl *RateLimiter) evictAfter(id string, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	<-t.C
	rl.mu.Lock()
	delete(rl.visitors, id)
	rl.mu.Unlock()
}

// clientID identifies the caller for bucketing, preferring a forwarding
// header over the raw remote address the same way gateway middleware does.
func clientID(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if comma := strings.IndexByte(ip, ','); comma > 0 {
			ip = ip[:comma]
		}
		if parsed := net.ParseIP(strings.TrimSpace(ip)); parsed != nil {
			return parsed.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
