package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/askgov/askgov/internal/chat"
	"github.com/askgov/askgov/internal/log"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleEviction  = 10 * time.Minute
)

// ipLimiter hands out one token bucket per client IP. Buckets idle past the
// eviction threshold are swept during allow, so no background goroutine is
// needed.
type ipLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*ipBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// newIPLimiter creates a limiter refilling perSecond tokens up to burst.
func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		buckets:   make(map[string]*ipBucket),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// allow reports whether a request from ip may proceed, consuming a token.
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.Allow()
}

// sweep drops buckets not seen within the eviction threshold. Caller holds
// the mutex.
func (l *ipLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) <= limiterSweepInterval {
		return
	}
	for ip, b := range l.buckets {
		if now.Sub(b.seen) > limiterIdleEviction {
			delete(l.buckets, ip)
		}
	}
	l.lastSweep = now
}

// rateLimitMiddleware rejects requests from IPs that exhausted their bucket.
// The response reuses the chat error taxonomy so HTTP and WebSocket clients
// see the same throttle code and message.
func rateLimitMiddleware(l *ipLimiter, trustProxy bool, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !l.allow(ip) {
				logger.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests,
					chat.KindThrottled.String(), chat.UserMessage(chat.KindThrottled), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP picks the key the limiter buckets on.
//
// Proxy headers are honored only when trustProxy is set, X-Real-IP before
// X-Forwarded-For, and only when they parse as an IP. Anything else falls
// back to RemoteAddr with the port stripped.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, h := range []string{"X-Real-IP", "X-Forwarded-For"} {
			v := r.Header.Get(h)
			if v == "" {
				continue
			}
			if first, _, ok := strings.Cut(v, ","); ok {
				v = first
			}
			if ip := net.ParseIP(strings.TrimSpace(v)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
