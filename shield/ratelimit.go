package shield

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const gcThreshold = 4096

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter provides per-IP fixed-window rate limiting. Buckets live in
// memory; expired ones are swept once the table reaches gcThreshold entries.
type RateLimiter struct {
	max    int
	window time.Duration
	exempt []string // path prefixes excluded from rate limiting
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter allows limit requests per client IP in each window.
func NewRateLimiter(limit int, window time.Duration, exemptPrefixes ...string) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		max:     limit,
		window:  window,
		exempt:  exemptPrefixes,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// sweep drops expired buckets. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) int {
	n := 0
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
			n++
		}
	}
	return n
}

// allow reports whether ip may proceed and, when it may not, how long until
// its window resets.
func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	if rl.max <= 0 {
		return true, 0
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok || now.After(b.resetAt) {
		if !ok && len(rl.buckets) >= gcThreshold {
			rl.sweep(now)
		}
		rl.buckets[ip] = &bucket{count: 1, resetAt: now.Add(rl.window)}
		return true, 0
	}
	b.count++
	if b.count <= rl.max {
		return true, 0
	}
	return false, b.resetAt.Sub(now)
}

// Middleware enforces the limit. Blocked requests get a 429 JSON error with
// Retry-After set to the remaining window in seconds.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exempt {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ip := ClientIP(r)
		ok, wait := rl.allow(ip)
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		GetLogger(r.Context()).Warn("ratelimit: request blocked", "ip", ip, "path", r.URL.Path)

		secs := int(wait.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"error": "rate limit exceeded",
			"kind":  "rate_limited",
		}); err != nil {
			slog.Debug("ratelimit: write response", "error", err)
		}
	})
}

// ClientIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
