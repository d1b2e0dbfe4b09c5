package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/officine/bilan/internal/audit"
	"github.com/officine/bilan/internal/config"
)

const (
	maxEntries      = 10000
	cleanupInterval = time.Minute
	entryTTL        = 5 * time.Minute
)

type rateLimitEntry struct {
	timestamps []time.Time
	lastAccess time.Time
}

// RateLimiter is an in-memory sliding window counter keyed by client address.
type RateLimiter struct {
	mu          sync.Mutex
	store       map[string]*rateLimitEntry
	window      time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

func NewRateLimiter(window time.Duration) *RateLimiter {
	if window <= 0 {
		window = config.RateLimitWindow
	}
	return &RateLimiter{
		store:       make(map[string]*rateLimitEntry),
		window:      window,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}
	rl.lastCleanup = now

	for key, entry := range rl.store {
		if now.Sub(entry.lastAccess) > entryTTL {
			delete(rl.store, key)
		}
	}

	if len(rl.store) > maxEntries {
		drop := len(rl.store) / 5
		for key := range rl.store {
			if drop == 0 {
				break
			}
			delete(rl.store, key)
			drop--
		}
	}
}

func (rl *RateLimiter) Check(key string, limit int) (allowed bool, remaining int, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanup(now)
	windowStart := now.Add(-rl.window)

	entry, exists := rl.store[key]
	if !exists {
		entry = &rateLimitEntry{}
		rl.store[key] = entry
	}
	entry.lastAccess = now

	filtered := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			filtered = append(filtered, ts)
		}
	}
	entry.timestamps = filtered

	resetAt = now.Add(rl.window)
	if len(entry.timestamps) > 0 {
		resetAt = entry.timestamps[0].Add(rl.window)
	}

	if len(entry.timestamps) >= limit {
		return false, 0, resetAt
	}

	entry.timestamps = append(entry.timestamps, now)
	return true, limit - len(entry.timestamps), resetAt
}

const msgTooManyRequests = "Trop de requetes, reessayez plus tard"

// PageRejecter renders a refusal for requests that expect a page.
type PageRejecter func(w http.ResponseWriter, status int, message string)

type IPRateLimitOption func(*IPRateLimitMiddleware)

// WithPageRejection answers rate limited GET requests with a page instead of
// the JSON error body.
func WithPageRejection(fn PageRejecter) IPRateLimitOption {
	return func(m *IPRateLimitMiddleware) { m.rejectPage = fn }
}

type IPRateLimitMiddleware struct {
	limiter    *RateLimiter
	limit      int
	rejectPage PageRejecter
}

func NewIPRateLimitMiddleware(limiter *RateLimiter, limit int, opts ...IPRateLimitOption) *IPRateLimitMiddleware {
	if limit <= 0 {
		limit = config.DefaultRateLimitPerMin
	}
	m := &IPRateLimitMiddleware{limiter: limiter, limit: limit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt := m.limiter.Check(clientIP(r), m.limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Details: map[string]any{"path": r.URL.Path},
			})
			secondsLeft := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(secondsLeft))
			if m.rejectPage != nil && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
				m.rejectPage(w, http.StatusTooManyRequests, msgTooManyRequests)
				return
			}
			rejectJSON(w, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
