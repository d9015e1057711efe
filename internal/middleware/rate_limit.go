package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/fingerprint"
	"portfolio-be/pkg/logger"
)

const limiterIdleTTL = 10 * time.Minute

// RateLimiter keeps a token bucket per client address. Buckets are keyed by
// the last proxy hop, not the first X-Forwarded-For entry, so rotating that
// header does not buy a fresh bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	log      *logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per address with the given burst.
// Idle addresses are forgotten after ten minutes.
func NewRateLimiter(perMinute, burst int, log *logger.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:    burst,
		log:      log,
		stop:     make(chan struct{}),
	}

	go rl.cleanupLoop(time.Minute)
	return rl
}

// Middleware rejects requests over the limit with 429 and Retry-After
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reservation := rl.limiterFor(fingerprint.ResolveLastHop(r), time.Now()).Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(delay)))
			writeErrorResponse(w, r, errors.NewRateLimitError("Too many requests"), rl.log)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) limiterFor(addr string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[addr]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[addr] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.evictIdle(now)
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for addr, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, addr)
		}
	}
}
