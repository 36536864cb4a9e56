package restapi

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"raptor.transitrouter.org/internal/app"
	"raptor.transitrouter.org/internal/clock"
	"raptor.transitrouter.org/internal/models"
)

const limiterIdleTimeout = 10 * time.Minute

// rateLimitClient tracks the limiter and its last usage time so idle
// clients can be evicted.
type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nanoseconds
}

// RateLimitMiddleware limits requests per API key. Requests without a key
// are limited per client IP.
type RateLimitMiddleware struct {
	limiters    map[string]*rateLimitClient
	mu          sync.RWMutex
	rateLimit   rate.Limit
	burstSize   int
	cleanupTick *time.Ticker
	exemptKeys  map[string]bool
	stopChan    chan struct{}
	stopOnce    sync.Once
	clock       clock.Clock
}

// NewRateLimitMiddleware allows ratePerSecond requests per interval and key,
// with bursts of the same size. A rate of zero or less disables limiting.
func NewRateLimitMiddleware(ratePerSecond int, interval time.Duration, exemptKeys []string, clk clock.Clock) *RateLimitMiddleware {
	rateLimit := rate.Inf
	if ratePerSecond > 0 {
		rateLimit = rate.Every(interval / time.Duration(ratePerSecond))
	}

	exemptMap := make(map[string]bool)
	for _, key := range exemptKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			exemptMap[trimmed] = true
		}
	}

	middleware := &RateLimitMiddleware{
		limiters:    make(map[string]*rateLimitClient),
		rateLimit:   rateLimit,
		burstSize:   max(ratePerSecond, 1),
		cleanupTick: time.NewTicker(5 * time.Minute),
		exemptKeys:  exemptMap,
		stopChan:    make(chan struct{}),
		clock:       clk,
	}

	go middleware.cleanup()

	return middleware
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return rl.rateLimitHandler
}

// clientKey identifies who a request counts against.
func clientKey(r *http.Request) string {
	if key := app.APIKeyFromRequest(r); key != "" {
		return "key:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// getLimiter gets or creates the limiter of a client and marks it as seen.
func (rl *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	now := rl.clock.Now().UnixNano()

	rl.mu.RLock()
	if client, exists := rl.limiters[key]; exists {
		client.lastSeen.Store(now)
		rl.mu.RUnlock()
		return client.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Another goroutine might have created it while we were waiting for the lock.
	if client, exists := rl.limiters[key]; exists {
		client.lastSeen.Store(now)
		return client.limiter
	}

	client := &rateLimitClient{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
	client.lastSeen.Store(now)
	rl.limiters[key] = client
	return client.limiter
}

func (rl *RateLimitMiddleware) rateLimitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.rateLimit == rate.Inf || rl.exemptKeys[app.APIKeyFromRequest(r)] {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.getLimiter(clientKey(r)).AllowN(rl.clock.Now(), 1) {
			rl.sendRateLimitExceeded(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	retryAfter := max(int(time.Duration(float64(time.Second)/float64(rl.rateLimit)).Seconds()), 1)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	response := models.NewResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil, rl.clock)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// cleanupOnce removes limiters idle for longer than limiterIdleTimeout.
func (rl *RateLimitMiddleware) cleanupOnce() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for key, client := range rl.limiters {
		lastSeen := client.lastSeen.Load()
		if lastSeen == 0 {
			continue
		}
		if now.Sub(time.Unix(0, lastSeen)) > limiterIdleTimeout {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanupOnce()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call multiple times.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
		rl.cleanupTick.Stop()
	})
}
