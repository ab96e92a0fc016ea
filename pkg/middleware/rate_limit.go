package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "dogfordate/pkg/errors"
	"dogfordate/pkg/logger"
)

// KeyExtractor picks the identity a request is rate limited by.
type KeyExtractor func(r *http.Request) string

// RateLimiter is a sliding-window limiter keyed by caller identity.
type RateLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	extractor KeyExtractor
	log       *logger.Logger
	now       func() time.Time
	stopOnce  sync.Once
	stopCh    chan struct{}
}

func NewRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *RateLimiter {
	if extractor == nil {
		extractor = AccountOrAddress
	}
	limiter := &RateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, timestamps := range rl.requests {
		if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) >= rl.window {
			delete(rl.requests, key)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow records a request for key and reports whether it is within budget.
// The check and the record happen under one lock.
func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	timestamps := rl.requests[key]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func RateLimit(limiter *RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limiter.extractor(r)
			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
				reject(w, limiter.log, r, apperrors.TooManyRequests("Rate limit exceeded"), "key", key)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccountOrAddress limits authenticated callers per account and anonymous
// ones per remote host.
func AccountOrAddress(r *http.Request) string {
	if id := accountID(r); id != "" {
		return "account:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
