package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// defaultMaxClients caps how many client buckets the limiter tracks, so a
// scan across many source addresses cannot exhaust memory.
const defaultMaxClients = 100_000

// RateLimiter applies a per-client token bucket to the agent API. Each
// client address refills at a sustained rate and may burst up to the bucket
// size; requests beyond that are answered with 429 so one runaway caller
// cannot monopolize the execution budget.
type RateLimiter struct {
	rate       float64
	burst      int
	maxClients int
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket
}

// bucket is the running token count for one client address.
type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per second with
// bursts up to burst per client.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		maxClients: defaultMaxClients,
		now:        time.Now,
		clients:    make(map[string]*bucket),
	}
}

// Handler enforces the limit and reports the bucket state through the usual
// X-RateLimit response headers.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, wait, ok := rl.take(clientIP(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(time.Second).Unix(), 10))

		if !ok {
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(wait)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take consumes one token for the client, refilling by elapsed time first.
// It returns the tokens left, the seconds until the next token when denied,
// and whether the request may proceed.
func (rl *RateLimiter) take(client string) (remaining int, wait float64, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.clients[client]
	if !exists {
		// At capacity, new clients are denied instead of evicting a
		// tracked one.
		if len(rl.clients) >= rl.maxClients {
			return 0, 1 / rl.rate, false
		}
		b = &bucket{tokens: float64(rl.burst) - 1, last: now}
		rl.clients[client] = b
		return int(b.tokens), 0, true
	}

	b.tokens += now.Sub(b.last).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.last = now

	if b.tokens < 1 {
		return 0, (1 - b.tokens) / rl.rate, false
	}

	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup evicts buckets idle longer than maxIdle on every interval
// tick. The returned function stops the sweeper.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.sweep(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) sweep(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for client, b := range rl.clients {
		if b.last.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}

// Len reports how many client buckets are live.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientIP keys buckets by RemoteAddr only. Forwarding headers are client
// controlled and would let a caller rotate identities at will.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
