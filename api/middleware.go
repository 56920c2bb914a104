package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type RateLimiter struct {
	requests map[string]*ClientRequests
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

type ClientRequests struct {
	count    int
	lastSeen time.Time
}

const (
	maxLoginAttempts = 10              // Maximum login attempts per window
	loginWindow      = time.Minute * 5 // Window duration
)

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string]*ClientRequests),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Limit allows at most limit requests per client address within the window
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := clientAddr(r)

		l.mu.Lock()

		// Clean up old entries
		now := l.now()
		for ip, req := range l.requests {
			if now.Sub(req.lastSeen) > l.window {
				delete(l.requests, ip)
			}
		}

		client, exists := l.requests[clientIP]
		if !exists {
			client = &ClientRequests{lastSeen: now}
			l.requests[clientIP] = client
		}

		reset := client.lastSeen.Add(l.window).UTC().Format(time.RFC3339)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))

		if client.count >= l.limit {
			l.mu.Unlock()
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", reset)
			http.Error(w, "Too many attempts, try again later", http.StatusTooManyRequests)
			return
		}

		client.count++
		client.lastSeen = now
		remaining := l.limit - client.count
		l.mu.Unlock()

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", reset)

		next.ServeHTTP(w, r)
	})
}

// RequireOperatorKey guards operator endpoints with the key from the
// Authorization header. An empty key disables the endpoints.
func RequireOperatorKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validateOperatorKey(key, r.Header.Get("Authorization")) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validateOperatorKey(expected, provided string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
