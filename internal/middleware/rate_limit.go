package middleware

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anavel898/project-management-dashboard/internal/auth"
)

// RateLimit returns middleware that rate limits requests by client IP.
// Keys are scoped by path so /login and /auth have separate budgets.
// Returns 429 Too Many Requests with a Retry-After of the seconds until the
// oldest counted attempt expires.
func RateLimit(rl *auth.RateLimiter, maxAttempts int, window time.Duration, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)

			if err := rl.CheckLimit(RateLimitKey(r.URL.Path, ip), maxAttempts, window); err != nil {
				retry := window
				var limited *auth.RateLimitError
				if errors.As(err, &limited) {
					retry = limited.RetryAfter
				}
				log.WithFields(logrus.Fields{"ip": ip, "method": r.Method, "path": r.URL.Path, "retry_after": retry}).Warn("rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeDetail(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitKey is the limiter key for a path and client IP. Handlers use
// it to reset the budget after a successful login.
func RateLimitKey(path, ip string) string {
	return path + "|" + ip
}

// GetClientIP extracts the client IP address from the request.
// Checks X-Forwarded-For (first IP), X-Real-IP, then RemoteAddr.
func GetClientIP(r *http.Request) string {
	// X-Forwarded-For: client, proxy1, proxy2
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
