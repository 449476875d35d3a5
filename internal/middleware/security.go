// Package middleware holds the gin middleware stack: security headers,
// request-size/content-type validation, a correlation-id middleware, and an
// IP-based sliding-window rate limiter. Adapted from the teacher's
// internal/middleware/security.go with its JWT/RBAC layers removed —
// authentication is an explicit spec non-goal — while keeping its
// sliding-window rate-limit shape and header set.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhaozkTHU/oj/internal/telemetry"
)

type Security struct{}

func NewSecurity() *Security {
	return &Security{}
}

func (s *Security) SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

func (s *Security) ValidateRequestSize(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request too large"})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

func (s *Security) ValidateContentType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
			contentType := c.GetHeader("Content-Type")
			if contentType == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Content-Type header required"})
				c.Abort()
				return
			}
			ok := false
			for _, a := range allowed {
				if strings.HasPrefix(contentType, a) {
					ok = true
					break
				}
			}
			if !ok {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{
					"error": fmt.Sprintf("Content-Type %s not allowed", contentType),
				})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// ipWindow is a per-IP sliding window of recent request timestamps.
type ipWindow struct {
	requests []time.Time
}

// RateLimit is a basic per-client-IP sliding-window limiter, the same
// shape as the teacher's JWTRateLimit but keyed on remote address instead
// of a JWT subject (there is no authenticated subject in this service).
func (s *Security) RateLimit(requestsPerMinute int) gin.HandlerFunc {
	var mu sync.Mutex
	windows := make(map[string]*ipWindow)

	return func(c *gin.Context) {
		ip := clientIP(c.Request)
		now := time.Now()

		mu.Lock()
		w, ok := windows[ip]
		if !ok {
			w = &ipWindow{}
			windows[ip] = w
		}
		cutoff := now.Add(-time.Minute)
		fresh := w.requests[:0]
		for _, t := range w.requests {
			if t.After(cutoff) {
				fresh = append(fresh, t)
			}
		}
		w.requests = fresh

		if len(w.requests) >= requestsPerMinute {
			mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		w.requests = append(w.requests, now)
		if len(windows) > 10000 {
			pruneStale(windows, cutoff)
		}
		mu.Unlock()

		c.Next()
	}
}

func pruneStale(windows map[string]*ipWindow, cutoff time.Time) {
	for ip, w := range windows {
		if len(w.requests) == 0 || w.requests[len(w.requests)-1].Before(cutoff) {
			delete(windows, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// CorrelationID attaches a request id (incoming X-Request-ID or a fresh
// uuid) to the request context and echoes it back on the response,
// grounded in the teacher's CorrelationIDMiddleware.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = telemetry.NewCorrelationID()
		}
		ctx := telemetry.WithCorrelationID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
