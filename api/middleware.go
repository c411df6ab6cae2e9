package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// recoverPanic turns a downstream panic into a clean 500 response instead
// of a silently dropped connection.
func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				s.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestID tags every request with a fresh UUID, echoes it in the
// X-Request-ID header and logs the request with it.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		s.logger.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
		)
		next.ServeHTTP(w, r)
	})
}

// client holds a per-IP rate limiter and the time it was last seen, so
// stale entries can be evicted.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimit applies per-IP token-bucket rate limiting using the
// configured rate and burst. Stale entries are evicted inline at most
// once a minute while the map lock is held, so no background goroutine
// outlives the handler.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	var (
		mu          sync.Mutex
		clients     = make(map[string]*client)
		lastEvicted = time.Now()
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			s.serverErrorResponse(w, r, err)
			return
		}

		mu.Lock()
		if time.Since(lastEvicted) > time.Minute {
			for ip, c := range clients {
				if time.Since(c.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			lastEvicted = time.Now()
		}
		if _, found := clients[ip]; !found {
			clients[ip] = &client{limiter: rate.NewLimiter(rate.Limit(s.cfg.RateRPS), s.cfg.RateBurst)}
		}
		clients[ip].lastSeen = time.Now()

		if !clients[ip].limiter.Allow() {
			mu.Unlock()
			s.rateLimitExceededResponse(w, r)
			return
		}
		mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
