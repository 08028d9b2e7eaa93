package ui

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"dataanalyst/domain/core"
	"dataanalyst/internal/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	sessionCookie = "dataanalyst_session"
	themeCookie   = "dataanalyst_theme"
	sessionKey    = "session_id"
)

// sessionMiddleware issues the browser session cookie and stores the
// session ID in the gin context
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	maxAge := int(s.cfg.Session.TTL / time.Second)
	return func(c *gin.Context) {
		raw, _ := c.Cookie(sessionCookie)
		id, err := core.ParseSessionID(raw)
		if err != nil {
			id = core.NewSessionID()
		}
		// refreshed on every request so an active session never expires
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id.String(), maxAge, "/", "", s.cfg.Session.CookieSecure, true)
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) core.SessionID {
	if v, ok := c.Get(sessionKey); ok {
		if id, ok := v.(core.SessionID); ok {
			return id
		}
	}
	return ""
}

// limitBody caps the request body at the configured upload size
func (s *Server) limitBody() gin.HandlerFunc {
	limit := s.cfg.Upload.MaxBytes()
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// clientLimiter tracks a per-client rate limiter and when it was last seen.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdle = 10 * time.Minute

// rateLimiter enforces a per-client token bucket. Rejected requests get
// 429 with a Retry-After header.
func rateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		clients   = make(map[string]*clientLimiter)
		lastPrune = time.Now()
	)

	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		if now.Sub(lastPrune) > limiterIdle {
			for key, cl := range clients {
				if now.Sub(cl.lastSeen) > limiterIdle {
					delete(clients, key)
				}
			}
			lastPrune = now
		}

		if cl, ok := clients[ip]; ok {
			cl.lastSeen = now
			return cl.limiter
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		clients[ip] = &clientLimiter{limiter: limiter, lastSeen: now}
		return limiter
	}

	return func(c *gin.Context) {
		limiter := getLimiter(clientIP(c.Request))

		reservation := limiter.Reserve()
		if !reservation.OK() {
			tooManyRequests(c, 0)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			tooManyRequests(c, int(delay.Seconds())+1)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))
		c.Next()
	}
}

// clientIP uses RemoteAddr only; forwarded headers can be spoofed
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func tooManyRequests(c *gin.Context, retryAfter int) {
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(retryAfter))
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"code":    http.StatusTooManyRequests,
		"message": "rate limit exceeded",
	})
}
