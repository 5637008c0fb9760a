package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"go-outreach-automation/internal/relayer"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const employeeKey = "employee_id"

// relayerAuth requires X-Employee-ID and, when a key is configured, a matching
// X-Relayer-API-Key. Production refuses relayers outright if no key is configured.
func (s *Server) relayerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		employee := strings.TrimSpace(c.GetHeader(relayer.HeaderEmployeeID))
		if employee == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing "+relayer.HeaderEmployeeID+" header")
			return
		}
		switch {
		case s.cfg.RelayerAPIKey != "":
			key := c.GetHeader(relayer.HeaderAPIKey)
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.RelayerAPIKey)) != 1 {
				abort(c, http.StatusUnauthorized, "unauthorized", "invalid relayer API key")
				return
			}
		case s.cfg.production():
			abort(c, http.StatusUnauthorized, "unauthorized", "relayer API key is not configured")
			return
		}
		c.Set(employeeKey, employee)
		c.Next()
		s.Metrics.RelayerRequest(relayerRoute(c.FullPath()), c.Writer.Status())
	}
}

// relayerRoute strips the group prefix and path params: "/api/relayer/mark-failed/:id" -> "mark-failed".
func relayerRoute(full string) string {
	full = strings.TrimPrefix(full, "/api/relayer/")
	if i := strings.Index(full, "/"); i >= 0 {
		full = full[:i]
	}
	return full
}

func employeeID(c *gin.Context) string { return c.GetString(employeeKey) }

// rateLimit shares one token bucket between all callers of the group. A caller over the
// rate waits for its slot instead of being turned away.
func rateLimit(rpm int) gin.HandlerFunc {
	if rpm <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	return func(c *gin.Context) {
		if err := limiter.Wait(c.Request.Context()); err != nil {
			abort(c, http.StatusServiceUnavailable, "rate_limited", "discovery request abandoned while waiting for its turn: "+err.Error())
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" {
			return
		}
		status := c.Writer.Status()
		log := s.Log.Debugw
		if status >= http.StatusInternalServerError {
			log = s.Log.Warnw
		}
		log("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	}
}
