package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger returns a middleware that logs HTTP requests. Request bodies are
// never logged since they carry customer names.
func Logger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		logger := base.With().
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("user_agent", c.Request.UserAgent())
		if tenant, ok := c.Get(ContextTenantID); ok {
			logger = logger.Interface("tenant_id", tenant)
		}
		l := logger.Logger()

		// Log based on status code
		switch {
		case statusCode >= 500:
			l.Error().Strs("errors", c.Errors.Errors()).Msg("Server error")
		case statusCode >= 400:
			l.Warn().Str("error", c.Errors.String()).Msg("Client error")
		default:
			l.Info().Msg("Request processed")
		}
	}
}
