package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/finvault/ledgerd/internal/apperrors"
	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuth authenticates requests using the X-API-Key header. Callers are
// validated before any core operation runs; the engine itself assumes the
// request is already authorized.
func APIKeyAuth(keySvc portssvc.APIKeySvc, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if disabled {
			c.Next()
			return
		}

		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "Missing API key",
				"detail": "Include valid '" + apiKeyHeader + "' header",
			})
			return
		}

		if err := keySvc.ValidateKey(c.Request.Context(), key); err != nil {
			// An unavailable key store is not a bad credential.
			if !errors.Is(err, apperrors.ErrNotFound) {
				GetLoggerFromCtx(c.Request.Context()).Error("API key validation failed",
					slog.String("error", err.Error()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				return
			}
			GetLoggerFromCtx(c.Request.Context()).Warn("API key rejected",
				slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "Invalid API key",
				"detail": "Include valid '" + apiKeyHeader + "' header",
			})
			return
		}

		c.Next()
	}
}
