package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request, tagged with a request id taken from
// X-Request-ID or generated.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	entry := logger.Component(log, "http")
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"remote":     c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.Last().Error()
		}

		e := entry.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			e.Error("request completed")
		case status >= http.StatusBadRequest:
			e.Warn("request completed")
		default:
			e.Info("request completed")
		}
	}
}

// Recovery turns panics into a logged 500.
func Recovery(log logrus.FieldLogger) gin.HandlerFunc {
	entry := logger.Component(log, "http")
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		entry.WithFields(logrus.Fields{
			"panic": recovered,
			"path":  c.Request.URL.Path,
		}).Error("panic while serving request")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "internal server error",
		}})
	})
}
