// Package http wires the gin engine: boundary hardening, access control,
// rate limiting and the error reporter every handler failure funnels into.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/herbario-app/herbario/internal/apperr"
)

// correlationIDKey is the context key holding the request correlation id.
const correlationIDKey = "correlationID"

// ErrorReporter assigns a correlation id to every request and renders any
// error a handler attached as the uniform taxonomy body. Internal detail
// never leaks in production responses.
func ErrorReporter(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Set(correlationIDKey, correlationID)
		c.Writer.Header().Set("X-Correlation-Id", correlationID)

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := apperr.From(c.Errors.Last().Err)

		entry := log.WithFields(log.Fields{
			"code":          appErr.Code,
			"status":        appErr.Status,
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"correlationId": correlationID,
		})
		if appErr.Status >= http.StatusInternalServerError {
			entry.WithError(appErr).Error("request failed")
		} else {
			entry.Info(appErr.Message)
		}

		if c.Writer.Written() {
			return
		}

		body := gin.H{
			"error":         true,
			"code":          appErr.Code,
			"message":       appErr.Message,
			"correlationId": correlationID,
		}
		if production && appErr.Status >= http.StatusInternalServerError {
			body["message"] = "internal server error"
		}
		if !production && len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		c.JSON(appErr.Status, body)
	}
}

// Recovery converts panics into the uniform internal-error response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithFields(log.Fields{
			"panic":         recovered,
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"correlationId": c.GetString(correlationIDKey),
		}).Error("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":         true,
			"code":          apperr.CodeInternal,
			"message":       "internal server error",
			"correlationId": c.GetString(correlationIDKey),
		})
	})
}

// Fail attaches a classified error to the context and stops the chain; the
// reporter renders it once the handlers unwind.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
