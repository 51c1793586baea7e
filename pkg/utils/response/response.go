// Package response writes replies in the platform's RPC wire format: a bare
// JSON result on success, {"id":..,"message":..} on failure.
package response

import (
	"net/http"

	"codeduel/pkg/errors"
	"codeduel/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusRemoteError is the HTTP status the platform uses for business failures.
const StatusRemoteError = http.StatusUnprocessableEntity

// RemoteError is the failure body of an RPC call.
type RemoteError struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

// Success sends data as the bare JSON result.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Empty acknowledges a call that returns nothing.
func Empty(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Fail sends a business failure with the platform error id.
func Fail(c *gin.Context, id int, message string) {
	logger.Warn(c.Request.Context(), "rpc failed",
		zap.Int("remote_id", id),
		zap.String("message", message),
		zap.String("trace_id", getTraceID(c)),
	)
	c.JSON(StatusRemoteError, RemoteError{ID: id, Message: message})
}

// BadRequest rejects malformed arguments.
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = errors.InvalidParams.Message()
	}
	c.JSON(http.StatusBadRequest, RemoteError{ID: int(errors.InvalidParams), Message: message})
}

// NotFound rejects an unknown endpoint.
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = errors.NotFound.Message()
	}
	c.JSON(http.StatusNotFound, RemoteError{ID: int(errors.NotFound), Message: message})
}

// AbortWithFail aborts the chain with a business failure.
func AbortWithFail(c *gin.Context, id int, message string) {
	Fail(c, id, message)
	c.Abort()
}

func getTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}
