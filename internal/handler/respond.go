package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "intake/internal/errors"
	"intake/internal/logging"
	"intake/internal/service"
)

// statusCode maps a service error onto an HTTP status
func statusCode(err error) int {
	switch {
	case apperrors.IsValidationError(err):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrSessionClosed):
		return http.StatusGone
	case apperrors.Is(err, apperrors.ErrStaleResult):
		return http.StatusConflict
	case apperrors.IsMalformedResponse(err):
		return http.StatusUnprocessableEntity
	case apperrors.Is(err, service.ErrAuditUnavailable):
		return http.StatusServiceUnavailable
	case apperrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case apperrors.IsNetworkFailure(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status line staff would see
func respondError(c *gin.Context, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("❌ Request failed")
	}
	c.JSON(code, gin.H{"error": err.Error(), "status": apperrors.StatusMessage(err)})
}

// bindError answers a request body or query that failed to bind
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}

// intParam parses a numeric path parameter, answering 400 when it is not one
func intParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// startSSE sets the event stream headers and returns the flusher
func startSSE(c *gin.Context) (http.Flusher, bool) {
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return nil, false
	}
	return flusher, true
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
