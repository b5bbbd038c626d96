package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/k4ledger/internal/domain/dto"
	"github.com/guttosm/k4ledger/internal/logger"
)

// ErrorHandler turns errors attached with c.Error into a JSON ErrorResponse
// when the handler did not write a response itself.
//
// Behavior:
//   - Runs after the handler chain.
//   - An attached dto.ErrorResponse is returned as is; anything else is
//     wrapped as "Internal server error".
//   - The status is kept when the handler set a 4xx/5xx, otherwise 500.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	last := c.Errors.Last().Err

	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}

	var resp dto.ErrorResponse
	if !errors.As(last, &resp) {
		resp = dto.NewErrorResponse("Internal server error", last)
	}

	rid, _ := c.Get(RequestIDKey)
	logger.L().Error().
		Str("request_id", toString(rid)).
		Str("path", c.Request.URL.Path).
		Int("status", status).
		Err(last).
		Msg("request failed")

	c.JSON(status, resp)
}

// AbortWithError stops the chain and writes an ErrorResponse with status.
//
// Example:
//
//	middleware.AbortWithError(c, http.StatusBadRequest, "invalid year", err)
func AbortWithError(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
