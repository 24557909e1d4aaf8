package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"skillswap/internal/app/commands"
	"skillswap/internal/app/queries"
	"skillswap/internal/domain/shared/errs"
	"skillswap/internal/infra/obs"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch errs.Kind(err) {
	case errs.ErrValidation:
		return http.StatusBadRequest
	case errs.ErrUnauthenticated:
		return http.StatusUnauthorized
	case errs.ErrForbidden:
		return http.StatusForbidden
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrInvalidState, errs.ErrConflict:
		return http.StatusConflict
	}
	if errors.Is(err, commands.ErrHandlerNotFound) || errors.Is(err, queries.ErrHandlerNotFound) {
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Unclassified errors are logged and
// their message hidden.
func respondError(c *gin.Context, logger *slog.Logger, err error, op string, attrs ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			attrs = append(attrs, "op", op, "request_id", obs.RequestIDFromContext(c.Request.Context()), "error", err)
			logger.Error("request failed", attrs...)
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseInt64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}
