package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"predictionmarket/internal/models"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// EngineError maps the engine's failure kinds to HTTP statuses. The kind
// appears verbatim in the message so callers can assert exact reasons.
func EngineError(c *gin.Context, logger *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrMarketNotFound),
		errors.Is(err, models.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidLiquidity),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidTimeRange),
		errors.Is(err, models.ErrInvalidQuestion),
		errors.Is(err, models.ErrInvalidOutcome):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrAlreadyInitialized),
		errors.Is(err, models.ErrNotInitialized),
		errors.Is(err, models.ErrAlreadyResolved),
		errors.Is(err, models.ErrMarketNotOpen),
		errors.Is(err, models.ErrMarketNotExpired),
		errors.Is(err, models.ErrMarketNotResolved):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNoWinningShares),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	Error(c, status, err.Error(), nil)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func boolQueryPtr(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func uintParam(c *gin.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func pageMeta(limit, offset int, total int64) map[string]any {
	return map[string]any{"limit": limit, "offset": offset, "total": total}
}
