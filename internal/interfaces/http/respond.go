package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/domain/apperr"
)

// Response represents a standard JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps a domain error to a status code. Capacity and quota
// rejections carry the remaining headroom so clients can show it.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var capacity *apperr.CapacityExceededError
	if errors.As(err, &capacity) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   capacity.Error(),
			Details: gin.H{
				"category":  capacity.Category,
				"limit":     capacity.Limit,
				"used":      capacity.Used,
				"remaining": capacity.Remaining(),
			},
		})
		return
	}

	var quota *apperr.QuotaExceededError
	if errors.As(err, &quota) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   quota.Error(),
			Details: gin.H{
				"type":      quota.Type,
				"max":       quota.Max,
				"used":      quota.Used,
				"remaining": quota.Remaining(),
			},
		})
		return
	}

	status := http.StatusInternalServerError
	msg := err.Error()
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindDependency:
		status = http.StatusBadGateway
	default:
		logger.Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}

	c.JSON(status, Response{Success: false, Error: msg})
}
