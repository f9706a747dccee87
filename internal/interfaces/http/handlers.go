package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/expenses"
	"github.com/perkwise/backoffice/internal/objectstore"
	"github.com/perkwise/backoffice/internal/timeoffs"
)

// dateLayout is the wire format for calendar dates.
const dateLayout = "2006-01-02"

// Handlers contains all HTTP request handlers.
type Handlers struct {
	expenses *expenses.Service
	timeoffs *timeoffs.Service
	files    *objectstore.Local
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	expenseService *expenses.Service,
	timeoffService *timeoffs.Service,
	files *objectstore.Local,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		expenses: expenseService,
		timeoffs: timeoffService,
		files:    files,
		logger:   logger,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	respondOK(c, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	})
}

// PutFile handles PUT /files/*key, the upload half of the local file
// gateway. The HMAC token from the presigned URL is the only credential.
func (h *Handlers) PutFile(c *gin.Context) {
	key, ok := h.verifySignedRequest(c, http.MethodPut)
	if !ok {
		return
	}

	if err := h.files.Put(key, c.Request.Body); err != nil {
		h.logger.Error("Failed to store attachment", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to store file"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// GetFile handles GET /files/*key.
func (h *Handlers) GetFile(c *gin.Context) {
	key, ok := h.verifySignedRequest(c, http.MethodGet)
	if !ok {
		return
	}

	f, err := h.files.Get(key)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		h.logger.Error("Failed to stream attachment", zap.String("key", key), zap.Error(err))
	}
}

func (h *Handlers) verifySignedRequest(c *gin.Context, method string) (string, bool) {
	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}

	var q struct {
		Signature string `form:"signature" binding:"required"`
		Expires   int64  `form:"expires" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBadRequest(c, "missing signature parameters")
		return "", false
	}

	if !h.files.Verify(method, key, q.Signature, q.Expires) {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "invalid or expired signature"})
		return "", false
	}
	return key, true
}
