package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/expenses"
	"github.com/perkwise/backoffice/internal/models"
)

// CreateInvoiceRequest is the body for POST /api/invoices.
type CreateInvoiceRequest struct {
	Category      string          `json:"category" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Description   string          `json:"description"`
	AttachmentKey string          `json:"attachmentKey"`
}

// CreateInvoice handles POST /api/invoices.
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	identity := callerIdentity(c)
	id, err := h.expenses.CreateInvoice(c.Request.Context(), expenses.CreateInvoiceInput{
		UserID:        identity.UserID,
		Category:      models.CategoryID(req.Category),
		Amount:        req.Amount,
		Description:   req.Description,
		AttachmentKey: req.AttachmentKey,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondCreated(c, gin.H{"id": id})
}

// GetInvoiceData handles GET /api/invoices.
func (h *Handlers) GetInvoiceData(c *gin.Context) {
	identity := callerIdentity(c)

	year := time.Now().UTC().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, "invalid year")
			return
		}
		year = parsed
	}

	var statuses []models.InvoiceStatus
	for _, raw := range c.QueryArray("status") {
		status := models.InvoiceStatus(raw)
		if !status.Valid() {
			respondBadRequest(c, "unknown status "+raw)
			return
		}
		statuses = append(statuses, status)
	}

	data, err := h.expenses.GetInvoiceData(c.Request.Context(), identity.UserID, year, statuses)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, data)
}

// UpdateInvoiceStatusRequest is the body for PUT /api/admin/invoices/:id/status.
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateInvoiceStatus handles PUT /api/admin/invoices/:id/status.
func (h *Handlers) UpdateInvoiceStatus(c *gin.Context) {
	var req UpdateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	identity := callerIdentity(c)
	err := h.expenses.UpdateInvoiceStatus(c.Request.Context(), identity, c.Param("id"), models.InvoiceStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, nil)
}

// DeleteInvoice handles DELETE /api/invoices/:id.
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	identity := callerIdentity(c)
	if err := h.expenses.DeleteInvoice(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, nil)
}

// ListCategories handles GET /api/admin/categories.
func (h *Handlers) ListCategories(c *gin.Context) {
	identity := callerIdentity(c)
	categories, err := h.expenses.ListCategories(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, categories)
}

// UpdateCategoryLimitRequest is the body for PUT /api/admin/categories/:id/limit.
type UpdateCategoryLimitRequest struct {
	Limit decimal.Decimal `json:"limit" binding:"required"`
}

// UpdateCategoryLimit handles PUT /api/admin/categories/:id/limit.
func (h *Handlers) UpdateCategoryLimit(c *gin.Context) {
	var req UpdateCategoryLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	identity := callerIdentity(c)
	result, err := h.expenses.UpdateCategoryLimit(c.Request.Context(), identity, models.CategoryID(c.Param("id")), req.Limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, result)
}

// PresignAttachmentRequest is the body for POST /api/attachments/presign.
type PresignAttachmentRequest struct {
	Hash     string `json:"hash" binding:"required"`
	MimeType string `json:"mimeType"`
}

// PresignAttachment handles POST /api/attachments/presign.
func (h *Handlers) PresignAttachment(c *gin.Context) {
	var req PresignAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	handle, err := h.files.PresignUpload(c.Request.Context(), req.Hash, req.MimeType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, handle)
}

// GenerateReport handles GET /api/admin/reports.
func (h *Handlers) GenerateReport(c *gin.Context) {
	start, err := time.Parse(dateLayout, c.Query("start"))
	if err != nil {
		respondBadRequest(c, "invalid start date, want YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, c.Query("end"))
	if err != nil {
		respondBadRequest(c, "invalid end date, want YYYY-MM-DD")
		return
	}

	identity := callerIdentity(c)
	rows, err := h.expenses.GenerateReport(c.Request.Context(), identity, start, end)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	var (
		payload     []byte
		contentType string
	)
	switch format {
	case "csv":
		payload, err = expenses.RenderCSV(rows)
		contentType = "text/csv"
	case "xlsx":
		payload, err = expenses.RenderXLSX(rows)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		respondBadRequest(c, "unknown format "+format)
		return
	}
	if err != nil {
		h.logger.Error("Failed to render report", zap.String("format", format), zap.Error(err))
		respondError(c, h.logger, err)
		return
	}

	filename := "expenses-" + start.Format(dateLayout) + "-" + end.Format(dateLayout) + "." + format
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, contentType, payload)
}
