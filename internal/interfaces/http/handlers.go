package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/export"
	"github.com/gigledger/taxexport/internal/models"
	"github.com/gigledger/taxexport/internal/taxexport"
)

// ExportService is what the handlers need from the export layer.
type ExportService interface {
	BuildExport(req export.BuildRequest) (*export.BuildResult, error)
	Get(ownerID, exportID string) (*models.Export, error)
	ListByOwner(ownerID string) ([]models.Export, error)
	RenderArtifact(ownerID, exportID, format string) (*export.Artifact, error)
}

// ownerHeader carries the authenticated owner. Authentication itself lives
// in front of this service; an empty header is treated as unauthenticated.
const ownerHeader = "X-Owner-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	exports ExportService
	logger  *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(exports ExportService, logger *zap.Logger) *Handlers {
	return &Handlers{
		exports: exports,
		logger:  logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateExportRequest is the POST body for a new export run.
type CreateExportRequest struct {
	TaxYear                int    `json:"tax_year" binding:"required"`
	Timezone               string `json:"timezone"`
	Basis                  string `json:"basis"`
	IncludeTips            *bool  `json:"include_tips"`
	IncludeFeesAsDeduction bool   `json:"include_fees_as_deduction"`
}

// ExportSummary is one export run in list/detail responses. The package
// itself is served per-format through the artifact endpoints.
type ExportSummary struct {
	ID           string `json:"id"`
	TaxYear      int    `json:"tax_year"`
	Status       string `json:"status"`
	IsValid      bool   `json:"is_valid"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateExport handles POST /api/v1/exports
func (h *Handlers) CreateExport(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)

	var req CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid export request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	// Tips are taxable income; leaving them out is the explicit choice.
	includeTips := true
	if req.IncludeTips != nil {
		includeTips = *req.IncludeTips
	}

	result, err := h.exports.BuildExport(export.BuildRequest{
		OwnerID:                owner,
		TaxYear:                req.TaxYear,
		Timezone:               req.Timezone,
		Basis:                  req.Basis,
		IncludeTips:            includeTips,
		IncludeFeesAsDeduction: req.IncludeFeesAsDeduction,
	})
	if err != nil {
		h.respondError(c, err, "export build failed")
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    result,
	})
}

// ListExports handles GET /api/v1/exports
func (h *Handlers) ListExports(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing owner header",
			Code:    taxexport.CodeNotAuthorized,
		})
		return
	}

	records, err := h.exports.ListByOwner(owner)
	if err != nil {
		h.respondError(c, err, "failed to list exports")
		return
	}

	summaries := make([]ExportSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, toExportSummary(r))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    summaries,
	})
}

// GetExport handles GET /api/v1/exports/:id
func (h *Handlers) GetExport(c *gin.Context) {
	owner := c.GetHeader(ownerHeader)
	id := c.Param("id")

	record, err := h.exports.Get(owner, id)
	if err != nil {
		h.respondError(c, err, "failed to get export")
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toExportSummary(*record),
	})
}

// DownloadArtifact returns a handler for GET /api/v1/exports/:id/<format>.
func (h *Handlers) DownloadArtifact(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(ownerHeader)
		id := c.Param("id")

		artifact, err := h.exports.RenderArtifact(owner, id, format)
		if err != nil {
			h.respondError(c, err, "failed to render artifact")
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
		c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
	}
}

// respondError maps export error codes onto HTTP statuses.
func (h *Handlers) respondError(c *gin.Context, err error, logMsg string) {
	code := taxexport.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case taxexport.CodeNotAuthorized:
		status = http.StatusForbidden
	case taxexport.CodeNonUSDCurrency, taxexport.CodeUnsupported:
		status = http.StatusUnprocessableEntity
	case taxexport.CodeDataLoadFailed:
		status = http.StatusInternalServerError
	}

	h.logger.Error(logMsg,
		zap.String("code", code),
		zap.Int("status", status),
		zap.Error(err))

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
		Code:    code,
	})
}

func toExportSummary(r models.Export) ExportSummary {
	return ExportSummary{
		ID:           r.ID,
		TaxYear:      r.TaxYear,
		Status:       r.Status,
		IsValid:      r.IsValid,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}
