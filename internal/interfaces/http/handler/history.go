package handler

import (
	"context"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HistoryService reads recorded batch runs
type HistoryService interface {
	List(ctx context.Context, q batch.RunQuery) (shared.Paginated[bulk.BatchRun], error)
	Get(ctx context.Context, id uuid.UUID) (*bulk.BatchRun, error)
	LogDownload(ctx context.Context, id uuid.UUID) (*batch.DownloadLink, error)
	UploadDownload(ctx context.Context, id uuid.UUID) (*batch.DownloadLink, error)
}

// RunListRequest holds the batch history query parameters
type RunListRequest struct {
	dto.ListRequest
	Operation string `form:"operation"`
	RunBy     string `form:"run_by" binding:"max=20"`
}

// HistoryHandler serves the batch run history
type HistoryHandler struct {
	BaseHandler
	history HistoryService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List godoc
// @Summary      List batch runs
// @Description  Newest first, without logs
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        operation query string false "Batch operation"
// @Param        run_by query string false "User id"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50)
// @Success      200 {object} APIResponse[[]bulk.BatchRun]
// @Router       /batches [get]
func (h *HistoryHandler) List(c *gin.Context) {
	var req RunListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	page, err := h.history.List(c.Request.Context(), batch.RunQuery{
		Filter:    req.Filter(),
		Operation: req.Operation,
		RunBy:     req.RunBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, &page)
}

// Get godoc
// @Summary      Get a batch run with its log
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Run ID"
// @Success      200 {object} APIResponse[bulk.BatchRun]
// @Failure      404 {object} ErrorResponse
// @Router       /batches/{id} [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	run, err := h.history.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, run)
}

// LogDownload godoc
// @Summary      Presigned link to the archived log
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Run ID"
// @Success      200 {object} APIResponse[batch.DownloadLink]
// @Failure      404 {object} ErrorResponse
// @Router       /batches/{id}/log [get]
func (h *HistoryHandler) LogDownload(c *gin.Context) {
	h.download(c, h.history.LogDownload)
}

// UploadDownload godoc
// @Summary      Presigned link to the archived upload
// @Tags         batches
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Run ID"
// @Success      200 {object} APIResponse[batch.DownloadLink]
// @Failure      404 {object} ErrorResponse
// @Router       /batches/{id}/upload [get]
func (h *HistoryHandler) UploadDownload(c *gin.Context) {
	h.download(c, h.history.UploadDownload)
}

func (h *HistoryHandler) download(c *gin.Context, fn func(context.Context, uuid.UUID) (*batch.DownloadLink, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	link, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}
