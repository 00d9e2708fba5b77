package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/infrastructure/logger"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ImportService turns uploaded spreadsheets into batches
type ImportService interface {
	Sales(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error)
	Statement(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error)
	Cancellations(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error)
	Edits(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error)
	Deletes(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error)
	Rules(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error)
}

// BatchResponse is the outcome of a batch endpoint
type BatchResponse struct {
	RunID           string             `json:"run_id,omitempty"`
	Status          bulk.RunStatus     `json:"status"`
	Report          ledger.BatchReport `json:"report"`
	LogURL          string             `json:"log_url,omitempty"`
	LogURLExpiresAt *time.Time         `json:"log_url_expires_at,omitempty"`
}

// UploadHandler handles spreadsheet uploads
type UploadHandler struct {
	BaseHandler
	imports   ImportService
	maxUpload int64
}

// NewUploadHandler creates an upload handler. maxUpload bounds the file size in bytes.
func NewUploadHandler(imports ImportService, maxUpload int64) *UploadHandler {
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &UploadHandler{imports: imports, maxUpload: maxUpload}
}

type importFunc func(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error)

func (h *UploadHandler) handle(c *gin.Context, fn importFunc) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	upload, ok := h.readUpload(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), actor, upload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.writeBatch(c, res)
}

// Sales godoc
// @Summary      Upload sales
// @Description  Generates the 12-installment schedule of each sale row. The whole file is one transaction.
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Sales sheet (.xlsx or .csv)"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Router       /uploads/sales [post]
func (h *UploadHandler) Sales(c *gin.Context) {
	h.handle(c, h.imports.Sales)
}

// Statement godoc
// @Summary      Upload administrator statement
// @Description  Reconciles statement rows against pending installments
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Statement sheet (.xlsx or .csv)"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /uploads/statement [post]
func (h *UploadHandler) Statement(c *gin.Context) {
	h.handle(c, h.imports.Statement)
}

// Cancellations godoc
// @Summary      Upload cancellations
// @Description  Cancels sales by group and quota, applying the chargeback where due
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Cancellation sheet (.xlsx or .csv)"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /uploads/cancellations [post]
func (h *UploadHandler) Cancellations(c *gin.Context) {
	h.handle(c, h.imports.Cancellations)
}

// Edits godoc
// @Summary      Upload installment edits
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Edit sheet (.xlsx or .csv)"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /uploads/edits [post]
func (h *UploadHandler) Edits(c *gin.Context) {
	h.handle(c, h.imports.Edits)
}

// Deletes godoc
// @Summary      Upload installment deletions
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Sheet with an id column (.xlsx or .csv)"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /uploads/deletes [post]
func (h *UploadHandler) Deletes(c *gin.Context) {
	h.handle(c, h.imports.Deletes)
}

// Rules godoc
// @Summary      Upload the rules catalog
// @Description  Each row replaces the rule set of its product type
// @Tags         rules
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Rules sheet (.xlsx or .csv)"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /rules/import [post]
func (h *UploadHandler) Rules(c *gin.Context) {
	h.handle(c, h.imports.Rules)
}

// readUpload reads the multipart "file" field
func (h *UploadHandler) readUpload(c *gin.Context) (*batch.Upload, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, "Missing multipart field \"file\"")
		return nil, false
	}
	if fh.Size > h.maxUpload {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge,
			fmt.Sprintf("File exceeds the %d byte limit", h.maxUpload))
		return nil, false
	}
	if _, err := spreadsheet.ParseFormat(fh.Filename); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, err.Error())
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, "Unable to read uploaded file")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidFile, "Unable to read uploaded file")
		return nil, false
	}
	if int64(len(data)) > h.maxUpload {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge,
			fmt.Sprintf("File exceeds the %d byte limit", h.maxUpload))
		return nil, false
	}
	return &batch.Upload{FileName: filepath.Base(fh.Filename), Data: data}, true
}

// writeBatch answers with the batch log, as JSON unless ?format asks for a sheet
func (h *BaseHandler) writeBatch(c *gin.Context, res *batch.Result) {
	if res.Run != nil {
		c.Set(logger.GinBatchIDKey, res.Run.ID.String())
	}
	if f := c.Query("format"); f != "" && f != "json" {
		format, err := spreadsheet.ParseFormat(f)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		data, err := batch.RenderLog(res.Report, format)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		name := "log"
		if res.Report.Operation != "" {
			name = res.Report.Operation + "_log"
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
		c.Data(http.StatusOK, format.ContentType(), data)
		return
	}
	h.Success(c, toBatchResponse(res))
}

func toBatchResponse(res *batch.Result) BatchResponse {
	resp := BatchResponse{
		Status:          bulk.RunStatusCompleted,
		Report:          res.Report,
		LogURL:          res.LogURL,
		LogURLExpiresAt: res.LogURLExpiresAt,
	}
	if resp.Report.Log == nil {
		resp.Report.Log = []ledger.LogEntry{}
	}
	if res.Run != nil {
		resp.RunID = res.Run.ID.String()
		resp.Status = res.Run.Status
	}
	return resp
}
