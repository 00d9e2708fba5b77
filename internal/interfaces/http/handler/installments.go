package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/consorcio/backend/internal/application/batch"
	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// LedgerService answers installment queries and runs the settlement batches
type LedgerService interface {
	List(ctx context.Context, actor identity.Actor, q ledgerapp.ListQuery) (*shared.Paginated[ledgerapp.InstallmentView], error)
	Get(ctx context.Context, actor identity.Actor, id string) (*ledgerapp.InstallmentView, error)
	Summary(ctx context.Context, actor identity.Actor) (ledger.Summary, error)
	Alerts(ctx context.Context, actor identity.Actor) ([]ledgerapp.InstallmentView, error)
	Commissions(ctx context.Context, actor identity.Actor, q ledgerapp.CommissionQuery) ([]ledger.Commission, error)
	Export(ctx context.Context, actor identity.Actor, q ledgerapp.ListQuery, format spreadsheet.Format, w io.Writer) error
	SetClientStatus(ctx context.Context, actor identity.Actor, ids []string, status ledger.Status) (*batch.Result, error)
	SettlePayouts(ctx context.Context, actor identity.Actor, updates []ledger.PayoutUpdate) (*batch.Result, error)
}

// InstallmentListRequest holds the listing query parameters
type InstallmentListRequest struct {
	dto.ListRequest
	SaleID        string `form:"sale_id" binding:"max=100"`
	ClientID      string `form:"client_id" binding:"max=20"`
	SalespersonID string `form:"salesperson_id" binding:"max=20"`
	ReceiptStatus string `form:"receipt_status" binding:"omitempty,ledger_status"`
	ClientStatus  string `form:"client_status" binding:"omitempty,ledger_status"`
	DueMonth      string `form:"due_month" binding:"omitempty,datetime=2006-01"`
}

func (r InstallmentListRequest) query() ledgerapp.ListQuery {
	q := ledgerapp.ListQuery{
		Filter:        r.Filter(),
		SaleID:        r.SaleID,
		ClientID:      r.ClientID,
		SalespersonID: r.SalespersonID,
		DueMonth:      r.DueMonth,
	}
	if r.OrderBy == "" {
		q.OrderBy = "data_previsao"
	}
	// Values already passed the ledger_status validator
	q.ReceiptStatus, _ = parseOptionalStatus(r.ReceiptStatus)
	q.ClientStatus, _ = parseOptionalStatus(r.ClientStatus)
	return q
}

func parseOptionalStatus(s string) (ledger.Status, error) {
	if s == "" {
		return "", nil
	}
	return ledger.ParseStatus(s)
}

// CommissionRequest holds the commissions query parameters
type CommissionRequest struct {
	Party    string `form:"party" binding:"omitempty,party"`
	UserID   string `form:"user_id" binding:"max=20"`
	Released bool   `form:"released"`
}

// ClientStatusRequest toggles the client payment status of installments
type ClientStatusRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1,max=5000,dive,required"`
	Status string   `json:"status" binding:"required,ledger_status"`
}

// PayoutRequest is one commission payout status change
type PayoutRequest struct {
	ID     string `json:"id" binding:"required"`
	Party  string `json:"party" binding:"required,party"`
	Status string `json:"status" binding:"required,ledger_status"`
}

// PayoutsRequest settles commission payouts
type PayoutsRequest struct {
	Updates []PayoutRequest `json:"updates" binding:"required,min=1,max=5000,dive"`
}

// InstallmentHandler handles installment queries and settlement toggles
type InstallmentHandler struct {
	BaseHandler
	ledger LedgerService
}

// NewInstallmentHandler creates a new installment handler
func NewInstallmentHandler(ledger LedgerService) *InstallmentHandler {
	return &InstallmentHandler{ledger: ledger}
}

// List godoc
// @Summary      List installments
// @Description  Ordered by due date. Field roles only see installments of their own sales.
// @Tags         installments
// @Produce      json
// @Security     BearerAuth
// @Param        sale_id query string false "Sale id (group_quota)"
// @Param        client_id query string false "Client id"
// @Param        salesperson_id query string false "Salesperson id"
// @Param        receipt_status query string false "Receipt status"
// @Param        client_status query string false "Client payment status"
// @Param        due_month query string false "Due month (YYYY-MM)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50)
// @Success      200 {object} APIResponse[[]ledgerapp.InstallmentView]
// @Failure      400 {object} ErrorResponse
// @Router       /installments [get]
func (h *InstallmentHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req InstallmentListRequest
	if !h.bindQuery(c, &req) {
		return
	}

	page, err := h.ledger.List(c.Request.Context(), actor, req.query())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get godoc
// @Summary      Get an installment
// @Tags         installments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Installment id"
// @Success      200 {object} APIResponse[ledgerapp.InstallmentView]
// @Failure      404 {object} ErrorResponse
// @Router       /installments/{id} [get]
func (h *InstallmentHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	view, err := h.ledger.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Export godoc
// @Summary      Export installments
// @Description  Writes the listing in the upload column layout
// @Tags         installments
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Security     BearerAuth
// @Param        format query string false "xlsx (default) or csv"
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Router       /installments/export [get]
func (h *InstallmentHandler) Export(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req InstallmentListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	format := spreadsheet.FormatXLSX
	if f := c.Query("format"); f != "" {
		parsed, err := spreadsheet.ParseFormat(f)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		format = parsed
	}

	// Rendered to memory so a failure can still answer with JSON
	var buf bytes.Buffer
	if err := h.ledger.Export(c.Request.Context(), actor, req.query(), format, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	name := fmt.Sprintf("parcelas_%s.%s", time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// Summary godoc
// @Summary      Dashboard summary
// @Description  Receivable, received, payouts by party, net cash and counts by receipt status
// @Tags         installments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[ledger.Summary]
// @Router       /dashboard/summary [get]
func (h *InstallmentHandler) Summary(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	summary, err := h.ledger.Summary(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Alerts godoc
// @Summary      Due alerts
// @Description  Client-pending installments that are overdue or due within a week
// @Tags         installments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[[]ledgerapp.InstallmentView]
// @Router       /dashboard/alerts [get]
func (h *InstallmentHandler) Alerts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	alerts, err := h.ledger.Alerts(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if alerts == nil {
		alerts = []ledgerapp.InstallmentView{}
	}
	h.Success(c, alerts)
}

// Commissions godoc
// @Summary      Commission payouts
// @Description  Field roles always get their own payouts
// @Tags         installments
// @Produce      json
// @Security     BearerAuth
// @Param        party query string false "Vendedor (default), Supervisor or Gerente"
// @Param        user_id query string false "Beneficiary id"
// @Param        released query bool false "Only payouts whose receipt is already paid"
// @Success      200 {object} APIResponse[[]ledger.Commission]
// @Router       /commissions [get]
func (h *InstallmentHandler) Commissions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req CommissionRequest
	if !h.bindQuery(c, &req) {
		return
	}
	q := ledgerapp.CommissionQuery{UserID: req.UserID, ReleasedOnly: req.Released}
	if req.Party != "" {
		q.Party, _ = ledger.ParseParty(req.Party)
	}

	items, err := h.ledger.Commissions(c.Request.Context(), actor, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if items == nil {
		items = []ledger.Commission{}
	}
	h.Success(c, items)
}

// SetClientStatus godoc
// @Summary      Toggle client payment status
// @Description  Sets Pendente or Pago on the selected installments in one transaction
// @Tags         settlement
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ClientStatusRequest true "Installments and status"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /settlement/client-status [post]
func (h *InstallmentHandler) SetClientStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ClientStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	status, _ := ledger.ParseStatus(req.Status)

	res, err := h.ledger.SetClientStatus(c.Request.Context(), actor, req.IDs, status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.writeBatch(c, res)
}

// SettlePayouts godoc
// @Summary      Settle commission payouts
// @Description  Exempt parties cannot be set to Pago
// @Tags         settlement
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PayoutsRequest true "Payout changes"
// @Param        format query string false "Log format: json (default), xlsx or csv"
// @Success      200 {object} APIResponse[BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /settlement/payouts [post]
func (h *InstallmentHandler) SettlePayouts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req PayoutsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	updates := make([]ledger.PayoutUpdate, len(req.Updates))
	for i, u := range req.Updates {
		party, _ := ledger.ParseParty(u.Party)
		status, _ := ledger.ParseStatus(u.Status)
		updates[i] = ledger.PayoutUpdate{ID: u.ID, Party: party, Status: status}
	}

	res, err := h.ledger.SettlePayouts(c.Request.Context(), actor, updates)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.writeBatch(c, res)
}
