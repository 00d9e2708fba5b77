package handler

import (
	"context"
	"errors"

	proposalapp "github.com/consorcio/backend/internal/application/proposal"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProposalService runs the draft sale workflow
type ProposalService interface {
	List(ctx context.Context, actor identity.Actor, q proposalapp.ListQuery) (*shared.Paginated[proposal.Proposal], error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposal.Proposal, error)
	Create(ctx context.Context, actor identity.Actor, req proposalapp.SaleRequest) (*proposal.Proposal, error)
	Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req proposalapp.SaleRequest) (*proposal.Proposal, error)
	Submit(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposal.Proposal, error)
	Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, reason string) (*proposal.Proposal, error)
	Approve(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposalapp.ReviewResponse, error)
}

// ProposalListRequest holds the proposal listing query parameters
type ProposalListRequest struct {
	dto.ListRequest
	Status string `form:"status" binding:"omitempty,oneof=Rascunho Pendente Aprovado Rejeitado"`
}

// ProposalHandler handles draft sale requests
type ProposalHandler struct {
	BaseHandler
	proposals ProposalService
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(proposals ProposalService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals}
}

// List godoc
// @Summary      List proposals
// @Description  Submitters see their own proposals, reviewers see all
// @Tags         proposals
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Rascunho, Pendente, Aprovado or Rejeitado"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50)
// @Success      200 {object} APIResponse[[]proposal.Proposal]
// @Router       /proposals [get]
func (h *ProposalHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ProposalListRequest
	if !h.bindQuery(c, &req) {
		return
	}

	page, err := h.proposals.List(c.Request.Context(), actor, proposalapp.ListQuery{
		Filter: req.Filter(),
		Status: req.Status,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get godoc
// @Summary      Get a proposal
// @Tags         proposals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Proposal ID"
// @Success      200 {object} APIResponse[proposal.Proposal]
// @Failure      404 {object} ErrorResponse
// @Router       /proposals/{id} [get]
func (h *ProposalHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.proposals.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Create godoc
// @Summary      Create a draft proposal
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body proposalapp.SaleRequest true "Sale"
// @Success      201 {object} APIResponse[proposal.Proposal]
// @Failure      400 {object} ErrorResponse
// @Router       /proposals [post]
func (h *ProposalHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req proposalapp.SaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.proposals.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// Update godoc
// @Summary      Update a draft proposal
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Proposal ID"
// @Param        request body proposalapp.SaleRequest true "Sale"
// @Success      200 {object} APIResponse[proposal.Proposal]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /proposals/{id} [put]
func (h *ProposalHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req proposalapp.SaleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.proposals.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Submit godoc
// @Summary      Submit a proposal for review
// @Tags         proposals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Proposal ID"
// @Success      200 {object} APIResponse[proposal.Proposal]
// @Failure      422 {object} ErrorResponse
// @Router       /proposals/{id}/submit [post]
func (h *ProposalHandler) Submit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.proposals.Submit(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Reject godoc
// @Summary      Reject a pending proposal
// @Tags         proposals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Proposal ID"
// @Param        request body proposalapp.RejectRequest true "Reason"
// @Success      200 {object} APIResponse[proposal.Proposal]
// @Failure      422 {object} ErrorResponse
// @Router       /proposals/{id}/reject [post]
func (h *ProposalHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req proposalapp.RejectRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.proposals.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Approve godoc
// @Summary      Approve a pending proposal
// @Description  Generates the installments. When generation fails the proposal stays pending and the log is returned with the error.
// @Tags         proposals
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Proposal ID"
// @Success      200 {object} APIResponse[proposalapp.ReviewResponse]
// @Failure      409 {object} APIResponse[proposalapp.ReviewResponse]
// @Router       /proposals/{id}/approve [post]
func (h *ProposalHandler) Approve(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.proposals.Approve(c.Request.Context(), actor, id)
	if err != nil {
		var domainErr *shared.DomainError
		if resp != nil && errors.As(err, &domainErr) {
			// The generation log explains the failure
			code := dto.NormalizeErrorCode(domainErr.Code)
			body := dto.NewErrorResponseWithRequestID(code, domainErr.Message, getRequestID(c))
			body.Data = resp
			c.JSON(dto.GetHTTPStatus(code), body)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
