package handler

import (
	"context"

	"github.com/consorcio/backend/internal/application/catalog"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// RuleService manages the rules catalog
type RuleService interface {
	List(ctx context.Context) ([]catalog.RuleSetResponse, error)
	Get(ctx context.Context, productType string) (*catalog.RuleSetResponse, error)
	Upsert(ctx context.Context, actor identity.Actor, req catalog.UpsertRuleRequest) (*catalog.RuleSetResponse, error)
	Delete(ctx context.Context, actor identity.Actor, productType string) error
}

// RuleHandler handles rules catalog requests
type RuleHandler struct {
	BaseHandler
	rules RuleService
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(rules RuleService) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// List godoc
// @Summary      List rule sets
// @Tags         rules
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[[]catalog.RuleSetResponse]
// @Router       /rules [get]
func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if rules == nil {
		rules = []catalog.RuleSetResponse{}
	}
	h.Success(c, rules)
}

// Get godoc
// @Summary      Get the rule set of a product type
// @Tags         rules
// @Produce      json
// @Security     BearerAuth
// @Param        product_type path string true "Product type"
// @Success      200 {object} APIResponse[catalog.RuleSetResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /rules/{product_type} [get]
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("product_type"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Upsert godoc
// @Summary      Create or replace a rule set
// @Tags         rules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body catalog.UpsertRuleRequest true "Rule set"
// @Success      200 {object} APIResponse[catalog.RuleSetResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /rules [put]
func (h *RuleHandler) Upsert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req catalog.UpsertRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rule, err := h.rules.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Delete godoc
// @Summary      Delete a rule set
// @Description  Refused while installments use the product type
// @Tags         rules
// @Security     BearerAuth
// @Param        product_type path string true "Product type"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /rules/{product_type} [delete]
func (h *RuleHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.rules.Delete(c.Request.Context(), actor, c.Param("product_type")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
