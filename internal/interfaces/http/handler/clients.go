package handler

import (
	"context"

	appclient "github.com/consorcio/backend/internal/application/client"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ClientService manages the client directory
type ClientService interface {
	Search(ctx context.Context, actor identity.Actor, filter shared.Filter) (*shared.Paginated[client.Client], error)
	Get(ctx context.Context, actor identity.Actor, id string) (*client.Client, error)
	Upsert(ctx context.Context, actor identity.Actor, req appclient.UpsertClientRequest) (*client.Client, error)
	Statement(ctx context.Context, actor identity.Actor, id string) (*appclient.Statement, error)
}

// ClientHandler handles client directory requests
type ClientHandler struct {
	BaseHandler
	clients ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clients ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// Search godoc
// @Summary      Search clients
// @Description  Field roles only see clients of their own installments.
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        search query string false "Name, id, email or phone"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50)
// @Success      200 {object} APIResponse[[]client.Client]
// @Router       /clients [get]
func (h *ClientHandler) Search(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}

	page, err := h.clients.Search(c.Request.Context(), actor, req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get godoc
// @Summary      Get a client
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Client ID"
// @Success      200 {object} APIResponse[client.Client]
// @Failure      404 {object} ErrorResponse
// @Router       /clients/{id} [get]
func (h *ClientHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	cl, err := h.clients.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cl)
}

// Upsert godoc
// @Summary      Create or update a client
// @Description  Without an id, or with an unknown one, a client is created with the next sequential id.
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body appclient.UpsertClientRequest true "Client"
// @Success      200 {object} APIResponse[client.Client]
// @Failure      400 {object} ErrorResponse
// @Router       /clients [put]
func (h *ClientHandler) Upsert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appclient.UpsertClientRequest
	if !h.bindJSON(c, &req) {
		return
	}

	cl, err := h.clients.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cl)
}

// Statement godoc
// @Summary      Client statement
// @Description  Installments of the client with paid, pending and total client-payable sums
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Client ID"
// @Success      200 {object} APIResponse[appclient.Statement]
// @Failure      404 {object} ErrorResponse
// @Router       /clients/{id}/statement [get]
func (h *ClientHandler) Statement(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	st, err := h.clients.Statement(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}
