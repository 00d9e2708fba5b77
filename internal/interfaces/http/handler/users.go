package handler

import (
	"context"

	appidentity "github.com/consorcio/backend/internal/application/identity"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// UserService manages the user directory
type UserService interface {
	List(ctx context.Context) ([]appidentity.UserResponse, error)
	Get(ctx context.Context, id string) (*appidentity.UserResponse, error)
	Create(ctx context.Context, actor identity.Actor, req appidentity.CreateUserRequest) (*appidentity.UserResponse, error)
	Update(ctx context.Context, actor identity.Actor, id string, req appidentity.UpdateUserRequest) (*appidentity.UserResponse, error)
	ResetPassword(ctx context.Context, actor identity.Actor, id, password string) error
	Delete(ctx context.Context, actor identity.Actor, id string) error
}

// UserHandler handles user directory requests
type UserHandler struct {
	BaseHandler
	users UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[[]appidentity.UserResponse]
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if users == nil {
		users = []appidentity.UserResponse{}
	}
	h.Success(c, users)
}

// Get godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200 {object} APIResponse[appidentity.UserResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Create godoc
// @Summary      Create a user
// @Description  Ids and logins are unique. Assigning a supervisor inherits the supervisor's manager.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body appidentity.CreateUserRequest true "User"
// @Success      201 {object} APIResponse[appidentity.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appidentity.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.users.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Update godoc
// @Summary      Update a user
// @Description  Changing a supervisor's manager re-points every user they supervise.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body appidentity.UpdateUserRequest true "Changes"
// @Success      200 {object} APIResponse[appidentity.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appidentity.UpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.users.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ResetPassword godoc
// @Summary      Reset a user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body appidentity.ResetPasswordRequest true "New password"
// @Success      200 {object} APIResponse[MessageResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appidentity.ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), actor, c.Param("id"), req.Password); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageResponse{Message: "Password reset successfully"})
}

// Delete godoc
// @Summary      Delete a user
// @Description  The master user and users referenced by installments cannot be deleted.
// @Tags         users
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
