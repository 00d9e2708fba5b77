package identity

import (
	"time"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/infrastructure/auth"
	"github.com/shopspring/decimal"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Username string
	Password string
	IP       string // Client IP for login tracking
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// UserInfo contains basic user information returned after login
type UserInfo struct {
	ID          string
	Username    string
	Name        string
	Role        string
	Permissions []string
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	Access       *auth.Claims
	RefreshToken string // Optional, revoked together with the access token
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// RatesRequest carries commission rates as fractions (0.20 = 20%)
type RatesRequest struct {
	Salesperson decimal.Decimal `json:"salesperson"`
	Supervisor  decimal.Decimal `json:"supervisor"`
	Manager     decimal.Decimal `json:"manager"`
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	ID           string        `json:"id" binding:"required,max=20"`
	Username     string        `json:"username" binding:"required,min=3,max=100"`
	Password     string        `json:"password" binding:"required,min=8,max=72"`
	Name         string        `json:"name" binding:"required,max=150"`
	Role         string        `json:"role" binding:"required,role"`
	Rates        *RatesRequest `json:"rates"`
	SupervisorID string        `json:"supervisor_id"`
	ManagerID    string        `json:"manager_id"`
}

// UpdateUserRequest represents a request to update a user. Nil fields are left unchanged;
// an empty link id clears the link.
type UpdateUserRequest struct {
	Name         *string       `json:"name" binding:"omitempty,min=1,max=150"`
	Role         *string       `json:"role" binding:"omitempty,role"`
	Rates        *RatesRequest `json:"rates"`
	SupervisorID *string       `json:"supervisor_id"`
	ManagerID    *string       `json:"manager_id"`
}

// ResetPasswordRequest represents an administrator password reset
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID             string         `json:"id"`
	Username       string         `json:"username"`
	Name           string         `json:"name"`
	Role           string         `json:"role"`
	Rates          identity.Rates `json:"rates"`
	SupervisorID   string         `json:"supervisor_id,omitempty"`
	SupervisorName string         `json:"supervisor_name,omitempty"`
	ManagerID      string         `json:"manager_id,omitempty"`
	ManagerName    string         `json:"manager_name,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ToUserResponse converts a domain user; dir resolves link names and may be nil
func ToUserResponse(u *identity.User, dir *identity.Directory) UserResponse {
	resp := UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Role:         string(u.Role),
		Rates:        u.Rates,
		SupervisorID: u.SupervisorID,
		ManagerID:    u.ManagerID,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if dir != nil {
		resp.SupervisorName = dir.Name(u.SupervisorID)
		resp.ManagerName = dir.Name(u.ManagerID)
	}
	return resp
}

func (r RatesRequest) toDomain() identity.Rates {
	return identity.Rates(r)
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Role:        string(u.Role),
		Permissions: u.Role.Permissions(),
	}
}
