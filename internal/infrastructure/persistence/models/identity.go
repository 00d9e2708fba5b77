package models

import (
	"time"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	ID                string          `gorm:"column:id_usuario;type:varchar(50);primaryKey"`
	Username          string          `gorm:"column:username;type:varchar(100);not null;uniqueIndex"`
	PasswordHash      string          `gorm:"column:password_hash;type:varchar(200);not null"`
	Name              string          `gorm:"column:nome_completo;type:varchar(150);not null"`
	Role              identity.Role   `gorm:"column:tipo_acesso;type:varchar(50);not null"`
	SalespersonRate   decimal.Decimal `gorm:"column:taxa_vendedor;type:decimal(8,4);not null;default:0"`
	SupervisorRate    decimal.Decimal `gorm:"column:taxa_supervisor;type:decimal(8,4);not null;default:0"`
	ManagerRate       decimal.Decimal `gorm:"column:taxa_gerencia;type:decimal(8,4);not null;default:0"`
	SupervisorID      string          `gorm:"column:id_supervisor;type:varchar(50);index"`
	ManagerID         string          `gorm:"column:id_gerente;type:varchar(50);index"`
	PasswordChangedAt *time.Time      `gorm:"column:password_changed_at"`
	Timestamps
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "usuarios"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		Role:         m.Role,
		Rates: identity.Rates{
			Salesperson: m.SalespersonRate,
			Supervisor:  m.SupervisorRate,
			Manager:     m.ManagerRate,
		},
		SupervisorID:      m.SupervisorID,
		ManagerID:         m.ManagerID,
		PasswordChangedAt: m.PasswordChangedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// UserModelFromDomain creates a persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	return &UserModel{
		ID:                u.ID,
		Username:          u.Username,
		PasswordHash:      u.PasswordHash,
		Name:              u.Name,
		Role:              u.Role,
		SalespersonRate:   u.Rates.Salesperson,
		SupervisorRate:    u.Rates.Supervisor,
		ManagerRate:       u.Rates.Manager,
		SupervisorID:      u.SupervisorID,
		ManagerID:         u.ManagerID,
		PasswordChangedAt: u.PasswordChangedAt,
		Timestamps:        stamps(u.CreatedAt, u.UpdatedAt),
	}
}
