package models

import "github.com/consorcio/backend/internal/domain/client"

// ClientModel is the persistence model for the Client domain entity.
type ClientModel struct {
	ID    string `gorm:"column:id_cliente;type:varchar(50);primaryKey"`
	Name  string `gorm:"column:nome_completo;type:varchar(150);not null;index"`
	Email string `gorm:"column:email;type:varchar(150)"`
	Phone string `gorm:"column:telefone;type:varchar(50)"`
	Notes string `gorm:"column:obs;type:text"`
	Timestamps
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clientes"
}

// ToDomain converts the persistence model to a domain Client entity.
func (m *ClientModel) ToDomain() *client.Client {
	return &client.Client{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ClientModelFromDomain creates a persistence model from a domain Client entity.
func ClientModelFromDomain(c *client.Client) *ClientModel {
	return &ClientModel{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Notes:      c.Notes,
		Timestamps: stamps(c.CreatedAt, c.UpdatedAt),
	}
}
