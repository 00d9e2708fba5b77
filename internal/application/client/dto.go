package client

import (
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// UpsertClientRequest creates a client when ID is empty or unknown, otherwise updates it
type UpsertClientRequest struct {
	ID    string `json:"id" binding:"max=20"`
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Email string `json:"email" binding:"omitempty,email,max=200"`
	Phone string `json:"phone" binding:"max=50"`
	Notes string `json:"notes" binding:"max=2000"`
}

// Statement lists a client's installments with the client-payable totals
type Statement struct {
	Client       client.Client        `json:"client"`
	Installments []ledger.Installment `json:"installments"`
	Paid         decimal.Decimal      `json:"paid"`
	Pending      decimal.Decimal      `json:"pending"`
	Total        decimal.Decimal      `json:"total"`
}
