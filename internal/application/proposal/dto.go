package proposal

import (
	"strings"

	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleRequest represents the sale typed into a proposal form
type SaleRequest struct {
	ClientID      string           `json:"client_id" binding:"max=20"`
	ClientName    string           `json:"client_name" binding:"max=200"`
	SalespersonID string           `json:"salesperson_id" binding:"max=20"`
	SupervisorID  string           `json:"supervisor_id" binding:"max=20"`
	ManagerID     string           `json:"manager_id" binding:"max=20"`
	ProductType   string           `json:"product_type" binding:"max=120"`
	TableCode     string           `json:"table_code" binding:"max=50"`
	Group         string           `json:"group" binding:"required,max=20"`
	Quota         string           `json:"quota" binding:"required,max=20"`
	Credit        decimal.Decimal  `json:"credit" binding:"required"`
	SaleDate      string           `json:"sale_date" binding:"required"`
	DueDay        int              `json:"due_day" binding:"gte=0,lte=31"`
	Term          int              `json:"term" binding:"gte=0"`
	AdminFee      *decimal.Decimal `json:"admin_fee"`
	FirstAmount   decimal.Decimal  `json:"first_amount"`
	LevelAmount   decimal.Decimal  `json:"level_amount"`
}

// RejectRequest carries the reason shown to the proposal owner
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListQuery lists proposals
type ListQuery struct {
	shared.Filter
	Status string `form:"status"`
}

// ReviewResponse is the outcome of an approval
type ReviewResponse struct {
	Proposal *proposal.Proposal `json:"proposal"`
	Report   ledger.BatchReport `json:"report"`
	LogURL   string             `json:"log_url,omitempty"`
}

func (r SaleRequest) toDomain(defaultDueDay int) (proposal.Sale, error) {
	date, err := ledger.ParseDate(r.SaleDate)
	if err != nil {
		return proposal.Sale{}, shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	dueDay := r.DueDay
	if dueDay == 0 {
		dueDay = defaultDueDay
	}
	return proposal.Sale{
		ClientID:      ledger.NormalizeCode(r.ClientID),
		ClientName:    strings.TrimSpace(r.ClientName),
		SalespersonID: ledger.NormalizeCode(r.SalespersonID),
		SupervisorID:  ledger.NormalizeCode(r.SupervisorID),
		ManagerID:     ledger.NormalizeCode(r.ManagerID),
		ProductType:   strings.TrimSpace(r.ProductType),
		TableCode:     ledger.NormalizeCode(r.TableCode),
		Group:         ledger.NormalizeCode(r.Group),
		Quota:         ledger.NormalizeCode(r.Quota),
		Credit:        r.Credit,
		SaleDate:      date,
		DueDay:        dueDay,
		Term:          r.Term,
		AdminFee:      r.AdminFee,
		FirstAmount:   r.FirstAmount,
		LevelAmount:   r.LevelAmount,
	}, nil
}
