// Package proposal holds draft sales submitted by the field team. A proposal only
// turns into installments once it is approved.
package proposal

import (
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a proposal
type Status string

const (
	StatusDraft    Status = "Rascunho"
	StatusPending  Status = "Pendente"
	StatusApproved Status = "Aprovado"
	StatusRejected Status = "Rejeitado"
)

// IsValid checks if the status is one of the stored values
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true once the proposal has been reviewed
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus accepts the stored Portuguese value or its English name
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rascunho", "draft":
		return StatusDraft, nil
	case "pendente", "pending":
		return StatusPending, nil
	case "aprovado", "approved":
		return StatusApproved, nil
	case "rejeitado", "rejected":
		return StatusRejected, nil
	}
	return "", shared.NewDomainError("INVALID_INPUT", "unknown proposal status: "+s)
}

// Sale is the sale a proposal describes
type Sale struct {
	ClientID      string           `json:"client_id"`
	ClientName    string           `json:"client_name"`
	SalespersonID string           `json:"salesperson_id"`
	SupervisorID  string           `json:"supervisor_id"`
	ManagerID     string           `json:"manager_id"`
	ProductType   string           `json:"product_type"`
	TableCode     string           `json:"table_code"`
	Group         string           `json:"group"`
	Quota         string           `json:"quota"`
	Credit        decimal.Decimal  `json:"credit"`
	SaleDate      time.Time        `json:"sale_date"`
	DueDay        int              `json:"due_day"`
	Term          int              `json:"term"`
	AdminFee      *decimal.Decimal `json:"admin_fee,omitempty"`
	FirstAmount   decimal.Decimal  `json:"first_amount"`
	LevelAmount   decimal.Decimal  `json:"level_amount"`
}

// Proposal is a draft sale waiting for back office review
type Proposal struct {
	ID              uuid.UUID         `json:"id"`
	Sale            Sale              `json:"sale"`
	Status          Status            `json:"status"`
	CreatedBy       string            `json:"created_by"`
	ReviewedBy      string            `json:"reviewed_by,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	ReviewLog       []ledger.LogEntry `json:"review_log,omitempty"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewProposal creates a draft owned by the given user
func NewProposal(createdBy string, sale Sale) (*Proposal, error) {
	if strings.TrimSpace(createdBy) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "proposal owner is required")
	}
	if err := validateSale(sale); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Proposal{
		ID:        uuid.New(),
		Sale:      sale,
		Status:    StatusDraft,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateSale(s Sale) error {
	switch {
	case strings.TrimSpace(s.ClientID) == "" && strings.TrimSpace(s.ClientName) == "":
		return shared.NewDomainError("INVALID_INPUT", "client is required")
	case strings.TrimSpace(s.SalespersonID) == "":
		return shared.NewDomainError("INVALID_INPUT", "salesperson is required")
	case strings.TrimSpace(s.ProductType) == "" && strings.TrimSpace(s.TableCode) == "":
		return shared.NewDomainError("INVALID_INPUT", "product type or table code is required")
	case strings.TrimSpace(s.Group) == "" || strings.TrimSpace(s.Quota) == "":
		return shared.NewDomainError("INVALID_INPUT", "group and quota are required")
	case !s.Credit.IsPositive():
		return shared.NewDomainError("INVALID_INPUT", "credit must be positive")
	case s.SaleDate.IsZero():
		return shared.NewDomainError("INVALID_INPUT", "sale date is required")
	case s.DueDay < 0 || s.DueDay > 31:
		return shared.NewDomainError("INVALID_INPUT", "due day must be between 1 and 31")
	}
	return nil
}

// Update replaces the sale while the proposal is still a draft
func (p *Proposal) Update(sale Sale) error {
	if p.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "only drafts can be edited")
	}
	if err := validateSale(sale); err != nil {
		return err
	}
	p.Sale = sale
	p.UpdatedAt = time.Now()
	return nil
}

// Submit sends the draft for review
func (p *Proposal) Submit() error {
	if p.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "only drafts can be submitted")
	}
	now := time.Now()
	p.Status = StatusPending
	p.SubmittedAt = &now
	p.UpdatedAt = now
	return nil
}

// Approve records an approval whose generation log had no errors. A log with any
// Error line keeps the proposal pending and is returned as a conflict.
func (p *Proposal) Approve(reviewer string, log []ledger.LogEntry) error {
	if p.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "only pending proposals can be approved")
	}
	p.ReviewLog = log
	for _, e := range log {
		if e.Status == ledger.LogError {
			p.UpdatedAt = time.Now()
			return shared.NewDomainError("CONFLICT", "generation failed: "+e.Detail)
		}
	}
	now := time.Now()
	p.Status = StatusApproved
	p.ReviewedBy = reviewer
	p.ReviewedAt = &now
	p.UpdatedAt = now
	return nil
}

// Reject closes the proposal with a reason
func (p *Proposal) Reject(reviewer, reason string) error {
	if p.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", "only pending proposals can be rejected")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_INPUT", "rejection reason is required")
	}
	now := time.Now()
	p.Status = StatusRejected
	p.ReviewedBy = reviewer
	p.RejectionReason = reason
	p.ReviewedAt = &now
	p.UpdatedAt = now
	return nil
}

// SaleInput converts the proposal into a generator row
func (p *Proposal) SaleInput() ledger.SaleInput {
	s := p.Sale
	return ledger.SaleInput{
		Ref:           "proposal " + p.ID.String(),
		ClientID:      s.ClientID,
		ClientName:    s.ClientName,
		SalespersonID: s.SalespersonID,
		SupervisorID:  s.SupervisorID,
		ManagerID:     s.ManagerID,
		ProductType:   s.ProductType,
		TableCode:     s.TableCode,
		Group:         s.Group,
		Quota:         s.Quota,
		Credit:        s.Credit,
		SaleDate:      s.SaleDate,
		DueDay:        s.DueDay,
		Term:          s.Term,
		AdminFee:      s.AdminFee,
		FirstAmount:   s.FirstAmount,
		LevelAmount:   s.LevelAmount,
	}
}
