package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProposalModel is the persistence model for the Proposal domain entity.
type ProposalModel struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Status          proposal.Status     `gorm:"column:status;type:varchar(20);not null;index"`
	ClientID        string              `gorm:"column:id_cliente;type:varchar(50)"`
	ClientName      string              `gorm:"column:cliente;type:varchar(150)"`
	SalespersonID   string              `gorm:"column:id_vendedor;type:varchar(50);not null"`
	SupervisorID    string              `gorm:"column:id_supervisor;type:varchar(50)"`
	ManagerID       string              `gorm:"column:id_gerente;type:varchar(50)"`
	ProductType     string              `gorm:"column:tipo_cota;type:varchar(100)"`
	TableCode       string              `gorm:"column:id_tabela;type:varchar(50)"`
	Group           string              `gorm:"column:grupo;type:varchar(50);not null"`
	Quota           string              `gorm:"column:cota;type:varchar(50);not null"`
	Credit          decimal.Decimal     `gorm:"column:valor_credito;type:decimal(18,2);not null"`
	SaleDate        time.Time           `gorm:"column:data_venda;type:date;not null"`
	DueDay          int                 `gorm:"column:dia_vencimento;not null;default:0"`
	Term            int                 `gorm:"column:prazo;not null;default:0"`
	AdminFee        decimal.NullDecimal `gorm:"column:taxa_adm;type:decimal(8,4)"`
	FirstAmount     decimal.Decimal     `gorm:"column:valor_primeira;type:decimal(18,2);not null;default:0"`
	LevelAmount     decimal.Decimal     `gorm:"column:valor_demais;type:decimal(18,2);not null;default:0"`
	CreatedBy       string              `gorm:"column:created_by;type:varchar(50);not null;index"`
	ReviewedBy      string              `gorm:"column:reviewed_by;type:varchar(50)"`
	RejectionReason string              `gorm:"column:rejection_reason;type:text"`
	ReviewLog       string              `gorm:"column:review_log;type:jsonb;default:'[]'"`
	SubmittedAt     *time.Time          `gorm:"column:submitted_at"`
	ReviewedAt      *time.Time          `gorm:"column:reviewed_at"`
	Timestamps
}

// TableName returns the table name for GORM
func (ProposalModel) TableName() string {
	return "sales_proposals"
}

// ToDomain converts the persistence model to a domain Proposal entity.
func (m *ProposalModel) ToDomain() (*proposal.Proposal, error) {
	p := &proposal.Proposal{
		ID: m.ID,
		Sale: proposal.Sale{
			ClientID:      m.ClientID,
			ClientName:    m.ClientName,
			SalespersonID: m.SalespersonID,
			SupervisorID:  m.SupervisorID,
			ManagerID:     m.ManagerID,
			ProductType:   m.ProductType,
			TableCode:     m.TableCode,
			Group:         m.Group,
			Quota:         m.Quota,
			Credit:        m.Credit,
			SaleDate:      m.SaleDate,
			DueDay:        m.DueDay,
			Term:          m.Term,
			FirstAmount:   m.FirstAmount,
			LevelAmount:   m.LevelAmount,
		},
		Status:          m.Status,
		CreatedBy:       m.CreatedBy,
		ReviewedBy:      m.ReviewedBy,
		RejectionReason: m.RejectionReason,
		SubmittedAt:     m.SubmittedAt,
		ReviewedAt:      m.ReviewedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.AdminFee.Valid {
		fee := m.AdminFee.Decimal
		p.Sale.AdminFee = &fee
	}
	if m.ReviewLog != "" && m.ReviewLog != "[]" {
		var log []ledger.LogEntry
		if err := json.Unmarshal([]byte(m.ReviewLog), &log); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review log: %w", err)
		}
		p.ReviewLog = log
	}
	return p, nil
}

// ProposalModelFromDomain creates a persistence model from a domain Proposal entity.
func ProposalModelFromDomain(p *proposal.Proposal) (*ProposalModel, error) {
	s := p.Sale
	m := &ProposalModel{
		ID:              p.ID,
		Status:          p.Status,
		ClientID:        s.ClientID,
		ClientName:      s.ClientName,
		SalespersonID:   s.SalespersonID,
		SupervisorID:    s.SupervisorID,
		ManagerID:       s.ManagerID,
		ProductType:     s.ProductType,
		TableCode:       s.TableCode,
		Group:           s.Group,
		Quota:           s.Quota,
		Credit:          s.Credit,
		SaleDate:        s.SaleDate,
		DueDay:          s.DueDay,
		Term:            s.Term,
		FirstAmount:     s.FirstAmount,
		LevelAmount:     s.LevelAmount,
		CreatedBy:       p.CreatedBy,
		ReviewedBy:      p.ReviewedBy,
		RejectionReason: p.RejectionReason,
		ReviewLog:       "[]",
		SubmittedAt:     p.SubmittedAt,
		ReviewedAt:      p.ReviewedAt,
		Timestamps:      stamps(p.CreatedAt, p.UpdatedAt),
	}
	if s.AdminFee != nil {
		m.AdminFee = decimal.NewNullDecimal(*s.AdminFee)
	}
	if len(p.ReviewLog) > 0 {
		data, err := json.Marshal(p.ReviewLog)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal review log: %w", err)
		}
		m.ReviewLog = string(data)
	}
	return m, nil
}
