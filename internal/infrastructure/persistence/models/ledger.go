package models

import (
	"time"

	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// InstallmentModel is the persistence model for the Installment domain entity.
type InstallmentModel struct {
	ID            string `gorm:"column:id_lancamento;type:varchar(100);primaryKey"`
	SaleID        string `gorm:"column:id_venda;type:varchar(100);not null;index"`
	Administrator string `gorm:"column:administradora;type:varchar(50);not null"`
	Group         string `gorm:"column:grupo;type:varchar(50);not null;index:idx_financeiro_grupo_cota,priority:1"`
	Quota         string `gorm:"column:cota;type:varchar(50);not null;index:idx_financeiro_grupo_cota,priority:2"`
	ProductType   string `gorm:"column:tipo_cota;type:varchar(100);not null;index"`
	Label         string `gorm:"column:parcela;type:varchar(50);not null"`

	DueDate        time.Time           `gorm:"column:data_previsao;type:date;not null;index"`
	ReceivedAt     *time.Time          `gorm:"column:data_real_recebimento;type:date"`
	ReceivedAmount decimal.NullDecimal `gorm:"column:valor_recebido_real;type:decimal(18,2)"`

	ClientID        string `gorm:"column:id_cliente;type:varchar(50);index"`
	ClientName      string `gorm:"column:cliente;type:varchar(150)"`
	SalespersonID   string `gorm:"column:id_vendedor;type:varchar(50);index"`
	SalespersonName string `gorm:"column:vendedor;type:varchar(150)"`
	SupervisorID    string `gorm:"column:id_supervisor;type:varchar(50);index"`
	SupervisorName  string `gorm:"column:supervisor;type:varchar(150)"`
	ManagerID       string `gorm:"column:id_gerente;type:varchar(50);index"`
	ManagerName     string `gorm:"column:gerente;type:varchar(150)"`

	ClientAmount      decimal.Decimal `gorm:"column:valor_parcela_cliente;type:decimal(18,2);not null;default:0"`
	Receivable        decimal.Decimal `gorm:"column:receber_administradora;type:decimal(18,2);not null;default:0"`
	SalespersonPayout decimal.Decimal `gorm:"column:pagar_vendedor;type:decimal(18,2);not null;default:0"`
	SupervisorPayout  decimal.Decimal `gorm:"column:pagar_supervisor;type:decimal(18,2);not null;default:0"`
	ManagerPayout     decimal.Decimal `gorm:"column:pagar_gerente;type:decimal(18,2);not null;default:0"`
	NetCash           decimal.Decimal `gorm:"column:liquido_caixa;type:decimal(18,2);not null;default:0"`

	ReceiptStatus     ledger.Status `gorm:"column:status_recebimento;type:varchar(50);not null;default:'Pendente';index"`
	ClientStatus      ledger.Status `gorm:"column:status_pgto_cliente;type:varchar(50);not null;default:'Pendente'"`
	SalespersonStatus ledger.Status `gorm:"column:status_pgto_vendedor;type:varchar(50);not null;default:'Pendente'"`
	SupervisorStatus  ledger.Status `gorm:"column:status_pgto_supervisor;type:varchar(50);not null;default:'Isento'"`
	ManagerStatus     ledger.Status `gorm:"column:status_pgto_gerente;type:varchar(50);not null;default:'Pendente'"`

	Notes string `gorm:"column:obs;type:text"`
	Timestamps
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "financeiro_mestre"
}

// ToDomain converts the persistence model to a domain Installment entity.
func (m *InstallmentModel) ToDomain() ledger.Installment {
	return ledger.Installment{
		ID:                m.ID,
		SaleID:            m.SaleID,
		Administrator:     m.Administrator,
		Group:             m.Group,
		Quota:             m.Quota,
		ProductType:       m.ProductType,
		Label:             m.Label,
		DueDate:           m.DueDate,
		ReceivedAt:        m.ReceivedAt,
		ReceivedAmount:    m.ReceivedAmount,
		ClientID:          m.ClientID,
		ClientName:        m.ClientName,
		SalespersonID:     m.SalespersonID,
		SalespersonName:   m.SalespersonName,
		SupervisorID:      m.SupervisorID,
		SupervisorName:    m.SupervisorName,
		ManagerID:         m.ManagerID,
		ManagerName:       m.ManagerName,
		ClientAmount:      m.ClientAmount,
		Receivable:        m.Receivable,
		SalespersonPayout: m.SalespersonPayout,
		SupervisorPayout:  m.SupervisorPayout,
		ManagerPayout:     m.ManagerPayout,
		NetCash:           m.NetCash,
		ReceiptStatus:     m.ReceiptStatus,
		ClientStatus:      m.ClientStatus,
		SalespersonStatus: m.SalespersonStatus,
		SupervisorStatus:  m.SupervisorStatus,
		ManagerStatus:     m.ManagerStatus,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// InstallmentModelFromDomain creates a persistence model from a domain Installment entity.
func InstallmentModelFromDomain(i *ledger.Installment) *InstallmentModel {
	return &InstallmentModel{
		ID:                i.ID,
		SaleID:            i.SaleID,
		Administrator:     i.Administrator,
		Group:             i.Group,
		Quota:             i.Quota,
		ProductType:       i.ProductType,
		Label:             i.Label,
		DueDate:           i.DueDate,
		ReceivedAt:        i.ReceivedAt,
		ReceivedAmount:    i.ReceivedAmount,
		ClientID:          i.ClientID,
		ClientName:        i.ClientName,
		SalespersonID:     i.SalespersonID,
		SalespersonName:   i.SalespersonName,
		SupervisorID:      i.SupervisorID,
		SupervisorName:    i.SupervisorName,
		ManagerID:         i.ManagerID,
		ManagerName:       i.ManagerName,
		ClientAmount:      i.ClientAmount,
		Receivable:        i.Receivable,
		SalespersonPayout: i.SalespersonPayout,
		SupervisorPayout:  i.SupervisorPayout,
		ManagerPayout:     i.ManagerPayout,
		NetCash:           i.NetCash,
		ReceiptStatus:     i.ReceiptStatus,
		ClientStatus:      i.ClientStatus,
		SalespersonStatus: i.SalespersonStatus,
		SupervisorStatus:  i.SupervisorStatus,
		ManagerStatus:     i.ManagerStatus,
		Notes:             i.Notes,
		Timestamps:        stamps(i.CreatedAt, i.UpdatedAt),
	}
}

// InstallmentModelsFromDomain converts a slice of installments
func InstallmentModelsFromDomain(items []ledger.Installment) []*InstallmentModel {
	out := make([]*InstallmentModel, len(items))
	for i := range items {
		out[i] = InstallmentModelFromDomain(&items[i])
	}
	return out
}
