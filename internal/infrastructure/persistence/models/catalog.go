package models

import (
	"fmt"
	"time"

	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// RuleSetModel is the persistence model for the RuleSet domain entity.
// Percentages and contemplation modes are stored as the comma separated text staff type.
type RuleSetModel struct {
	ProductType         string                    `gorm:"column:tipo_cota;type:varchar(100);primaryKey"`
	Administrator       string                    `gorm:"column:administradora;type:varchar(50);not null"`
	TableCode           string                    `gorm:"column:id_tabela;type:varchar(50);index"`
	Percentages         string                    `gorm:"column:lista_percentuais;type:varchar(200);not null"`
	MinCredit           decimal.Decimal           `gorm:"column:min_credito;type:decimal(18,2);not null;default:0"`
	MaxCredit           decimal.Decimal           `gorm:"column:max_credito;type:decimal(18,2);not null;default:0"`
	MinTerm             decimal.Decimal           `gorm:"column:min_prazo;type:decimal(8,0);not null;default:0"`
	MaxTerm             decimal.Decimal           `gorm:"column:max_prazo;type:decimal(8,0);not null;default:0"`
	AdvanceFee          decimal.Decimal           `gorm:"column:taxa_antecipada;type:decimal(8,4);not null;default:0"`
	AdvanceFeeBasis     catalog.AdvanceFeeBasis   `gorm:"column:ref_taxa_antecipada;type:varchar(50)"`
	MinAdminFee         decimal.Decimal           `gorm:"column:min_taxa_adm;type:decimal(8,4);not null;default:0"`
	MaxAdminFee         decimal.Decimal           `gorm:"column:max_taxa_adm;type:decimal(8,4);not null;default:0"`
	ReserveFund         decimal.Decimal           `gorm:"column:fundo_reserva;type:decimal(8,4);not null;default:0"`
	EmbeddedBidLimit    decimal.Decimal           `gorm:"column:pct_lance_embutido;type:decimal(8,4);not null;default:0"`
	Readjustment        catalog.ReadjustmentIndex `gorm:"column:indice_reajuste;type:varchar(50)"`
	ContemplationModes  string                    `gorm:"column:modalidades_contemplacao;type:varchar(300)"`
	ChargebackPct       decimal.Decimal           `gorm:"column:pct_estorno;type:decimal(8,4);not null;default:0"`
	ChargebackThreshold int                       `gorm:"column:limite_parcela_estorno;not null;default:3"`
	UpdatedAt           time.Time                 `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (RuleSetModel) TableName() string {
	return "regras_comissao"
}

// ToDomain converts the persistence model to a domain RuleSet entity.
func (m *RuleSetModel) ToDomain() (*catalog.RuleSet, error) {
	pcts, err := catalog.ParsePercentages(m.Percentages)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", m.ProductType, err)
	}
	return &catalog.RuleSet{
		ProductType:         m.ProductType,
		Administrator:       m.Administrator,
		TableCode:           m.TableCode,
		Percentages:         pcts,
		Credit:              catalog.Range{Min: m.MinCredit, Max: m.MaxCredit},
		TermMonths:          catalog.Range{Min: m.MinTerm, Max: m.MaxTerm},
		AdminFee:            catalog.Range{Min: m.MinAdminFee, Max: m.MaxAdminFee},
		ReserveFund:         m.ReserveFund,
		EmbeddedBidLimit:    m.EmbeddedBidLimit,
		AdvanceFee:          m.AdvanceFee,
		AdvanceFeeBasis:     m.AdvanceFeeBasis,
		Readjustment:        m.Readjustment,
		Contemplation:       catalog.ParseContemplationModes(m.ContemplationModes),
		ChargebackPct:       m.ChargebackPct,
		ChargebackThreshold: m.ChargebackThreshold,
		UpdatedAt:           m.UpdatedAt,
	}, nil
}

// RuleSetModelFromDomain creates a persistence model from a domain RuleSet entity.
func RuleSetModelFromDomain(r *catalog.RuleSet) *RuleSetModel {
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return &RuleSetModel{
		ProductType:         r.ProductType,
		Administrator:       r.Administrator,
		TableCode:           r.TableCode,
		Percentages:         r.PercentagesString(),
		MinCredit:           r.Credit.Min,
		MaxCredit:           r.Credit.Max,
		MinTerm:             r.TermMonths.Min,
		MaxTerm:             r.TermMonths.Max,
		AdvanceFee:          r.AdvanceFee,
		AdvanceFeeBasis:     r.AdvanceFeeBasis,
		MinAdminFee:         r.AdminFee.Min,
		MaxAdminFee:         r.AdminFee.Max,
		ReserveFund:         r.ReserveFund,
		EmbeddedBidLimit:    r.EmbeddedBidLimit,
		Readjustment:        r.Readjustment,
		ContemplationModes:  r.ContemplationString(),
		ChargebackPct:       r.ChargebackPct,
		ChargebackThreshold: r.ChargebackThreshold,
		UpdatedAt:           updated,
	}
}
