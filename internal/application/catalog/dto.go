package catalog

import (
	"time"

	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// RangeRequest is a min/max pair. A zero max leaves the bound unconfigured.
type RangeRequest struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// UpsertRuleRequest represents a request to create or replace a rule set
type UpsertRuleRequest struct {
	ProductType   string `json:"product_type" binding:"required,min=1,max=120"`
	Administrator string `json:"administrator" binding:"required,min=1,max=120"`
	TableCode     string `json:"table_code" binding:"max=50"`
	// Percentages is the commission schedule as typed by staff, e.g. "1.5, 1, 1"
	Percentages      string          `json:"percentages" binding:"required"`
	Credit           RangeRequest    `json:"credit"`
	TermMonths       RangeRequest    `json:"term_months"`
	AdminFee         RangeRequest    `json:"admin_fee"`
	ReserveFund      decimal.Decimal `json:"reserve_fund"`
	EmbeddedBidLimit decimal.Decimal `json:"embedded_bid_limit"`
	AdvanceFee       decimal.Decimal `json:"advance_fee"`
	AdvanceFeeBasis  string          `json:"advance_fee_basis"`
	Readjustment     string          `json:"readjustment_index"`
	Contemplation    []string        `json:"contemplation_modes"`
	ChargebackPct    decimal.Decimal `json:"chargeback_pct"`
	// ChargebackThreshold is the last installment number that still pays the penalty
	ChargebackThreshold int `json:"chargeback_threshold" binding:"gte=0,lte=12"`
}

// RuleSetResponse represents a rule set in API responses
type RuleSetResponse struct {
	ProductType         string            `json:"product_type"`
	Administrator       string            `json:"administrator"`
	TableCode           string            `json:"table_code"`
	Percentages         []decimal.Decimal `json:"percentages"`
	PercentagesText     string            `json:"percentages_text"`
	Credit              catalog.Range     `json:"credit"`
	TermMonths          catalog.Range     `json:"term_months"`
	AdminFee            catalog.Range     `json:"admin_fee"`
	ReserveFund         decimal.Decimal   `json:"reserve_fund"`
	EmbeddedBidLimit    decimal.Decimal   `json:"embedded_bid_limit"`
	AdvanceFee          decimal.Decimal   `json:"advance_fee"`
	AdvanceFeeBasis     string            `json:"advance_fee_basis"`
	Readjustment        string            `json:"readjustment_index"`
	Contemplation       string            `json:"contemplation_modes"`
	ChargebackPct       decimal.Decimal   `json:"chargeback_pct"`
	ChargebackThreshold int               `json:"chargeback_threshold"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// ToRuleSetResponse converts a domain rule set to a response
func ToRuleSetResponse(r *catalog.RuleSet) RuleSetResponse {
	return RuleSetResponse{
		ProductType:         r.ProductType,
		Administrator:       r.Administrator,
		TableCode:           r.TableCode,
		Percentages:         r.Percentages,
		PercentagesText:     r.PercentagesString(),
		Credit:              r.Credit,
		TermMonths:          r.TermMonths,
		AdminFee:            r.AdminFee,
		ReserveFund:         r.ReserveFund,
		EmbeddedBidLimit:    r.EmbeddedBidLimit,
		AdvanceFee:          r.AdvanceFee,
		AdvanceFeeBasis:     string(r.AdvanceFeeBasis),
		Readjustment:        string(r.Readjustment),
		Contemplation:       r.ContemplationString(),
		ChargebackPct:       r.ChargebackPct,
		ChargebackThreshold: r.ChargebackThreshold,
		UpdatedAt:           r.UpdatedAt,
	}
}

// ToRuleSetResponses converts a slice of rule sets
func ToRuleSetResponses(rules []catalog.RuleSet) []RuleSetResponse {
	out := make([]RuleSetResponse, len(rules))
	for i := range rules {
		out[i] = ToRuleSetResponse(&rules[i])
	}
	return out
}

// ToDomain builds the rule set described by the request
func (req UpsertRuleRequest) ToDomain() (*catalog.RuleSet, error) {
	pcts, err := catalog.ParsePercentages(req.Percentages)
	if err != nil {
		return nil, err
	}
	modes := make([]catalog.ContemplationMode, len(req.Contemplation))
	for i, m := range req.Contemplation {
		modes[i] = catalog.ContemplationMode(m)
	}
	return &catalog.RuleSet{
		ProductType:         req.ProductType,
		Administrator:       req.Administrator,
		TableCode:           req.TableCode,
		Percentages:         pcts,
		Credit:              catalog.Range(req.Credit),
		TermMonths:          catalog.Range(req.TermMonths),
		AdminFee:            catalog.Range(req.AdminFee),
		ReserveFund:         req.ReserveFund,
		EmbeddedBidLimit:    req.EmbeddedBidLimit,
		AdvanceFee:          req.AdvanceFee,
		AdvanceFeeBasis:     catalog.AdvanceFeeBasis(req.AdvanceFeeBasis),
		Readjustment:        catalog.ReadjustmentIndex(req.Readjustment),
		Contemplation:       modes,
		ChargebackPct:       req.ChargebackPct,
		ChargebackThreshold: req.ChargebackThreshold,
	}, nil
}
