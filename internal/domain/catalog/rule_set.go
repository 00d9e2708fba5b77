package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultChargebackThreshold is the last installment number that still triggers
// a chargeback penalty when a rule does not configure one.
const DefaultChargebackThreshold = 3

// AdvanceFeeBasis is the reference the advance fee percentage is quoted against
type AdvanceFeeBasis string

const (
	AdvanceBasisFirstInstallment   AdvanceFeeBasis = "1a Parcela"
	AdvanceBasisCredit             AdvanceFeeBasis = "Crédito"
	AdvanceBasisTwelveInstallments AdvanceFeeBasis = "Parcelado 12x"
	AdvanceBasisFirstTwo           AdvanceFeeBasis = "2 primeiras parcelas"
)

// IsValid checks if the basis is a known value. Empty means not configured.
func (b AdvanceFeeBasis) IsValid() bool {
	switch b {
	case "", AdvanceBasisFirstInstallment, AdvanceBasisCredit, AdvanceBasisTwelveInstallments, AdvanceBasisFirstTwo:
		return true
	}
	return false
}

// ReadjustmentIndex is the inflation index applied to the credit letter
type ReadjustmentIndex string

const (
	IndexINCC ReadjustmentIndex = "INCC"
	IndexIGPM ReadjustmentIndex = "IGPM"
	IndexIPCA ReadjustmentIndex = "IPCA"
	IndexFIPE ReadjustmentIndex = "FIPE"
)

// IsValid checks if the index is a known value. Empty means not configured.
func (i ReadjustmentIndex) IsValid() bool {
	switch i {
	case "", IndexINCC, IndexIGPM, IndexIPCA, IndexFIPE:
		return true
	}
	return false
}

// ContemplationMode is one way a quota can be awarded the credit
type ContemplationMode string

const (
	ModeDraw        ContemplationMode = "Sorteio"
	ModeFreeBid     ContemplationMode = "Lance Livre"
	ModeFixedBid    ContemplationMode = "Lance Fixo"
	ModeEmbeddedBid ContemplationMode = "Lance Embutido"
)

// IsValid checks if the mode is a known value
func (m ContemplationMode) IsValid() bool {
	switch m {
	case ModeDraw, ModeFreeBid, ModeFixedBid, ModeEmbeddedBid:
		return true
	}
	return false
}

// Range is a closed interval. A zero Max means the bound is not configured.
type Range struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether v is inside the range. Unconfigured bounds always pass.
func (r Range) Contains(v decimal.Decimal) bool {
	if r.Max.IsZero() && r.Min.IsZero() {
		return true
	}
	if v.LessThan(r.Min) {
		return false
	}
	if !r.Max.IsZero() && v.GreaterThan(r.Max) {
		return false
	}
	return true
}

func (r Range) validate(name string) error {
	if r.Min.IsNegative() || r.Max.IsNegative() {
		return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("%s bounds cannot be negative", name))
	}
	if !r.Max.IsZero() && r.Min.GreaterThan(r.Max) {
		return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("%s minimum is greater than maximum", name))
	}
	return nil
}

// RuleSet is one sellable product of the catalog, keyed by its product type name
type RuleSet struct {
	ProductType   string `json:"product_type"`
	Administrator string `json:"administrator"`
	TableCode     string `json:"table_code"`

	// Percentages holds the commission percentage of each installment position; index 0 is installment 1
	Percentages []decimal.Decimal `json:"percentages"`

	Credit           Range               `json:"credit"`
	TermMonths       Range               `json:"term_months"`
	AdminFee         Range               `json:"admin_fee"`
	ReserveFund      decimal.Decimal     `json:"reserve_fund"`
	EmbeddedBidLimit decimal.Decimal     `json:"embedded_bid_limit"`
	AdvanceFee       decimal.Decimal     `json:"advance_fee"`
	AdvanceFeeBasis  AdvanceFeeBasis     `json:"advance_fee_basis"`
	Readjustment     ReadjustmentIndex   `json:"readjustment_index"`
	Contemplation    []ContemplationMode `json:"contemplation_modes"`

	ChargebackPct       decimal.Decimal `json:"chargeback_pct"`
	ChargebackThreshold int             `json:"chargeback_threshold"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PercentageAt returns the commission percentage of the 1-based installment number, or zero
func (r *RuleSet) PercentageAt(number int) decimal.Decimal {
	if number < 1 || number > len(r.Percentages) {
		return decimal.Zero
	}
	return r.Percentages[number-1]
}

// PercentagesString renders the schedule the way it is typed by staff: "1.5, 1, 1"
func (r *RuleSet) PercentagesString() string {
	parts := make([]string, len(r.Percentages))
	for i, p := range r.Percentages {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// ContemplationString renders the modes sorted and comma separated
func (r *RuleSet) ContemplationString() string {
	parts := make([]string, len(r.Contemplation))
	for i, m := range r.Contemplation {
		parts[i] = string(m)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// AppliesChargeback reports whether cancelling at the cutoff installment costs a penalty
func (r *RuleSet) AppliesChargeback(cutoff int) bool {
	threshold := r.ChargebackThreshold
	if threshold <= 0 {
		threshold = DefaultChargebackThreshold
	}
	return cutoff <= threshold && r.ChargebackPct.IsPositive()
}

// Normalize trims identifiers and applies defaults
func (r *RuleSet) Normalize() {
	r.ProductType = strings.TrimSpace(r.ProductType)
	r.Administrator = strings.TrimSpace(r.Administrator)
	r.TableCode = NormalizeTableCode(r.TableCode)
	if r.ChargebackThreshold <= 0 {
		r.ChargebackThreshold = DefaultChargebackThreshold
	}
}

// Validate checks the rule set invariants
func (r *RuleSet) Validate() error {
	if r.ProductType == "" {
		return shared.NewDomainError("INVALID_RULE", "Product type is required")
	}
	if r.Administrator == "" {
		return shared.NewDomainError("INVALID_RULE", "Administrator is required")
	}
	if len(r.Percentages) == 0 {
		return shared.NewDomainError("INVALID_RULE", "Commission schedule is required")
	}
	for i, p := range r.Percentages {
		if p.IsNegative() {
			return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("Commission percentage #%d cannot be negative", i+1))
		}
	}
	if err := r.Credit.validate("Credit"); err != nil {
		return err
	}
	if err := r.TermMonths.validate("Term"); err != nil {
		return err
	}
	if err := r.AdminFee.validate("Administrator fee"); err != nil {
		return err
	}
	for name, v := range map[string]decimal.Decimal{
		"Reserve fund":       r.ReserveFund,
		"Embedded bid limit": r.EmbeddedBidLimit,
		"Advance fee":        r.AdvanceFee,
		"Chargeback":         r.ChargebackPct,
	} {
		if v.IsNegative() {
			return shared.NewDomainError("INVALID_RULE", name+" percentage cannot be negative")
		}
	}
	if !r.AdvanceFeeBasis.IsValid() {
		return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("Unknown advance fee basis %q", r.AdvanceFeeBasis))
	}
	if !r.Readjustment.IsValid() {
		return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("Unknown readjustment index %q", r.Readjustment))
	}
	for _, m := range r.Contemplation {
		if !m.IsValid() {
			return shared.NewDomainError("INVALID_RULE", fmt.Sprintf("Unknown contemplation mode %q", m))
		}
	}
	return nil
}

// NormalizeTableCode strips spaces and the ".0" suffix spreadsheets add to numeric codes
func NormalizeTableCode(code string) string {
	code = strings.TrimSpace(code)
	return strings.TrimSuffix(code, ".0")
}
