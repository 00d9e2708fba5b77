package ledger

import (
	"fmt"
	"time"

	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CancelRequest asks to cancel every installment of a sale after the cutoff number
type CancelRequest struct {
	Ref    string
	SaleID string
	Cutoff int
}

// CancelResult is the outcome of cancelling one sale
type CancelResult struct {
	Cancelled  []Installment
	Chargeback *Installment
	Entries    []LogEntry
	// Applied is false when nothing changed
	Applied bool
}

// Canceller zeroes future installments of churned sales and books the early cancellation penalty
type Canceller struct{}

// NewCanceller creates a canceller
func NewCanceller() *Canceller {
	return &Canceller{}
}

// Cancel works on the installments of one sale, chargeback row included when present.
// rule may be nil when the product has been removed from the catalog; no penalty is
// booked in that case. Calling it twice with the same cutoff is a no-op the second time.
func (c *Canceller) Cancel(req CancelRequest, installments []Installment, rule *catalog.RuleSet, today time.Time) (res CancelResult) {
	log := &logBuffer{}
	ref := req.Ref
	if ref == "" {
		ref = req.SaleID
	}
	defer func() { res.Entries = log.entries }()

	if len(installments) == 0 {
		log.add(ref, LogError, fmt.Sprintf("sale %s not found", req.SaleID))
		return res
	}
	if req.Cutoff < 0 || req.Cutoff > InstallmentCount {
		log.add(ref, LogError, fmt.Sprintf("cutoff %d must be between 0 and %d", req.Cutoff, InstallmentCount))
		return res
	}

	regular := make([]Installment, 0, len(installments))
	hasChargeback := false
	for _, inst := range installments {
		if inst.IsChargeback() {
			hasChargeback = true
			continue
		}
		regular = append(regular, inst)
	}

	// the credit is reconstructed before any receivable is zeroed
	credit, hasCredit := ReconstructCredit(regular, rule)

	future := make([]*Installment, 0, len(regular))
	for i := range regular {
		if regular[i].Number() > req.Cutoff {
			future = append(future, &regular[i])
		}
	}
	if len(future) == 0 {
		log.add(ref, LogIgnored, fmt.Sprintf("%s: nothing to cancel after installment %d", req.SaleID, req.Cutoff))
		return res
	}

	now := time.Now()
	for _, inst := range future {
		if inst.ReceiptStatus == StatusCancelled {
			continue
		}
		inst.Cancel()
		res.Cancelled = append(res.Cancelled, *inst)
	}
	if len(res.Cancelled) == 0 {
		log.add(ref, LogIgnored, fmt.Sprintf("%s already cancelled", req.SaleID))
		return res
	}
	res.Applied = true
	log.add(ref, LogSuccess, fmt.Sprintf("%s: %d future installments cancelled", req.SaleID, len(res.Cancelled)))

	if hasChargeback || rule == nil || !rule.AppliesChargeback(req.Cutoff) {
		return res
	}
	if !hasCredit {
		log.add(ref, LogWarning, fmt.Sprintf("%s: credit could not be reconstructed, no chargeback booked", req.SaleID))
		return res
	}
	est := newChargeback(regular[0], credit, rule.ChargebackPct, today)
	est.CreatedAt, est.UpdatedAt = now, now
	res.Chargeback = &est
	log.add(ref, LogSuccess, fmt.Sprintf("%s: chargeback of %s booked", req.SaleID, est.Receivable.StringFixed(2)))
	return res
}

// ReconstructCredit recovers the credit of a sale from the first installment, by
// number, that has a non-zero receivable and a non-zero schedule percentage.
// Repeated percentages make this an approximation.
func ReconstructCredit(installments []Installment, rule *catalog.RuleSet) (decimal.Decimal, bool) {
	if rule == nil {
		return decimal.Zero, false
	}
	var best *Installment
	for i := range installments {
		inst := &installments[i]
		n := inst.Number()
		if n == 0 || inst.Receivable.IsZero() || rule.PercentageAt(n).IsZero() {
			continue
		}
		if best == nil || n < best.Number() {
			best = inst
		}
	}
	if best == nil {
		return decimal.Zero, false
	}
	return valueobject.FromPercentOf(best.Receivable, rule.PercentageAt(best.Number()))
}

func newChargeback(from Installment, credit, pct decimal.Decimal, today time.Time) Installment {
	penalty := valueobject.RoundMoney(valueobject.PercentOf(credit, pct)).Neg()
	return Installment{
		ID:                ChargebackID(from.SaleID),
		SaleID:            from.SaleID,
		Administrator:     from.Administrator,
		Group:             from.Group,
		Quota:             from.Quota,
		ProductType:       from.ProductType,
		Label:             ChargebackLabel,
		DueDate:           today,
		ClientID:          from.ClientID,
		ClientName:        from.ClientName,
		SalespersonID:     from.SalespersonID,
		SalespersonName:   from.SalespersonName,
		SupervisorID:      from.SupervisorID,
		SupervisorName:    from.SupervisorName,
		ManagerID:         from.ManagerID,
		ManagerName:       from.ManagerName,
		Receivable:        penalty,
		NetCash:           penalty,
		ReceiptStatus:     StatusChargeback,
		ClientStatus:      StatusChargeback,
		SalespersonStatus: StatusExempt,
		SupervisorStatus:  StatusExempt,
		ManagerStatus:     StatusExempt,
	}
}
