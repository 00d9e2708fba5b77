package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the accepted difference between a statement amount and the expected receivable
var DefaultTolerance = decimal.NewFromInt(1)

// StatementRow is one line of an administrator's payment statement
type StatementRow struct {
	Ref               string
	Group             string
	Quota             string
	Amount            decimal.Decimal
	InstallmentNumber int
}

// ReconcileResult carries the settled count and the per-row log
type ReconcileResult struct {
	Matched int
	Log     []LogEntry
}

// Matcher settles installments against statement rows
type Matcher struct {
	Tolerance decimal.Decimal
}

// NewMatcher creates a matcher; a non-positive tolerance falls back to DefaultTolerance
func NewMatcher(tolerance decimal.Decimal) *Matcher {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Matcher{Tolerance: tolerance}
}

// Reconcile matches each row against the book. Settled installments are touched in
// the book; nothing is ever settled twice and mismatched amounts are never accepted.
func (m *Matcher) Reconcile(rows []StatementRow, book *Book, today time.Time) ReconcileResult {
	var res ReconcileResult
	log := &logBuffer{}
	for i, row := range rows {
		ref := row.Ref
		if ref == "" {
			ref = fmt.Sprintf("row %d", i+1)
		}
		if m.reconcileRow(log, ref, row, book, today) {
			res.Matched++
		}
	}
	res.Log = log.entries
	return res
}

func (m *Matcher) reconcileRow(log *logBuffer, ref string, row StatementRow, book *Book, today time.Time) bool {
	group, quota := NormalizeCode(row.Group), NormalizeCode(row.Quota)
	candidates := book.ByQuota(group, quota)
	inst, ambiguous := pickCandidate(candidates, row.InstallmentNumber)
	if inst == nil {
		if row.InstallmentNumber > 0 {
			log.add(ref, LogError, fmt.Sprintf("group %s quota %s installment %d not found", group, quota, row.InstallmentNumber))
		} else {
			log.add(ref, LogError, fmt.Sprintf("group %s quota %s: no pending installment found", group, quota))
		}
		return false
	}

	switch inst.ReceiptStatus {
	case StatusPaid:
		log.add(ref, LogIgnored, fmt.Sprintf("%s already settled", inst.ID))
		return false
	case StatusCancelled:
		log.add(ref, LogBlocked, fmt.Sprintf("%s is cancelled", inst.ID))
		return false
	}

	diff := inst.Receivable.Sub(row.Amount).Abs()
	if diff.GreaterThan(m.Tolerance) {
		log.add(ref, LogBlocked, fmt.Sprintf("Divergence on %s: expected %s, paid %s",
			inst.ID, inst.Receivable.StringFixed(2), row.Amount.StringFixed(2)))
		return false
	}

	inst.Settle(row.Amount, today)
	book.Touch(inst.ID)
	detail := fmt.Sprintf("%s settled with %s", inst.ID, row.Amount.StringFixed(2))
	if ambiguous {
		detail += " (no installment number; earliest pending installment matched)"
	}
	log.add(ref, LogSuccess, detail)
	return true
}

// pickCandidate selects by number when given, otherwise the earliest installment
// whose receipt is still pending. ambiguous reports that other pending candidates
// with a different receivable existed.
func pickCandidate(list []*Installment, number int) (inst *Installment, ambiguous bool) {
	if number > 0 {
		for _, c := range list {
			if c.Number() == number {
				return c, false
			}
		}
		return nil, false
	}
	for _, c := range list {
		if c.ReceiptStatus != StatusPending {
			continue
		}
		if inst == nil {
			inst = c
			continue
		}
		if !c.Receivable.Equal(inst.Receivable) {
			ambiguous = true
		}
	}
	return inst, ambiguous
}
