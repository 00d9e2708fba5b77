package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
)

// ClearValue is the cell value that empties an optional text or id column.
// Empty cells are skipped.
const ClearValue = "-"

// FieldValue is one column update of an edit row
type FieldValue struct {
	Column string
	Value  string
}

// EditRow is a sparse update of one installment
type EditRow struct {
	Ref    string
	ID     string
	Values []FieldValue
}

// EditResult carries the number of changed fields and the per-field log
type EditResult struct {
	Changed int
	Log     []LogEntry
}

// Directories are the snapshots edits validate ids against
type Directories struct {
	Users   *identity.Directory
	Clients *client.Directory
}

type fieldKind int

const (
	kindText fieldKind = iota
	kindUser
	kindClient
	kindMoney
	kindDate
	kindStatus
)

type editField struct {
	kind fieldKind
	// structural fields identify the sale and never change
	structural bool
	// derived fields are computed from others
	derived bool
	party   Party
	// paidLock returns a reason when the field is frozen by a payment
	paidLock func(i *Installment) string
	set      func(i *Installment, v parsedValue)
}

type parsedValue struct {
	text   string
	money  decimal.Decimal
	date   *time.Time
	status Status
}

func payoutLock(p Party) func(i *Installment) string {
	return func(i *Installment) string {
		if i.PartyStatus(p) == StatusPaid {
			return fmt.Sprintf("%s commission already paid", p)
		}
		return ""
	}
}

func receiptLock(i *Installment) string {
	if i.ReceiptStatus == StatusPaid {
		return "receipt already settled"
	}
	return ""
}

var editFields = map[string]editField{
	ColID:            {kind: kindText, structural: true},
	ColSaleID:        {kind: kindText, structural: true},
	ColAdministrator: {kind: kindText, structural: true},
	ColGroup:         {kind: kindText, structural: true},
	ColQuota:         {kind: kindText, structural: true},
	ColProductType:   {kind: kindText, structural: true},
	ColLabel:         {kind: kindText, structural: true},
	ColNetCash:       {kind: kindMoney, derived: true},

	ColDueDate: {kind: kindDate, set: func(i *Installment, v parsedValue) {
		if v.date != nil {
			i.DueDate = *v.date
		}
	}},
	ColReceivedAt: {kind: kindDate, set: func(i *Installment, v parsedValue) { i.ReceivedAt = v.date }},
	ColReceivedAmount: {kind: kindMoney, set: func(i *Installment, v parsedValue) {
		i.ReceivedAmount = decimal.NewNullDecimal(v.money)
	}},
	ColClientID:        {kind: kindClient},
	ColClientName:      {kind: kindText, set: func(i *Installment, v parsedValue) { i.ClientName = v.text }},
	ColSalespersonID:   {kind: kindUser, party: PartySalesperson, paidLock: payoutLock(PartySalesperson)},
	ColSupervisorID:    {kind: kindUser, party: PartySupervisor, paidLock: payoutLock(PartySupervisor)},
	ColManagerID:       {kind: kindUser, party: PartyManager, paidLock: payoutLock(PartyManager)},
	ColSalespersonName: {kind: kindText, set: func(i *Installment, v parsedValue) { i.SalespersonName = v.text }},
	ColSupervisorName:  {kind: kindText, set: func(i *Installment, v parsedValue) { i.SupervisorName = v.text }},
	ColManagerName:     {kind: kindText, set: func(i *Installment, v parsedValue) { i.ManagerName = v.text }},
	ColClientAmount:    {kind: kindMoney, set: func(i *Installment, v parsedValue) { i.ClientAmount = v.money }},
	ColReceivable: {kind: kindMoney, paidLock: receiptLock, set: func(i *Installment, v parsedValue) {
		i.Receivable = v.money
	}},
	ColSalespersonPayout: {kind: kindMoney, party: PartySalesperson, paidLock: payoutLock(PartySalesperson), set: func(i *Installment, v parsedValue) {
		i.SalespersonPayout = v.money
	}},
	ColSupervisorPayout: {kind: kindMoney, party: PartySupervisor, paidLock: payoutLock(PartySupervisor), set: func(i *Installment, v parsedValue) {
		i.SupervisorPayout = v.money
	}},
	ColManagerPayout: {kind: kindMoney, party: PartyManager, paidLock: payoutLock(PartyManager), set: func(i *Installment, v parsedValue) {
		i.ManagerPayout = v.money
	}},
	ColReceiptStatus:     {kind: kindStatus, set: func(i *Installment, v parsedValue) { i.ReceiptStatus = v.status }},
	ColClientStatus:      {kind: kindStatus, set: func(i *Installment, v parsedValue) { i.ClientStatus = v.status }},
	ColSalespersonStatus: {kind: kindStatus, party: PartySalesperson},
	ColSupervisorStatus:  {kind: kindStatus, party: PartySupervisor},
	ColManagerStatus:     {kind: kindStatus, party: PartyManager},
	ColNotes:             {kind: kindText, set: func(i *Installment, v parsedValue) { i.Notes = v.text }},
}

// IsStructural reports whether the column identifies the sale and can never be edited
func IsStructural(col string) bool {
	f, ok := editFields[col]
	return ok && f.structural
}

// Editor applies sparse field updates to installments under structural and payment locks
type Editor struct{}

// NewEditor creates an editor
func NewEditor() *Editor {
	return &Editor{}
}

// Apply evaluates every field independently: a blocked field never prevents the other
// fields of the same row from updating. Changed installments are touched in the book.
func (e *Editor) Apply(rows []EditRow, book *Book, dir Directories) EditResult {
	var res EditResult
	log := &logBuffer{}
	for _, row := range rows {
		id := strings.TrimSpace(row.ID)
		if id == "" {
			continue
		}
		inst, ok := book.Get(id)
		if !ok {
			log.add(id, LogError, "installment not found")
			continue
		}
		changed, recompute, payoutEdited := 0, false, false
		for _, fv := range row.Values {
			col := fv.Column
			if col == ColID || strings.TrimSpace(fv.Value) == "" {
				continue
			}
			ok, recalc := e.applyField(log, inst, col, strings.TrimSpace(fv.Value), dir)
			if !ok {
				continue
			}
			changed++
			if recalc {
				recompute = true
			}
			if col == ColSalespersonPayout || col == ColSupervisorPayout || col == ColManagerPayout {
				payoutEdited = true
			}
		}
		switch {
		case recompute:
			inst.RecomputePayouts(dir.Users)
		case payoutEdited:
			inst.RecomputeNetCash()
		}
		if changed > 0 {
			inst.UpdatedAt = time.Now()
			book.Touch(inst.ID)
			res.Changed += changed
		}
	}
	res.Log = log.entries
	return res
}

// applyField returns whether the field changed and whether payouts must be recomputed
func (e *Editor) applyField(log *logBuffer, inst *Installment, col, raw string, dir Directories) (bool, bool) {
	f, known := editFields[col]
	if !known {
		log.add(inst.ID, LogIgnored, fmt.Sprintf("unknown column '%s'", col))
		return false, false
	}

	current := inst.Field(col)
	v, err := parseEditValue(f.kind, raw)
	if err != nil {
		log.add(inst.ID, LogError, fmt.Sprintf("%s: %v", col, err))
		return false, false
	}
	if col == ColDueDate && v.date == nil {
		log.add(inst.ID, LogError, fmt.Sprintf("%s: due date is required", col))
		return false, false
	}
	if equalValue(f.kind, current, v) {
		log.add(inst.ID, LogIgnored, fmt.Sprintf("'%s' unchanged (%s)", col, current))
		return false, false
	}
	if f.structural {
		log.add(inst.ID, LogBlocked, fmt.Sprintf("'%s' is structural", col))
		return false, false
	}
	if f.derived {
		log.add(inst.ID, LogBlocked, fmt.Sprintf("'%s' is derived from the receivable and payouts", col))
		return false, false
	}
	if f.paidLock != nil {
		if reason := f.paidLock(inst); reason != "" {
			log.add(inst.ID, LogBlocked, reason)
			return false, false
		}
	}

	recalc := false
	switch f.kind {
	case kindUser:
		name := ""
		if v.text != "" {
			u, ok := dir.Users.Get(v.text)
			if !ok {
				log.add(inst.ID, LogError, fmt.Sprintf("%s: user %s not found", col, v.text))
				return false, false
			}
			name = u.Name
		} else if f.party == PartySalesperson {
			log.add(inst.ID, LogError, fmt.Sprintf("%s: salesperson is required", col))
			return false, false
		}
		inst.setParty(f.party, v.text, name)
		recalc = true
	case kindClient:
		if v.text == "" {
			log.add(inst.ID, LogError, fmt.Sprintf("%s: client is required", col))
			return false, false
		}
		c, ok := dir.Clients.Get(v.text)
		if !ok {
			log.add(inst.ID, LogError, fmt.Sprintf("%s: client %s not found", col, v.text))
			return false, false
		}
		inst.ClientID, inst.ClientName = c.ID, c.Name
	case kindStatus:
		if f.party != "" {
			if v.status == StatusPaid && inst.PartyID(f.party) == "" {
				log.add(inst.ID, LogBlocked, fmt.Sprintf("%s has no %s, payout is exempt", inst.ID, f.party))
				return false, false
			}
			inst.SetPartyStatus(f.party, v.status)
		} else {
			f.set(inst, v)
		}
	default:
		f.set(inst, v)
		recalc = col == ColReceivable
	}

	log.add(inst.ID, LogSuccess, fmt.Sprintf("%s: %s -> %s", col, current, inst.Field(col)))
	return true, recalc
}

func parseEditValue(kind fieldKind, raw string) (parsedValue, error) {
	if raw == ClearValue {
		switch kind {
		case kindText, kindUser, kindClient, kindDate:
			return parsedValue{}, nil
		}
		return parsedValue{}, fmt.Errorf("column cannot be cleared")
	}
	switch kind {
	case kindMoney:
		d, err := parseMoney(raw)
		if err != nil {
			return parsedValue{}, err
		}
		return parsedValue{money: d}, nil
	case kindDate:
		t, err := ParseDate(raw)
		if err != nil {
			return parsedValue{}, err
		}
		return parsedValue{date: &t}, nil
	case kindStatus:
		s, err := ParseStatus(raw)
		if err != nil {
			return parsedValue{}, err
		}
		return parsedValue{status: s}, nil
	case kindUser, kindClient:
		return parsedValue{text: NormalizeCode(raw)}, nil
	}
	return parsedValue{text: raw}, nil
}

func equalValue(kind fieldKind, current string, v parsedValue) bool {
	switch kind {
	case kindMoney:
		if current == "" {
			return false
		}
		d, err := decimal.NewFromString(current)
		return err == nil && d.Equal(v.money)
	case kindDate:
		if v.date == nil {
			return current == ""
		}
		return current == v.date.Format(DateLayout)
	case kindStatus:
		return Status(current) == v.status
	case kindUser, kindClient:
		return NormalizeCode(current) == v.text
	}
	return strings.TrimSpace(current) == v.text
}
