package ledger

import "github.com/shopspring/decimal"

// Summary aggregates installment amounts for the dashboard
type Summary struct {
	Installments      int                       `json:"installments"`
	Receivable        decimal.Decimal           `json:"receivable"`
	Received          decimal.Decimal           `json:"received"`
	SalespersonPayout decimal.Decimal           `json:"salesperson_payout"`
	SupervisorPayout  decimal.Decimal           `json:"supervisor_payout"`
	ManagerPayout     decimal.Decimal           `json:"manager_payout"`
	NetCash           decimal.Decimal           `json:"net_cash"`
	Chargebacks       decimal.Decimal           `json:"chargebacks"`
	ByReceiptStatus   map[Status]int            `json:"by_receipt_status"`
	PendingByParty    map[Party]decimal.Decimal `json:"pending_by_party"`
}

// Summarize totals the installments
func Summarize(items []Installment) Summary {
	s := Summary{
		ByReceiptStatus: make(map[Status]int),
		PendingByParty:  make(map[Party]decimal.Decimal, len(Parties)),
	}
	for _, p := range Parties {
		s.PendingByParty[p] = decimal.Zero
	}
	for i := range items {
		inst := &items[i]
		s.Installments++
		s.ByReceiptStatus[inst.ReceiptStatus]++
		s.NetCash = s.NetCash.Add(inst.NetCash)
		if inst.IsChargeback() {
			s.Chargebacks = s.Chargebacks.Add(inst.Receivable)
			continue
		}
		s.Receivable = s.Receivable.Add(inst.Receivable)
		if inst.ReceivedAmount.Valid {
			s.Received = s.Received.Add(inst.ReceivedAmount.Decimal)
		}
		s.SalespersonPayout = s.SalespersonPayout.Add(inst.SalespersonPayout)
		s.SupervisorPayout = s.SupervisorPayout.Add(inst.SupervisorPayout)
		s.ManagerPayout = s.ManagerPayout.Add(inst.ManagerPayout)
		for _, p := range Parties {
			if inst.PartyStatus(p) == StatusPending {
				s.PendingByParty[p] = s.PendingByParty[p].Add(inst.PartyPayout(p))
			}
		}
	}
	return s
}

// Commission is one payout line of the commissions view
type Commission struct {
	InstallmentID string          `json:"installment_id"`
	SaleID        string          `json:"sale_id"`
	Label         string          `json:"label"`
	ClientName    string          `json:"client_name"`
	Party         Party           `json:"party"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	// Released is true once the administrator has paid the receivable
	Released bool `json:"released"`
}

// Commissions extracts the payouts of a party. userID narrows to one beneficiary and
// releasedOnly keeps payouts whose receivable was already received.
func Commissions(items []Installment, party Party, userID string, releasedOnly bool) []Commission {
	out := make([]Commission, 0, len(items))
	for i := range items {
		inst := &items[i]
		id := inst.PartyID(party)
		if id == "" || inst.IsChargeback() || (userID != "" && id != userID) {
			continue
		}
		released := inst.ReceiptStatus == StatusPaid
		if releasedOnly && !released {
			continue
		}
		out = append(out, Commission{
			InstallmentID: inst.ID,
			SaleID:        inst.SaleID,
			Label:         inst.Label,
			ClientName:    inst.ClientName,
			Party:         party,
			UserID:        id,
			Amount:        inst.PartyPayout(party),
			Status:        inst.PartyStatus(party),
			Released:      released,
		})
	}
	return out
}
