package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InstallmentCount is the fixed number of installments generated for every sale
const InstallmentCount = 12

// ChargebackLabel is the installment label of the synthetic penalty row
const ChargebackLabel = "Estorno"

const chargebackSuffix = "_EST"

// SaleID builds the id grouping all installments of one quota
func SaleID(administrator, group, quota string) string {
	return fmt.Sprintf("%s_%s_%s", administrator, group, quota)
}

// InstallmentID builds the deterministic id of installment n of a sale
func InstallmentID(saleID string, n int) string {
	return fmt.Sprintf("%s_P%d", saleID, n)
}

// ChargebackID builds the id of the penalty row of a sale
func ChargebackID(saleID string) string {
	return saleID + chargebackSuffix
}

// Label renders the installment label "n/12"
func Label(n int) string {
	return fmt.Sprintf("%d/%d", n, InstallmentCount)
}

const installmentWord = "parcela"

// ParseInstallmentNumber extracts n from "n", "n/12", "Parcela n" or "Parcela n/12", in any letter case.
// It returns 0 when the text carries no number.
func ParseInstallmentNumber(s string) int {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	if len(s) >= len(installmentWord) && strings.EqualFold(s[:len(installmentWord)], installmentWord) {
		s = s[len(installmentWord):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// NormalizeCode trims group and quota codes and drops the ".0" suffix spreadsheets add
func NormalizeCode(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".0")
}

// Installment is one scheduled billing event of a sale and the commission it carries
type Installment struct {
	ID            string `json:"id"`
	SaleID        string `json:"sale_id"`
	Administrator string `json:"administrator"`
	Group         string `json:"group"`
	Quota         string `json:"quota"`
	ProductType   string `json:"product_type"`
	Label         string `json:"label"`

	DueDate        time.Time           `json:"due_date"`
	ReceivedAt     *time.Time          `json:"received_at,omitempty"`
	ReceivedAmount decimal.NullDecimal `json:"received_amount"`

	ClientID        string `json:"client_id"`
	ClientName      string `json:"client_name"`
	SalespersonID   string `json:"salesperson_id"`
	SalespersonName string `json:"salesperson_name"`
	SupervisorID    string `json:"supervisor_id"`
	SupervisorName  string `json:"supervisor_name"`
	ManagerID       string `json:"manager_id"`
	ManagerName     string `json:"manager_name"`

	ClientAmount      decimal.Decimal `json:"client_amount"`
	Receivable        decimal.Decimal `json:"receivable"`
	SalespersonPayout decimal.Decimal `json:"salesperson_payout"`
	SupervisorPayout  decimal.Decimal `json:"supervisor_payout"`
	ManagerPayout     decimal.Decimal `json:"manager_payout"`
	NetCash           decimal.Decimal `json:"net_cash"`

	ReceiptStatus     Status `json:"receipt_status"`
	ClientStatus      Status `json:"client_status"`
	SalespersonStatus Status `json:"salesperson_status"`
	SupervisorStatus  Status `json:"supervisor_status"`
	ManagerStatus     Status `json:"manager_status"`

	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Number returns the installment position, or 0 for the chargeback row
func (i *Installment) Number() int {
	return ParseInstallmentNumber(i.Label)
}

// IsChargeback reports whether this is the synthetic penalty row
func (i *Installment) IsChargeback() bool {
	return i.Label == ChargebackLabel || strings.HasSuffix(i.ID, chargebackSuffix)
}

// HasPaidFlow reports whether the receipt or any payout has been paid.
// The client status is not considered: installment 1 is born paid by the client.
func (i *Installment) HasPaidFlow() bool {
	return i.ReceiptStatus == StatusPaid ||
		i.SalespersonStatus == StatusPaid ||
		i.SupervisorStatus == StatusPaid ||
		i.ManagerStatus == StatusPaid
}

// PartyID returns the user id linked for the party
func (i *Installment) PartyID(p Party) string {
	switch p {
	case PartySalesperson:
		return i.SalespersonID
	case PartySupervisor:
		return i.SupervisorID
	case PartyManager:
		return i.ManagerID
	}
	return ""
}

// PartyStatus returns the payout status of the party
func (i *Installment) PartyStatus(p Party) Status {
	switch p {
	case PartySalesperson:
		return i.SalespersonStatus
	case PartySupervisor:
		return i.SupervisorStatus
	case PartyManager:
		return i.ManagerStatus
	}
	return ""
}

// SetPartyStatus sets the payout status of the party
func (i *Installment) SetPartyStatus(p Party, s Status) {
	switch p {
	case PartySalesperson:
		i.SalespersonStatus = s
	case PartySupervisor:
		i.SupervisorStatus = s
	case PartyManager:
		i.ManagerStatus = s
	}
}

// PartyPayout returns the payout amount of the party
func (i *Installment) PartyPayout(p Party) decimal.Decimal {
	switch p {
	case PartySalesperson:
		return i.SalespersonPayout
	case PartySupervisor:
		return i.SupervisorPayout
	case PartyManager:
		return i.ManagerPayout
	}
	return decimal.Zero
}

func (i *Installment) setPartyPayout(p Party, v decimal.Decimal) {
	switch p {
	case PartySalesperson:
		i.SalespersonPayout = v
	case PartySupervisor:
		i.SupervisorPayout = v
	case PartyManager:
		i.ManagerPayout = v
	}
}

func (i *Installment) setParty(p Party, id, name string) {
	switch p {
	case PartySalesperson:
		i.SalespersonID, i.SalespersonName = id, name
	case PartySupervisor:
		i.SupervisorID, i.SupervisorName = id, name
	case PartyManager:
		i.ManagerID, i.ManagerName = id, name
	}
}

// RecomputeNetCash keeps net cash equal to the receivable minus all payouts
func (i *Installment) RecomputeNetCash() {
	i.NetCash = i.Receivable.Sub(i.SalespersonPayout).Sub(i.SupervisorPayout).Sub(i.ManagerPayout)
}

// RateSource gives the commission rate of a user for each party role
type RateSource interface {
	SalespersonRate(id string) decimal.Decimal
	SupervisorRate(id string) decimal.Decimal
	ManagerRate(id string) decimal.Decimal
}

func partyRate(rates RateSource, p Party, id string) decimal.Decimal {
	if id == "" {
		return decimal.Zero
	}
	switch p {
	case PartySalesperson:
		return rates.SalespersonRate(id)
	case PartySupervisor:
		return rates.SupervisorRate(id)
	case PartyManager:
		return rates.ManagerRate(id)
	}
	return decimal.Zero
}

// RecomputePayouts recalculates every payout that has not been paid yet from the
// current receivable and the rates of the linked parties, then normalizes payout
// statuses: no party means Exempt, a newly linked party moves Exempt to Pending.
func (i *Installment) RecomputePayouts(rates RateSource) {
	for _, p := range Parties {
		id := i.PartyID(p)
		status := i.PartyStatus(p)
		if status == StatusPaid {
			continue
		}
		i.setPartyPayout(p, valueobject.RoundMoney(i.Receivable.Mul(partyRate(rates, p, id))))
		switch {
		case id == "":
			i.SetPartyStatus(p, StatusExempt)
		case status == StatusExempt || status == "":
			i.SetPartyStatus(p, StatusPending)
		}
	}
	i.RecomputeNetCash()
}

// Cancel zeroes every amount and marks the receipt and the client payment cancelled
func (i *Installment) Cancel() {
	i.ClientAmount = decimal.Zero
	i.Receivable = decimal.Zero
	i.SalespersonPayout = decimal.Zero
	i.SupervisorPayout = decimal.Zero
	i.ManagerPayout = decimal.Zero
	i.NetCash = decimal.Zero
	i.ReceiptStatus = StatusCancelled
	i.ClientStatus = StatusCancelled
	i.UpdatedAt = time.Now()
}

// Settle marks the receipt from the administrator as paid
func (i *Installment) Settle(amount decimal.Decimal, on time.Time) {
	d := on
	i.ReceiptStatus = StatusPaid
	i.ReceivedAmount = decimal.NewNullDecimal(amount)
	i.ReceivedAt = &d
	i.UpdatedAt = time.Now()
}
