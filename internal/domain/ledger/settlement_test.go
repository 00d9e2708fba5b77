package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetClientStatus(t *testing.T) {
	book := newBook(t)
	n, log := SetClientStatus([]string{"Porto_1020_55_P2", "Porto_1020_55_P1", "missing"}, StatusPaid, book)

	assert.Equal(t, 1, n)
	require.Len(t, log, 3)
	assert.Equal(t, LogSuccess, log[0].Status)
	assert.Equal(t, LogIgnored, log[1].Status)
	assert.Equal(t, LogIgnored, log[2].Status)

	_, log = SetClientStatus([]string{"Porto_1020_55_P2"}, StatusCancelled, book)
	assert.Equal(t, LogError, log[0].Status)
}

func TestSettlePayouts(t *testing.T) {
	res, _ := generate(t, func() SaleInput { s := testSale(); s.SalespersonID = "31"; return s }())
	book := NewBook(res.Installments)

	n, log := SettlePayouts([]PayoutUpdate{
		{ID: "Porto_1020_55_P1", Party: "Vendedor", Status: "Pago"},
		{ID: "Porto_1020_55_P1", Party: "Gerente", Status: "Pago"},
		{ID: "Porto_1020_55_P1", Party: "Vendedor", Status: "paid"},
		{ID: "Porto_1020_55_P1", Party: "Diretor", Status: "Pago"},
		{ID: "Porto_1020_55_P1", Party: "Vendedor", Status: "Isento"},
	}, book)

	assert.Equal(t, 1, n)
	require.Len(t, log, 5)
	assert.Equal(t, LogSuccess, log[0].Status)
	assert.Equal(t, LogBlocked, log[1].Status)
	assert.Equal(t, LogIgnored, log[2].Status)
	assert.Equal(t, LogError, log[3].Status)
	assert.Equal(t, LogError, log[4].Status)

	inst, _ := book.Get("Porto_1020_55_P1")
	assert.Equal(t, StatusPaid, inst.SalespersonStatus)
	assert.Equal(t, StatusExempt, inst.ManagerStatus)
}

func TestAlertFor(t *testing.T) {
	today := date(2024, time.May, 10)
	tests := []struct {
		due   time.Time
		level AlertLevel
		text  string
	}{
		{date(2024, time.May, 7), AlertOverdue, "Overdue (3 days)"},
		{date(2024, time.May, 10), AlertDueToday, "Due today"},
		{date(2024, time.May, 17), AlertDueSoon, "Due in 7 days"},
		{date(2024, time.May, 18), AlertOnTime, "On time"},
	}
	for _, tt := range tests {
		a := AlertFor(tt.due, today.Add(15*time.Hour))
		assert.Equal(t, tt.level, a.Level)
		assert.Equal(t, tt.text, a.Text)
	}

	inst := Installment{ClientStatus: StatusPaid, DueDate: today}
	assert.Nil(t, inst.Alert(today))
	inst.ClientStatus = StatusPending
	assert.NotNil(t, inst.Alert(today))
}

func TestSummarize(t *testing.T) {
	items := generated(t)
	items[0].Settle(dec("2250"), date(2024, time.April, 1))
	items[0].SalespersonStatus = StatusPaid
	items = append(items, Installment{ID: "Porto_1020_55_EST", Label: ChargebackLabel, Receivable: dec("-1500"), NetCash: dec("-1500"), ReceiptStatus: StatusChargeback})

	s := Summarize(items)
	assert.Equal(t, 13, s.Installments)
	assert.Equal(t, "5250.00", s.Receivable.StringFixed(2))
	assert.Equal(t, "2250.00", s.Received.StringFixed(2))
	assert.Equal(t, "-1500.00", s.Chargebacks.StringFixed(2))
	assert.Equal(t, "1050.00", s.SalespersonPayout.StringFixed(2))
	assert.Equal(t, "600.00", s.PendingByParty[PartySalesperson].StringFixed(2))
	assert.Equal(t, 11, s.ByReceiptStatus[StatusPending])
	assert.Equal(t, 1, s.ByReceiptStatus[StatusPaid])

	released := Commissions(items, PartySalesperson, "30", true)
	require.Len(t, released, 1)
	assert.True(t, released[0].Released)
	assert.Len(t, Commissions(items, PartySalesperson, "", false), InstallmentCount)
	assert.Empty(t, Commissions(items, PartyManager, "99", false))
}
