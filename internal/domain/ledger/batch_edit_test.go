package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirs() Directories {
	return Directories{Users: testUsers(), Clients: testClients()}
}

func edit(t *testing.T, book *Book, id string, values ...FieldValue) EditResult {
	t.Helper()
	return NewEditor().Apply([]EditRow{{ID: id, Values: values}}, book, testDirs())
}

func TestEditor_Apply(t *testing.T) {
	const id = "Porto_1020_55_P1"

	t.Run("structural field is blocked and unchanged", func(t *testing.T) {
		book := newBook(t)
		res := edit(t, book, id, FieldValue{ColAdministrator, "Outra"})

		assert.Zero(t, res.Changed)
		require.Len(t, res.Log, 1)
		assert.Equal(t, LogBlocked, res.Log[0].Status)
		assert.Contains(t, res.Log[0].Detail, "structural")
		inst, _ := book.Get(id)
		assert.Equal(t, "Porto", inst.Administrator)
		assert.Empty(t, book.Dirty())
	})

	t.Run("unchanged value is ignored", func(t *testing.T) {
		book := newBook(t)
		res := edit(t, book, id, FieldValue{ColReceivable, "2250"}, FieldValue{ColAdministrator, "Porto"})
		assert.Zero(t, res.Changed)
		assert.Equal(t, LogIgnored, res.Log[0].Status)
		assert.Equal(t, LogIgnored, res.Log[1].Status)
	})

	t.Run("receivable change recomputes payouts", func(t *testing.T) {
		book := newBook(t)
		res := edit(t, book, id, FieldValue{ColReceivable, "1.000,00"})

		assert.Equal(t, 1, res.Changed)
		assert.Equal(t, LogSuccess, res.Log[0].Status)
		assert.Contains(t, res.Log[0].Detail, "2250.00 -> 1000.00")
		inst, _ := book.Get(id)
		assert.Equal(t, "200.00", inst.SalespersonPayout.StringFixed(2))
		assert.Equal(t, "50.00", inst.SupervisorPayout.StringFixed(2))
		assert.Equal(t, "100.00", inst.ManagerPayout.StringFixed(2))
		assert.Equal(t, "650.00", inst.NetCash.StringFixed(2))
		assert.Len(t, book.Dirty(), 1)
	})

	t.Run("paid locks", func(t *testing.T) {
		book := newBook(t)
		inst, _ := book.Get(id)
		inst.ReceiptStatus = StatusPaid
		inst.SalespersonStatus = StatusPaid

		res := edit(t, book, id,
			FieldValue{ColReceivable, "10"},
			FieldValue{ColSalespersonID, "31"},
			FieldValue{ColNotes, "conferido"},
		)
		assert.Equal(t, 1, res.Changed)
		assert.Equal(t, LogBlocked, res.Log[0].Status)
		assert.Contains(t, res.Log[0].Detail, "settled")
		assert.Equal(t, LogBlocked, res.Log[1].Status)
		assert.Contains(t, res.Log[1].Detail, "already paid")
		assert.Equal(t, LogSuccess, res.Log[2].Status)
		assert.Equal(t, "conferido", inst.Notes)
		assert.Equal(t, "2250.00", inst.Receivable.StringFixed(2))
	})

	t.Run("clearing a party makes it exempt", func(t *testing.T) {
		book := newBook(t)
		res := edit(t, book, id, FieldValue{ColManagerID, ClearValue})
		require.Equal(t, 1, res.Changed)

		inst, _ := book.Get(id)
		assert.Empty(t, inst.ManagerID)
		assert.Empty(t, inst.ManagerName)
		assert.True(t, inst.ManagerPayout.IsZero())
		assert.Equal(t, StatusExempt, inst.ManagerStatus)
		assert.Equal(t, "1687.50", inst.NetCash.StringFixed(2))
	})

	t.Run("linking a party moves exempt to pending", func(t *testing.T) {
		book := newBook(t)
		inst, _ := book.Get(id)
		inst.SupervisorID, inst.SupervisorName = "", ""
		inst.SupervisorStatus = StatusExempt

		res := edit(t, book, id, FieldValue{ColSupervisorID, "20"})
		require.Equal(t, 1, res.Changed)
		assert.Equal(t, "Bruno Supervisor", inst.SupervisorName)
		assert.Equal(t, StatusPending, inst.SupervisorStatus)
		assert.Equal(t, "112.50", inst.SupervisorPayout.StringFixed(2))
	})

	t.Run("paid payout survives recompute", func(t *testing.T) {
		book := newBook(t)
		inst, _ := book.Get(id)
		inst.SalespersonStatus = StatusPaid

		edit(t, book, id, FieldValue{ColReceivable, "1000"})
		assert.Equal(t, "450.00", inst.SalespersonPayout.StringFixed(2))
		assert.Equal(t, "400.00", inst.NetCash.StringFixed(2))
	})

	t.Run("errors", func(t *testing.T) {
		book := newBook(t)
		res := NewEditor().Apply([]EditRow{
			{ID: "missing", Values: []FieldValue{{ColNotes, "x"}}},
			{ID: id, Values: []FieldValue{
				{ColSalespersonID, "99"},
				{ColReceivable, "abc"},
				{ColDueDate, "31/02/2024"},
				{"coluna_nova", "1"},
				{ColNetCash, "5"},
				{ColClientID, "2"},
			}},
		}, book, testDirs())

		require.Len(t, res.Log, 7)
		assert.Equal(t, LogError, res.Log[0].Status)
		assert.Equal(t, LogError, res.Log[1].Status)
		assert.Equal(t, LogError, res.Log[2].Status)
		assert.Equal(t, LogError, res.Log[3].Status)
		assert.Equal(t, LogIgnored, res.Log[4].Status)
		assert.Equal(t, LogBlocked, res.Log[5].Status)
		assert.Equal(t, LogSuccess, res.Log[6].Status)
		assert.Equal(t, 1, res.Changed)

		inst, _ := book.Get(id)
		assert.Equal(t, "Maria Souza", inst.ClientName)
	})

	t.Run("statuses and dates", func(t *testing.T) {
		book := newBook(t)
		res := edit(t, book, id,
			FieldValue{ColDueDate, "20/03/2024"},
			FieldValue{ColClientStatus, "pending"},
			FieldValue{ColSalespersonStatus, "Pago"},
		)
		assert.Equal(t, 3, res.Changed)
		inst, _ := book.Get(id)
		assert.Equal(t, "2024-03-20", inst.Field(ColDueDate))
		assert.Equal(t, StatusPending, inst.ClientStatus)
		assert.Equal(t, StatusPaid, inst.SalespersonStatus)
	})
}

func TestIsStructural(t *testing.T) {
	for _, col := range []string{ColAdministrator, ColLabel, ColProductType, ColSaleID, ColGroup, ColQuota, ColID} {
		assert.True(t, IsStructural(col), col)
	}
	assert.False(t, IsStructural(ColReceivable))
}
