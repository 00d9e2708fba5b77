package ledger

import (
	"testing"
	"time"

	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generated(t *testing.T) []Installment {
	t.Helper()
	res, _ := generate(t, testSale())
	require.Len(t, res.Installments, InstallmentCount)
	return res.Installments
}

// persist mimics the service: cancelled rows replace the stored ones and the chargeback is appended
func persist(items []Installment, res CancelResult) []Installment {
	byID := make(map[string]int, len(items))
	for i := range items {
		byID[items[i].ID] = i
	}
	for _, c := range res.Cancelled {
		items[byID[c.ID]] = c
	}
	if res.Chargeback != nil {
		items = append(items, *res.Chargeback)
	}
	return items
}

func TestReconstructCredit(t *testing.T) {
	rule := testRule()
	credit, ok := ReconstructCredit(generated(t), &rule)
	require.True(t, ok)
	assert.Equal(t, "150000", credit.String())

	_, ok = ReconstructCredit(nil, &rule)
	assert.False(t, ok)
	_, ok = ReconstructCredit(generated(t), nil)
	assert.False(t, ok)
}

func TestCanceller_Cancel(t *testing.T) {
	today := date(2024, time.June, 1)
	rule := testRule()
	req := CancelRequest{SaleID: "Porto_1020_55", Cutoff: 2}

	t.Run("zeroes future installments and books chargeback", func(t *testing.T) {
		res := NewCanceller().Cancel(req, generated(t), &rule, today)

		assert.True(t, res.Applied)
		require.Len(t, res.Cancelled, 10)
		for _, inst := range res.Cancelled {
			assert.Greater(t, inst.Number(), 2)
			assert.True(t, inst.Receivable.IsZero())
			assert.True(t, inst.ClientAmount.IsZero())
			assert.True(t, inst.NetCash.IsZero())
			assert.True(t, inst.SalespersonPayout.IsZero())
			assert.Equal(t, StatusCancelled, inst.ReceiptStatus)
			assert.Equal(t, StatusCancelled, inst.ClientStatus)
		}

		require.NotNil(t, res.Chargeback)
		est := res.Chargeback
		assert.Equal(t, "Porto_1020_55_EST", est.ID)
		assert.Equal(t, ChargebackLabel, est.Label)
		assert.Equal(t, "-1500.00", est.Receivable.StringFixed(2))
		assert.True(t, est.NetCash.Equal(est.Receivable))
		assert.True(t, est.SalespersonPayout.IsZero())
		assert.Equal(t, StatusChargeback, est.ReceiptStatus)
		assert.Equal(t, StatusChargeback, est.ClientStatus)
		assert.Equal(t, StatusExempt, est.SalespersonStatus)
		assert.Equal(t, StatusExempt, est.ManagerStatus)
		assert.Equal(t, today, est.DueDate)
		assert.Equal(t, "30", est.SalespersonID)
		assert.Len(t, res.Entries, 2)
	})

	t.Run("second call is a no-op", func(t *testing.T) {
		c := NewCanceller()
		items := persist(generated(t), c.Cancel(req, generated(t), &rule, today))

		again := c.Cancel(req, items, &rule, today)
		assert.False(t, again.Applied)
		assert.Empty(t, again.Cancelled)
		assert.Nil(t, again.Chargeback)
		require.Len(t, again.Entries, 1)
		assert.Equal(t, LogIgnored, again.Entries[0].Status)
		assert.Contains(t, again.Entries[0].Detail, "already cancelled")
	})

	t.Run("no chargeback above threshold", func(t *testing.T) {
		res := NewCanceller().Cancel(CancelRequest{SaleID: "Porto_1020_55", Cutoff: 4}, generated(t), &rule, today)
		assert.True(t, res.Applied)
		assert.Len(t, res.Cancelled, 8)
		assert.Nil(t, res.Chargeback)
	})

	t.Run("no chargeback without penalty", func(t *testing.T) {
		r := rule
		r.ChargebackPct = dec("0")
		res := NewCanceller().Cancel(req, generated(t), &r, today)
		assert.True(t, res.Applied)
		assert.Nil(t, res.Chargeback)
	})

	t.Run("existing chargeback is not duplicated", func(t *testing.T) {
		items := generated(t)
		items = append(items, Installment{ID: "Porto_1020_55_EST", SaleID: "Porto_1020_55", Label: ChargebackLabel})
		res := NewCanceller().Cancel(req, items, &rule, today)
		assert.True(t, res.Applied)
		assert.Nil(t, res.Chargeback)
	})

	t.Run("nothing to cancel after last installment", func(t *testing.T) {
		res := NewCanceller().Cancel(CancelRequest{SaleID: "Porto_1020_55", Cutoff: 12}, generated(t), &rule, today)
		assert.False(t, res.Applied)
		assert.Contains(t, res.Entries[0].Detail, "nothing to cancel")
	})

	t.Run("unknown sale", func(t *testing.T) {
		res := NewCanceller().Cancel(CancelRequest{SaleID: "X"}, nil, &rule, today)
		assert.Equal(t, LogError, res.Entries[0].Status)
	})

	t.Run("removed product cancels without penalty", func(t *testing.T) {
		var missing *catalog.RuleSet
		res := NewCanceller().Cancel(req, generated(t), missing, today)
		assert.True(t, res.Applied)
		assert.Nil(t, res.Chargeback)
	})
}

func TestCanceller_Cancel_EveryOutcomeIsLogged(t *testing.T) {
	today := date(2024, time.June, 1)
	rule := testRule()

	tests := []struct {
		name   string
		req    CancelRequest
		items  func() []Installment
		status LogStatus
	}{
		{"unknown sale", CancelRequest{SaleID: "Porto_9999_1", Ref: "row 2"}, func() []Installment { return nil }, LogError},
		{"cutoff out of range", CancelRequest{SaleID: "Porto_1020_55", Ref: "row 3", Cutoff: 13}, func() []Installment { return generated(t) }, LogError},
		{"nothing after cutoff", CancelRequest{SaleID: "Porto_1020_55", Ref: "row 4", Cutoff: 12}, func() []Installment { return generated(t) }, LogIgnored},
		{"cancelled", CancelRequest{SaleID: "Porto_1020_55", Ref: "row 5", Cutoff: 2}, func() []Installment { return generated(t) }, LogSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewCanceller().Cancel(tt.req, tt.items(), &rule, today)

			require.NotEmpty(t, res.Entries)
			assert.Equal(t, tt.status, res.Entries[0].Status)
			assert.Equal(t, tt.req.Ref, res.Entries[0].Ref)
		})
	}
}
