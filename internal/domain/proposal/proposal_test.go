package proposal

import (
	"testing"
	"time"

	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSale() Sale {
	return Sale{
		ClientName:    "Maria Souza",
		SalespersonID: "30",
		ProductType:   "Imovel 150k",
		Group:         "1020",
		Quota:         "7",
		Credit:        decimal.NewFromInt(150000),
		SaleDate:      time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		DueDay:        15,
	}
}

func TestNewProposal(t *testing.T) {
	p, err := NewProposal("30", validSale())
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, "30", p.CreatedBy)

	bad := validSale()
	bad.Credit = decimal.Zero
	_, err = NewProposal("30", bad)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = NewProposal("", validSale())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestProposalLifecycle(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		p, _ := NewProposal("30", validSale())
		assert.ErrorIs(t, p.Approve("1", nil), shared.ErrInvalidState)

		require.NoError(t, p.Submit())
		assert.Equal(t, StatusPending, p.Status)
		assert.NotNil(t, p.SubmittedAt)
		assert.ErrorIs(t, p.Update(validSale()), shared.ErrInvalidState)

		require.NoError(t, p.Approve("1", []ledger.LogEntry{{Status: ledger.LogSuccess}}))
		assert.Equal(t, StatusApproved, p.Status)
		assert.Equal(t, "1", p.ReviewedBy)
		assert.True(t, p.Status.IsTerminal())
		assert.ErrorIs(t, p.Reject("1", "late"), shared.ErrInvalidState)
	})

	t.Run("generation error keeps proposal pending", func(t *testing.T) {
		p, _ := NewProposal("30", validSale())
		require.NoError(t, p.Submit())

		err := p.Approve("1", []ledger.LogEntry{{Status: ledger.LogError, Detail: "product not found"}})
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.Equal(t, StatusPending, p.Status)
		require.Len(t, p.ReviewLog, 1)
	})

	t.Run("reject requires reason", func(t *testing.T) {
		p, _ := NewProposal("30", validSale())
		require.NoError(t, p.Submit())
		assert.ErrorIs(t, p.Reject("1", " "), shared.ErrInvalidInput)
		require.NoError(t, p.Reject("1", "documentação incompleta"))
		assert.Equal(t, StatusRejected, p.Status)
		assert.Equal(t, "documentação incompleta", p.RejectionReason)
	})
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{"draft": StatusDraft, "Pendente": StatusPending, "APPROVED": StatusApproved, "rejeitado": StatusRejected} {
		got, err := ParseStatus(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStatus("x")
	assert.Error(t, err)
}

func TestProposal_SaleInput(t *testing.T) {
	p, _ := NewProposal("30", validSale())
	in := p.SaleInput()
	assert.Equal(t, "Maria Souza", in.ClientName)
	assert.Equal(t, "1020", in.Group)
	assert.Contains(t, in.Ref, p.ID.String())
}
