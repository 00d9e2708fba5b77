package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestRule() RuleSet {
	return RuleSet{
		ProductType:   "Imóvel Premium",
		Administrator: "Embracon",
		TableCode:     "2031",
		Percentages:   []decimal.Decimal{dec("1.5"), dec("1"), dec("1")},
		Credit:        Range{Min: dec("100000"), Max: dec("500000")},
		TermMonths:    Range{Min: dec("100"), Max: dec("200")},
		AdminFee:      Range{Min: dec("12"), Max: dec("18")},
		ChargebackPct: dec("2"),
	}
}

func TestRuleSet_PercentageAt(t *testing.T) {
	r := newTestRule()

	assert.True(t, dec("1.5").Equal(r.PercentageAt(1)))
	assert.True(t, dec("1").Equal(r.PercentageAt(3)))
	assert.True(t, r.PercentageAt(4).IsZero())
	assert.True(t, r.PercentageAt(0).IsZero())
}

func TestRuleSet_AppliesChargeback(t *testing.T) {
	t.Run("default threshold", func(t *testing.T) {
		r := newTestRule()
		assert.True(t, r.AppliesChargeback(3))
		assert.False(t, r.AppliesChargeback(4))
	})

	t.Run("configured threshold", func(t *testing.T) {
		r := newTestRule()
		r.ChargebackThreshold = 6
		assert.True(t, r.AppliesChargeback(6))
		assert.False(t, r.AppliesChargeback(7))
	})

	t.Run("no penalty configured", func(t *testing.T) {
		r := newTestRule()
		r.ChargebackPct = decimal.Zero
		assert.False(t, r.AppliesChargeback(1))
	})
}

func TestRuleSet_Validate(t *testing.T) {
	t.Run("valid rule", func(t *testing.T) {
		r := newTestRule()
		assert.NoError(t, r.Validate())
	})

	tests := []struct {
		name   string
		mutate func(r *RuleSet)
	}{
		{"missing product type", func(r *RuleSet) { r.ProductType = "" }},
		{"missing administrator", func(r *RuleSet) { r.Administrator = "" }},
		{"empty schedule", func(r *RuleSet) { r.Percentages = nil }},
		{"negative percentage", func(r *RuleSet) { r.Percentages[1] = dec("-1") }},
		{"inverted credit bounds", func(r *RuleSet) { r.Credit = Range{Min: dec("10"), Max: dec("5")} }},
		{"negative reserve", func(r *RuleSet) { r.ReserveFund = dec("-0.5") }},
		{"unknown basis", func(r *RuleSet) { r.AdvanceFeeBasis = "Semestral" }},
		{"unknown index", func(r *RuleSet) { r.Readjustment = "SELIC" }},
		{"unknown mode", func(r *RuleSet) { r.Contemplation = []ContemplationMode{"Leilão"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRule()
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestRuleSet_Normalize(t *testing.T) {
	r := RuleSet{ProductType: "  Auto  ", Administrator: " Porto ", TableCode: " 1001.0 "}
	r.Normalize()

	assert.Equal(t, "Auto", r.ProductType)
	assert.Equal(t, "Porto", r.Administrator)
	assert.Equal(t, "1001", r.TableCode)
	assert.Equal(t, DefaultChargebackThreshold, r.ChargebackThreshold)
}

func TestRange_Contains(t *testing.T) {
	assert.True(t, Range{}.Contains(dec("999999")))
	assert.True(t, Range{Min: dec("10"), Max: dec("20")}.Contains(dec("10")))
	assert.False(t, Range{Min: dec("10"), Max: dec("20")}.Contains(dec("20.01")))
	assert.True(t, Range{Min: dec("10")}.Contains(dec("1000")))
	assert.False(t, Range{Min: dec("10")}.Contains(dec("9")))
}

func TestParsePercentages(t *testing.T) {
	t.Run("comma separated", func(t *testing.T) {
		got, err := ParsePercentages("1.5, 1.0, 1.0")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, dec("1.5").Equal(got[0]))
	})

	t.Run("space and semicolon separated", func(t *testing.T) {
		got, err := ParsePercentages("0.5 0.5;0.3")
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("empty", func(t *testing.T) {
		got, err := ParsePercentages("  ")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid entry", func(t *testing.T) {
		_, err := ParsePercentages("1.5, x")
		assert.Error(t, err)
	})
}

func TestRuleSet_Strings(t *testing.T) {
	r := newTestRule()
	r.Contemplation = []ContemplationMode{ModeFreeBid, ModeDraw}

	assert.Equal(t, "1.5, 1, 1", r.PercentagesString())
	assert.Equal(t, "Lance Livre, Sorteio", r.ContemplationString())
	assert.Equal(t, []ContemplationMode{ModeFreeBid, ModeDraw}, ParseContemplationModes("Lance Livre, Sorteio, "))
}

func TestCatalog_Resolve(t *testing.T) {
	auto := RuleSet{ProductType: "Auto", Administrator: "Porto", TableCode: "77"}
	c := NewCatalog([]RuleSet{newTestRule(), auto})

	assert.Equal(t, 2, c.Len())

	r, ok := c.Resolve("Auto", "")
	require.True(t, ok)
	assert.Equal(t, "Porto", r.Administrator)

	r, ok = c.Resolve("", "2031.0")
	require.True(t, ok)
	assert.Equal(t, "Imóvel Premium", r.ProductType)

	r, ok = c.Resolve("Desconhecido", "77")
	require.True(t, ok)
	assert.Equal(t, "Auto", r.ProductType)

	_, ok = c.Resolve("Desconhecido", "")
	assert.False(t, ok)
}
