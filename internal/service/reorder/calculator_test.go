package reorder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderQty(t *testing.T) {
	c := DefaultCalculator()

	tests := []struct {
		name       string
		outbound   float64
		finalStock float64
		want       int
	}{
		{"no outbound", 0, 0, 0},
		{"no outbound with stock", 0, 100, 0},
		{"negative outbound", -5, 0, 0},
		{"stock covers demand", 4, 10, 0},
		{"stock equals demand", 4, 4, 0},
		{"shortage rounds to tier", 7, 2, 10},
		{"exact tier", 3, 0, 3},
		{"fraction rounds up", 0.2, 0, 1},
		{"between tiers", 21, 0, 50},
		{"largest tier", 50, 0, 50},
		{"beyond largest tier", 55, 0, 100},
		{"far beyond", 151, 10, 200},
		{"negative stock", 2, -4, 3},
		{"nan outbound", math.NaN(), 0, 0},
		{"inf outbound", math.Inf(1), 0, 0},
		{"nan stock", 5, math.NaN(), 0},
		{"saturates above max int", 1e19, 0, math.MaxInt / 50 * 50},
		{"saturates huge outbound", 1e300, 0, math.MaxInt / 50 * 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.OrderQty(tt.outbound, tt.finalStock))
		})
	}
}

func TestOrderQtyStockExceedsDemand(t *testing.T) {
	c, err := NewCalculator(StandardTiers(), StockExceedsDemand)
	require.NoError(t, err)

	assert.Equal(t, 5, c.OrderQty(4, 10))
	assert.Equal(t, 0, c.OrderQty(7, 2))
	assert.Equal(t, 0, c.OrderQty(0, 10))
}

func TestRoundUpLegacyTiers(t *testing.T) {
	tiers, err := ParseTiers(PresetLegacy)
	require.NoError(t, err)
	c, err := NewCalculator(tiers, DemandExceedsStock)
	require.NoError(t, err)

	assert.Equal(t, 2, c.RoundUp(1.5))
	assert.Equal(t, 5, c.RoundUp(3))
	assert.Equal(t, 150, c.RoundUp(101))
}

func TestOrderQtyIsAlwaysAPackSize(t *testing.T) {
	c := DefaultCalculator()
	allowed := map[int]bool{0: true, 1: true, 3: true, 5: true, 10: true, 20: true, 50: true}

	for v := -10.0; v <= 400; v += 0.75 {
		got := c.OrderQty(v, 0)
		assert.True(t, allowed[got] || got%50 == 0, "OrderQty(%v) = %d", v, got)
		assert.GreaterOrEqual(t, got, 0)
		if v > 0 {
			assert.GreaterOrEqual(t, float64(got), v)
		}
	}
}

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers("")
	require.NoError(t, err)
	assert.Equal(t, Tiers{1, 3, 5, 10, 20, 50}, tiers)

	tiers, err = ParseTiers(" 2, 4 ,8 ")
	require.NoError(t, err)
	assert.Equal(t, Tiers{2, 4, 8}, tiers)
	assert.Equal(t, "2,4,8", tiers.String())

	for _, bad := range []string{"1,x", "0,1", "5,3", "1,1"} {
		_, err := ParseTiers(bad)
		assert.ErrorIs(t, err, ErrInvalidTiers, bad)
	}
}

func TestNewCalculatorRejectsBadInput(t *testing.T) {
	_, err := NewCalculator(nil, DemandExceedsStock)
	assert.ErrorIs(t, err, ErrInvalidTiers)

	_, err = NewCalculator(StandardTiers(), ShortagePolicy("sometimes"))
	assert.Error(t, err)

	c, err := NewCalculator(StandardTiers(), "")
	require.NoError(t, err)
	assert.Equal(t, DemandExceedsStock, c.Policy())
}

func TestParseShortagePolicy(t *testing.T) {
	p, err := ParseShortagePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DemandExceedsStock, p)

	p, err = ParseShortagePolicy(" STOCK_EXCEEDS_DEMAND ")
	require.NoError(t, err)
	assert.Equal(t, StockExceedsDemand, p)

	_, err = ParseShortagePolicy("never")
	assert.Error(t, err)
}
