package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAddStock(t *testing.T) {
	tests := []struct {
		name     string
		oldQty   int64
		oldCost  string
		added    Lot
		wantQty  int64
		wantCost string
	}{
		{"first receipt", 0, "0", Lot{10, d("5")}, 10, "5"},
		{"second receipt averages", 10, "5", Lot{10, d("7")}, 20, "6"},
		{"uneven weights", 30, "2", Lot{10, d("6")}, 40, "3"},
		{"free goods dilute cost", 10, "4", Lot{10, d("0")}, 20, "2"},
		{"repeating decimal rounds", 1, "1", Lot{2, d("1")}, 3, "1"},
		{"rounds to cost scale", 2, "1", Lot{1, d("2")}, 3, "1.3333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, cost, err := AddStock(tt.oldQty, d(tt.oldCost), tt.added)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, qty)
			assert.True(t, d(tt.wantCost).Equal(cost), "cost = %s, want %s", cost, tt.wantCost)
		})
	}
}

func TestAddStockRejectsBadInput(t *testing.T) {
	_, _, err := AddStock(5, d("1"), Lot{0, d("1")})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = AddStock(5, d("1"), Lot{-3, d("1")})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = AddStock(5, d("1"), Lot{3, d("-0.01")})
	assert.ErrorIs(t, err, ErrInvalidUnitCost)
}

func TestAddStockZeroCombinedQuantity(t *testing.T) {
	// A negative opening stock can only come from imported data; the added cost wins.
	qty, cost, err := AddStock(-4, d("9"), Lot{4, d("3")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), qty)
	assert.True(t, d("3").Equal(cost))
}

func TestIncrementalMatchesAggregate(t *testing.T) {
	lots := []Lot{{10, d("5")}, {10, d("7")}, {5, d("10")}, {25, d("4.2")}}

	var qty int64
	cost := decimal.Zero
	for _, lot := range lots {
		var err error
		qty, cost, err = AddStock(qty, cost, lot)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(50), qty)
	assert.True(t, AverageCost(lots).Equal(cost), "incremental %s, aggregate %s", cost, AverageCost(lots))
}

func TestRemoveStock(t *testing.T) {
	assert.Equal(t, int64(15), RemoveStock(20, 5))
	assert.Equal(t, int64(0), RemoveStock(20, 20))
	assert.Equal(t, int64(0), RemoveStock(3, 10))
}

func TestAverageCost(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(AverageCost(nil)))
	assert.True(t, d("7").Equal(AverageCost([]Lot{{10, d("7")}})))
	assert.True(t, d("6").Equal(AverageCost([]Lot{{10, d("5")}, {10, d("7")}})))
	assert.True(t, decimal.Zero.Equal(AverageCost([]Lot{{0, d("7")}})))
}

func TestPriceLine(t *testing.T) {
	line := PriceLine(5, d("10"), d("6"))
	assert.True(t, d("50").Equal(line.Subtotal))
	assert.True(t, d("30").Equal(line.Cost))
	assert.True(t, d("20").Equal(line.Profit))

	loss := PriceLine(2, d("3"), d("4.5"))
	assert.True(t, d("-3").Equal(loss.Profit))
}

func TestBalance(t *testing.T) {
	assert.True(t, d("25").Equal(Balance(d("100"), d("75"))))
	assert.True(t, d("-10").Equal(Balance(d("0"), d("10"))))
}
