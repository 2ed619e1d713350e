package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		quantity uint64
		expected uint64
	}{
		{1, 0},
		{14, 0},
		{15, 10},
		{19, 10},
		{20, 15},
		{24, 15},
		{25, 20},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DiscountPercent(tt.quantity), "quantity %d", tt.quantity)
	}
}

func TestCalculatePrice(t *testing.T) {
	price := DefaultTicketPrice

	t.Run("no discount below fifteen", func(t *testing.T) {
		quote := CalculatePrice(price, 10)
		assert.Equal(t, "100000000000000000", quote.TotalPrice.String())
		assert.Equal(t, uint64(0), quote.DiscountPercent)
	})

	t.Run("ten percent at fifteen", func(t *testing.T) {
		quote := CalculatePrice(price, 15)
		assert.Equal(t, "135000000000000000", quote.TotalPrice.String())
		assert.Equal(t, uint64(10), quote.DiscountPercent)
	})

	t.Run("fifteen percent at twenty", func(t *testing.T) {
		quote := CalculatePrice(price, 20)
		assert.Equal(t, "170000000000000000", quote.TotalPrice.String())
		assert.Equal(t, uint64(15), quote.DiscountPercent)
	})

	t.Run("twenty percent at twenty five", func(t *testing.T) {
		quote := CalculatePrice(price, 25)
		assert.Equal(t, "200000000000000000", quote.TotalPrice.String())
		assert.Equal(t, uint64(20), quote.DiscountPercent)
	})

	t.Run("out of range quantities price at zero", func(t *testing.T) {
		for _, q := range []uint64{0, 26, 1000} {
			quote := CalculatePrice(price, q)
			assert.Equal(t, 0, quote.TotalPrice.Sign(), "quantity %d", q)
			assert.Equal(t, uint64(0), quote.DiscountPercent, "quantity %d", q)
		}
	})

	t.Run("floors to whole wei", func(t *testing.T) {
		quote := CalculatePrice(big.NewInt(7), 15)
		// 7 * 15 * 90 / 100 = 94.5
		assert.Equal(t, int64(94), quote.TotalPrice.Int64())
	})
}

func TestCalculatePrice_DiscountNeverIncreasesUnitPrice(t *testing.T) {
	price := DefaultTicketPrice
	full := new(big.Int)

	for q := uint64(MinBatchQuantity); q <= MaxBatchQuantity; q++ {
		quote := CalculatePrice(price, q)
		full.Mul(price, new(big.Int).SetUint64(q))
		assert.True(t, quote.TotalPrice.Cmp(full) <= 0, "quantity %d costs more than list price", q)
		if q > MinBatchQuantity {
			prev := DiscountPercent(q - 1)
			assert.GreaterOrEqual(t, quote.DiscountPercent, prev, "discount dropped at quantity %d", q)
		}
	}
}
