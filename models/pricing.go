package models

import "math/big"

const (
	// MinBatchQuantity and MaxBatchQuantity bound a single batch purchase
	MinBatchQuantity = 1
	MaxBatchQuantity = 25
)

// discountTier grants Percent off once a batch reaches MinQuantity tickets
type discountTier struct {
	MinQuantity uint64
	Percent     uint64
}

// Ordered from the largest threshold down.
var discountTiers = []discountTier{
	{MinQuantity: 25, Percent: 20},
	{MinQuantity: 20, Percent: 15},
	{MinQuantity: 15, Percent: 10},
}

// ValidBatchQuantity reports whether quantity may be bought in one call
func ValidBatchQuantity(quantity uint64) bool {
	return quantity >= MinBatchQuantity && quantity <= MaxBatchQuantity
}

// DiscountPercent returns the volume discount for quantity tickets
func DiscountPercent(quantity uint64) uint64 {
	for _, tier := range discountTiers {
		if quantity >= tier.MinQuantity {
			return tier.Percent
		}
	}
	return 0
}

// Quote is the price of a batch purchase
type Quote struct {
	Quantity        uint64
	TotalPrice      *big.Int
	DiscountPercent uint64
}

// CalculatePrice prices quantity tickets at ticketPrice each with the volume
// discount applied, flooring to whole wei. Quantities outside the batch range
// price at zero with no discount.
func CalculatePrice(ticketPrice *big.Int, quantity uint64) Quote {
	if !ValidBatchQuantity(quantity) {
		return Quote{Quantity: quantity, TotalPrice: new(big.Int)}
	}

	discount := DiscountPercent(quantity)
	total := new(big.Int).Mul(ticketPrice, new(big.Int).SetUint64(quantity))
	total.Mul(total, new(big.Int).SetUint64(100-discount))
	total.Quo(total, big.NewInt(100))

	return Quote{Quantity: quantity, TotalPrice: total, DiscountPercent: discount}
}
