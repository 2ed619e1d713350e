package models

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// WeiPerEther is the number of wei in one ether
var WeiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// DefaultTicketPrice is 0.01 ether
var DefaultTicketPrice = new(big.Int).Div(WeiPerEther, big.NewInt(100))

// FormatEther renders a wei amount in ether without trailing zeros
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}

// ParseEther converts a decimal ether string such as "0.01" to wei
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ether amount %q: %w", s, err)
	}
	wei := d.Shift(18)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("ether amount %q has more than 18 decimals", s)
	}
	if wei.IsNegative() {
		return nil, fmt.Errorf("ether amount %q is negative", s)
	}
	return wei.BigInt(), nil
}

// ParseWei parses a base-10 integer wei amount
func ParseWei(s string) (*big.Int, error) {
	wei, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	if wei.Sign() < 0 {
		return nil, fmt.Errorf("wei amount %q is negative", s)
	}
	return wei, nil
}
