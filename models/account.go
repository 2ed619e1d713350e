package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a ledger entry holding the funds of one address
type Account struct {
	Address         common.Address `db:"address"`
	Balance         *big.Int       `db:"balance"`
	Nonce           uint64         `db:"nonce"`
	RejectsPayments bool           `db:"rejects_payments"` // Incoming transfers fail, like a contract without a receive hook
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// NewAccount returns an empty account for address
func NewAccount(address common.Address) *Account {
	return &Account{Address: address, Balance: new(big.Int)}
}

// CanAfford reports whether the balance covers amount
func (a *Account) CanAfford(amount *big.Int) bool {
	return a.Balance.Cmp(amount) >= 0
}

// Clone returns a deep copy
func (a *Account) Clone() *Account {
	c := *a
	c.Balance = new(big.Int).Set(a.Balance)
	return &c
}
