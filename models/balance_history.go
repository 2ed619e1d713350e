package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeDeposit             TransactionType = "deposit"
	TransactionTypeTicketPurchase      TransactionType = "ticket_purchase"
	TransactionTypePrizePayout         TransactionType = "prize_payout"
	TransactionTypeEmergencyWithdrawal TransactionType = "emergency_withdrawal"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	Address             common.Address  `db:"address"`
	LotteryID           *int64          `db:"lottery_id"`
	BalanceBefore       *big.Int        `db:"balance_before"`
	BalanceAfter        *big.Int        `db:"balance_after"`
	ChangeAmount        *big.Int        `db:"change_amount"` // Negative for debits
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}
