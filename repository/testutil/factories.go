package testutil

import (
	"math/big"
	"time"

	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
)

// CreateTestLottery creates an active lottery with default pricing
func CreateTestLottery(owner common.Address, minParticipants uint64) *models.Lottery {
	lottery, err := models.NewLottery(owner, minParticipants, models.DefaultTicketPrice)
	if err != nil {
		panic(err)
	}
	return lottery
}

// CreateTestLotteryWithEntries creates a lottery that already holds one
// ticket per participant
func CreateTestLotteryWithEntries(owner common.Address, minParticipants uint64, participants ...common.Address) *models.Lottery {
	lottery := CreateTestLottery(owner, minParticipants)
	for _, p := range participants {
		lottery.AddTickets(p, 1, lottery.TicketPrice)
	}
	return lottery
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(address common.Address, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		Address:         address,
		BalanceBefore:   big.NewInt(100000),
		BalanceAfter:    big.NewInt(90000),
		ChangeAmount:    big.NewInt(-10000),
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistoryWithAmounts creates a test balance history with specific amounts
func CreateTestBalanceHistoryWithAmounts(address common.Address, before, after, change *big.Int, transactionType models.TransactionType) *models.BalanceHistory {
	history := CreateTestBalanceHistory(address, transactionType)
	history.BalanceBefore = before
	history.BalanceAfter = after
	history.ChangeAmount = change
	return history
}
