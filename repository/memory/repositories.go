package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
)

type lotteryRepository struct {
	st *state
}

func (r *lotteryRepository) Create(_ context.Context, lottery *models.Lottery) error {
	r.st.nextLotteryID++
	lottery.ID = r.st.nextLotteryID
	lottery.CreatedAt = now()
	lottery.UpdatedAt = lottery.CreatedAt
	r.st.lotteries[lottery.ID] = lottery.Clone()
	return nil
}

func (r *lotteryRepository) GetByID(_ context.Context, id int64) (*models.Lottery, error) {
	l, ok := r.st.lotteries[id]
	if !ok {
		return nil, nil
	}
	return l.Clone(), nil
}

// GetByIDForUpdate needs no extra locking; the unit of work already holds the store lock.
func (r *lotteryRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Lottery, error) {
	return r.GetByID(ctx, id)
}

func (r *lotteryRepository) Save(_ context.Context, lottery *models.Lottery) error {
	if _, ok := r.st.lotteries[lottery.ID]; !ok {
		return fmt.Errorf("lottery %d not found", lottery.ID)
	}
	lottery.UpdatedAt = now()
	r.st.lotteries[lottery.ID] = lottery.Clone()
	return nil
}

func (r *lotteryRepository) List(_ context.Context) ([]*models.Lottery, error) {
	lotteries := make([]*models.Lottery, 0, len(r.st.lotteries))
	for _, l := range r.st.lotteries {
		lotteries = append(lotteries, l.Clone())
	}
	sort.Slice(lotteries, func(i, j int) bool { return lotteries[i].ID < lotteries[j].ID })
	return lotteries, nil
}

type accountRepository struct {
	st *state
}

func (r *accountRepository) GetByAddress(_ context.Context, address common.Address) (*models.Account, error) {
	a, ok := r.st.accounts[address]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

func (r *accountRepository) getOrCreate(address common.Address) *models.Account {
	a, ok := r.st.accounts[address]
	if !ok {
		a = models.NewAccount(address)
		a.CreatedAt = now()
		a.UpdatedAt = a.CreatedAt
		r.st.accounts[address] = a
	}
	return a
}

func (r *accountRepository) Credit(_ context.Context, address common.Address, amount *big.Int) (*models.Account, error) {
	if a, ok := r.st.accounts[address]; ok && a.RejectsPayments {
		return nil, fmt.Errorf("%w: %s", models.ErrPaymentRejected, address.Hex())
	}

	a := r.getOrCreate(address)
	a.Balance = new(big.Int).Add(a.Balance, amount)
	a.UpdatedAt = now()
	return a.Clone(), nil
}

func (r *accountRepository) Debit(_ context.Context, address common.Address, amount *big.Int) (*models.Account, error) {
	a, ok := r.st.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, address.Hex())
	}
	if !a.CanAfford(amount) {
		return nil, fmt.Errorf("%w: balance %s, required %s", models.ErrInsufficientFunds,
			models.FormatEther(a.Balance), models.FormatEther(amount))
	}

	a.Balance = new(big.Int).Sub(a.Balance, amount)
	a.UpdatedAt = now()
	return a.Clone(), nil
}

func (r *accountRepository) ConsumeNonce(_ context.Context, address common.Address, nonce uint64) error {
	a := r.getOrCreate(address)
	if a.Nonce != nonce {
		return fmt.Errorf("%w: expected %d, got %d", models.ErrInvalidNonce, a.Nonce, nonce)
	}
	a.Nonce++
	a.UpdatedAt = now()
	return nil
}

func (r *accountRepository) SetRejectsPayments(_ context.Context, address common.Address, rejects bool) (*models.Account, error) {
	a := r.getOrCreate(address)
	a.RejectsPayments = rejects
	a.UpdatedAt = now()
	return a.Clone(), nil
}

type balanceHistoryRepository struct {
	st *state
}

func (r *balanceHistoryRepository) Record(_ context.Context, history *models.BalanceHistory) error {
	r.st.nextHistoryID++
	history.ID = r.st.nextHistoryID
	history.CreatedAt = now()

	stored := *history
	r.st.history = append(r.st.history, &stored)
	return nil
}

func (r *balanceHistoryRepository) GetByAddress(_ context.Context, address common.Address, limit int) ([]*models.BalanceHistory, error) {
	var result []*models.BalanceHistory
	for i := len(r.st.history) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if h := r.st.history[i]; h.Address == address {
			c := *h
			result = append(result, &c)
		}
	}
	return result, nil
}

type eventLogRepository struct {
	st *state
}

func (r *eventLogRepository) Append(_ context.Context, entry *models.LogEntry) error {
	r.st.nextSeq++
	entry.Seq = r.st.nextSeq
	entry.CreatedAt = now()

	stored := *entry
	r.st.events = append(r.st.events, &stored)
	return nil
}

func (r *eventLogRepository) List(_ context.Context, lotteryID int64, afterSeq int64, limit int) ([]*models.LogEntry, error) {
	var result []*models.LogEntry
	for _, e := range r.st.events {
		if limit > 0 && len(result) >= limit {
			break
		}
		if e.LotteryID == lotteryID && e.Seq > afterSeq {
			c := *e
			result = append(result, &c)
		}
	}
	return result, nil
}
