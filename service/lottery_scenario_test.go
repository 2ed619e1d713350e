package service_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"blocklucky/events"
	"blocklucky/models"
	"blocklucky/repository/memory"
	"blocklucky/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	p1    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	p2    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	p3    = common.HexToAddress("0x0000000000000000000000000000000000000003")
	p4    = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

// harness wires both services to an in-memory store and records every
// event delivered after commit
type harness struct {
	ctx       context.Context
	lottery   service.LotteryService
	accounts  service.AccountService
	lotteryID int64
	delivered []events.Event
}

func newHarness(t *testing.T, minParticipants uint64, random service.RandomSource) *harness {
	t.Helper()
	ctx := context.Background()
	bus := events.NewBus()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore(), bus)

	deployed, err := service.Deploy(ctx, factory, owner, minParticipants, models.DefaultTicketPrice)
	require.NoError(t, err)

	h := &harness{
		ctx:       ctx,
		lottery:   service.NewLotteryService(factory, deployed.ID, random),
		accounts:  service.NewAccountService(factory),
		lotteryID: deployed.ID,
	}
	bus.SubscribeAll(func(ctx context.Context, e events.Event) {
		h.delivered = append(h.delivered, e)
	})

	for _, addr := range []common.Address{p1, p2, p3, p4} {
		_, err := h.accounts.Deposit(ctx, addr, models.WeiPerEther)
		require.NoError(t, err)
	}
	return h
}

func (h *harness) balance(t *testing.T, addr common.Address) *big.Int {
	account, err := h.accounts.GetAccount(h.ctx, addr)
	require.NoError(t, err)
	return account.Balance
}

func (h *harness) buy(t *testing.T, addr common.Address) *service.PurchaseReceipt {
	receipt, err := h.lottery.BuyTicket(h.ctx, service.Call{From: addr, Value: models.DefaultTicketPrice})
	require.NoError(t, err)
	return receipt
}

func (h *harness) types() []events.EventType {
	var types []events.EventType
	for _, e := range h.delivered {
		types = append(types, e.Type())
	}
	return types
}

// pick always selects the participant at index
func pick(index int) service.RandomSource {
	return service.RandomSourceFunc(func(ctx context.Context, draw service.DrawContext, n int) (int, error) {
		return index, nil
	})
}

func TestScenario_ThreeBuyersTriggerDraw(t *testing.T) {
	h := newHarness(t, 3, pick(1))
	price := models.DefaultTicketPrice

	h.buy(t, p1)
	h.buy(t, p2)
	info, err := h.lottery.GetLotteryInfo(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.ParticipantCount)
	assert.Equal(t, "20000000000000000", info.Pot.String())
	assert.True(t, info.Active)

	receipt := h.buy(t, p3)
	require.True(t, receipt.Drawn)
	assert.Equal(t, p2, receipt.Winner)
	assert.Equal(t, "30000000000000000", receipt.Prize.String())

	info, err = h.lottery.GetLotteryInfo(h.ctx)
	require.NoError(t, err)
	assert.False(t, info.Active)
	assert.True(t, info.Completed)
	assert.Equal(t, p2, info.Winner)
	assert.Equal(t, 0, info.Pot.Sign())
	assert.Equal(t, uint64(3), info.ParticipantCount)

	// Winner paid 0.01 and received 0.03
	expected := new(big.Int).Sub(models.WeiPerEther, price)
	expected.Add(expected, big.NewInt(30000000000000000))
	assert.Equal(t, 0, h.balance(t, p2).Cmp(expected))

	assert.Equal(t, []events.EventType{
		events.EventTypeTicketPurchased,
		events.EventTypeTicketPurchased,
		events.EventTypeTicketPurchased,
		events.EventTypeLotteryTriggered,
		events.EventTypeWinnerSelected,
	}, h.types())

	triggered := h.delivered[3].(events.LotteryTriggeredEvent)
	assert.Equal(t, uint64(3), triggered.TotalParticipants)
	assert.Equal(t, "30000000000000000", triggered.TotalPot.String())

	// Fourth buyer is turned away
	_, err = h.lottery.BuyTicket(h.ctx, service.Call{From: p4, Value: price})
	assert.ErrorIs(t, err, models.ErrInactiveRound)
	assert.Equal(t, 0, h.balance(t, p4).Cmp(models.WeiPerEther))
	assert.Len(t, h.delivered, 5)

	// Batches are turned away as well, at the exact discounted price
	quote, err := h.lottery.CalculatePrice(h.ctx, 15)
	require.NoError(t, err)
	_, err = h.lottery.BuyTickets(h.ctx, service.Call{From: p4, Value: quote.TotalPrice}, 15)
	assert.ErrorIs(t, err, models.ErrInactiveRound)
	assert.Equal(t, 0, h.balance(t, p4).Cmp(models.WeiPerEther))

	tickets, err := h.lottery.TicketsByAddress(h.ctx, p4)
	require.NoError(t, err)
	assert.Zero(t, tickets)
	assert.Len(t, h.delivered, 5)
}

func TestScenario_RepeatBuyerCountsOnce(t *testing.T) {
	h := newHarness(t, 3, nil)

	first := h.buy(t, p1)
	second := h.buy(t, p1)
	assert.True(t, first.NewParticipant)
	assert.False(t, second.NewParticipant)

	participants, err := h.lottery.GetAllParticipants(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{p1}, participants)

	tickets, err := h.lottery.TicketsByAddress(h.ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), tickets)

	pot, err := h.lottery.Pot(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, "20000000000000000", pot.String())

	active, err := h.lottery.Active(h.ctx)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestScenario_BatchPurchasePricing(t *testing.T) {
	for q := uint64(models.MinBatchQuantity); q <= models.MaxBatchQuantity; q++ {
		t.Run(fmt.Sprintf("quantity %d", q), func(t *testing.T) {
			h := newHarness(t, 5, nil)
			quote, err := h.lottery.CalculatePrice(h.ctx, q)
			require.NoError(t, err)

			// One wei short and one wei over are both rejected
			for _, delta := range []int64{-1, 1} {
				value := new(big.Int).Add(quote.TotalPrice, big.NewInt(delta))
				_, err := h.lottery.BuyTickets(h.ctx, service.Call{From: p1, Value: value}, q)
				assert.ErrorIs(t, err, models.ErrInvalidAmount)
			}

			receipt, err := h.lottery.BuyTickets(h.ctx, service.Call{From: p1, Value: quote.TotalPrice}, q)
			require.NoError(t, err)
			assert.Equal(t, quote.DiscountPercent, receipt.DiscountPercent)

			pot, err := h.lottery.Pot(h.ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, pot.Cmp(quote.TotalPrice))

			tickets, err := h.lottery.TicketsByAddress(h.ctx, p1)
			require.NoError(t, err)
			assert.Equal(t, q, tickets)
		})
	}
}

func TestScenario_BatchEmitsSingleEvent(t *testing.T) {
	h := newHarness(t, 2, pick(0))
	quote, err := h.lottery.CalculatePrice(h.ctx, 15)
	require.NoError(t, err)

	_, err = h.lottery.BuyTickets(h.ctx, service.Call{From: p1, Value: quote.TotalPrice}, 15)
	require.NoError(t, err)

	require.Len(t, h.delivered, 1)
	bought := h.delivered[0].(events.TicketsBoughtEvent)
	assert.Equal(t, p1, bought.Buyer)
	assert.Equal(t, uint64(15), bought.Quantity)
	assert.Equal(t, uint64(10), bought.Discount)
	assert.Equal(t, "135000000000000000", bought.TotalPrice.String())

	// Second distinct buyer reaches the threshold; the draw follows the batch event
	receipt := h.buy(t, p2)
	assert.True(t, receipt.Drawn)
	assert.Equal(t, p1, receipt.Winner)
	assert.Equal(t, "145000000000000000", receipt.Prize.String())
}

func TestScenario_PayoutFailureRevertsTriggeringPurchase(t *testing.T) {
	h := newHarness(t, 2, pick(0))

	h.buy(t, p1)
	_, err := h.accounts.SetRejectsPayments(h.ctx, p1, true)
	require.NoError(t, err)
	before := len(h.delivered)

	_, err = h.lottery.BuyTicket(h.ctx, service.Call{From: p2, Value: models.DefaultTicketPrice})
	require.ErrorIs(t, err, models.ErrPayoutFailed)

	assert.Equal(t, 0, h.balance(t, p2).Cmp(models.WeiPerEther), "buyer must keep their funds")
	lottery, err := h.lottery.GetLottery(h.ctx)
	require.NoError(t, err)
	assert.True(t, lottery.Active)
	assert.False(t, lottery.Completed)
	assert.Equal(t, []common.Address{p1}, lottery.Participants)
	assert.Equal(t, 0, lottery.Pot.Cmp(models.DefaultTicketPrice))
	assert.Len(t, h.delivered, before, "no events from the reverted call")

	logged, err := h.lottery.GetEvents(h.ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestScenario_ResetStartsNewRound(t *testing.T) {
	h := newHarness(t, 2, pick(0))
	h.buy(t, p1)
	h.buy(t, p2)

	err := h.lottery.ResetLottery(h.ctx, service.Call{From: p1}, 4)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	err = h.lottery.ResetLottery(h.ctx, service.Call{From: owner}, 0)
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)

	require.NoError(t, h.lottery.ResetLottery(h.ctx, service.Call{From: owner}, 4))

	lottery, err := h.lottery.GetLottery(h.ctx)
	require.NoError(t, err)
	assert.True(t, lottery.Active)
	assert.False(t, lottery.Completed)
	assert.Equal(t, uint64(4), lottery.MinParticipants)
	assert.Empty(t, lottery.Participants)
	assert.Equal(t, models.ZeroAddress, lottery.Winner)
	assert.Equal(t, 0, lottery.Pot.Sign())
	assert.Equal(t, int64(2), lottery.Round)

	participated, err := h.lottery.HasParticipated(h.ctx, p1)
	require.NoError(t, err)
	assert.False(t, participated)

	// Previous participants may enter again
	receipt := h.buy(t, p1)
	assert.True(t, receipt.NewParticipant)
	assert.Equal(t, int64(2), receipt.Round)
}

func TestScenario_ResetClearsUndrawnPot(t *testing.T) {
	h := newHarness(t, 3, nil)
	h.buy(t, p1)
	h.buy(t, p2)

	require.NoError(t, h.lottery.ResetLottery(h.ctx, service.Call{From: owner}, 5))

	lottery, err := h.lottery.GetLottery(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, lottery.ParticipantCount())
	assert.Equal(t, 0, lottery.Pot.Sign())
	assert.Equal(t, models.ZeroAddress, lottery.Winner)
	assert.Equal(t, uint64(5), lottery.MinParticipants)
	assert.True(t, lottery.Active)
	assert.False(t, lottery.Completed)
	assert.Equal(t, "20000000000000000", lottery.Forfeited.String())

	// Buyers are not refunded and the owner is not credited
	spent := new(big.Int).Sub(models.WeiPerEther, models.DefaultTicketPrice)
	assert.Equal(t, 0, h.balance(t, p1).Cmp(spent))
	assert.Equal(t, 0, h.balance(t, owner).Sign())

	reset := h.delivered[len(h.delivered)-1].(events.LotteryResetEvent)
	assert.Equal(t, uint64(5), reset.NewMinParticipants)
	assert.Equal(t, "20000000000000000", reset.ForfeitedPot.String())

	// The new round starts from an empty pot
	h.buy(t, p1)
	pot, err := h.lottery.Pot(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pot.Cmp(models.DefaultTicketPrice))
}

func TestScenario_EmergencyWithdraw(t *testing.T) {
	h := newHarness(t, 5, nil)
	h.buy(t, p1)
	h.buy(t, p2)

	_, err := h.lottery.EmergencyWithdraw(h.ctx, service.Call{From: p1})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	amount, err := h.lottery.EmergencyWithdraw(h.ctx, service.Call{From: owner})
	require.NoError(t, err)
	assert.Equal(t, "20000000000000000", amount.String())
	assert.Equal(t, 0, h.balance(t, owner).Cmp(amount))

	lottery, err := h.lottery.GetLottery(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, lottery.Pot.Sign())
	assert.True(t, lottery.Active)
	assert.False(t, lottery.Completed)
	assert.Len(t, lottery.Participants, 2)

	last := h.delivered[len(h.delivered)-1].(events.EmergencyWithdrawalEvent)
	assert.Equal(t, owner, last.Owner)
}

func TestScenario_LedgerConservation(t *testing.T) {
	h := newHarness(t, 3, service.NewSeededRandomSource(42))
	everyone := []common.Address{owner, p1, p2, p3, p4}

	total := func() *big.Int {
		sum := new(big.Int)
		for _, addr := range everyone {
			sum.Add(sum, h.balance(t, addr))
		}
		lottery, err := h.lottery.GetLottery(h.ctx)
		require.NoError(t, err)
		sum.Add(sum, lottery.Pot)
		return sum.Add(sum, lottery.Forfeited)
	}

	start := total()
	quote, err := h.lottery.CalculatePrice(h.ctx, 20)
	require.NoError(t, err)

	_, err = h.lottery.BuyTickets(h.ctx, service.Call{From: p4, Value: quote.TotalPrice}, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, start.Cmp(total()))

	h.buy(t, p1)
	h.buy(t, p2)
	assert.Equal(t, 0, start.Cmp(total()))

	completed, err := h.lottery.Completed(h.ctx)
	require.NoError(t, err)
	assert.True(t, completed)

	require.NoError(t, h.lottery.ResetLottery(h.ctx, service.Call{From: owner}, 2))
	h.buy(t, p3)
	_, err = h.lottery.EmergencyWithdraw(h.ctx, service.Call{From: owner})
	require.NoError(t, err)
	assert.Equal(t, 0, start.Cmp(total()))

	// A reset over an undrawn pot moves it to Forfeited
	require.NoError(t, h.lottery.ResetLottery(h.ctx, service.Call{From: owner}, 3))
	h.buy(t, p1)
	require.NoError(t, h.lottery.ResetLottery(h.ctx, service.Call{From: owner}, 3))
	assert.Equal(t, 0, start.Cmp(total()))
}

func TestScenario_NonceReplayRejected(t *testing.T) {
	h := newHarness(t, 5, nil)
	nonce := uint64(0)
	call := service.Call{From: p1, Value: models.DefaultTicketPrice, Nonce: &nonce}

	_, err := h.lottery.BuyTicket(h.ctx, call)
	require.NoError(t, err)

	_, err = h.lottery.BuyTicket(h.ctx, call)
	assert.ErrorIs(t, err, models.ErrInvalidNonce)

	tickets, err := h.lottery.TicketsByAddress(h.ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tickets)
}

func TestScenario_EventLogMatchesDelivery(t *testing.T) {
	h := newHarness(t, 2, pick(0))
	h.buy(t, p1)
	h.buy(t, p2)

	logged, err := h.lottery.GetEvents(h.ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, logged, len(h.delivered))
	for i, entry := range logged {
		assert.Equal(t, string(h.delivered[i].Type()), entry.EventType)
		assert.Equal(t, h.lotteryID, entry.LotteryID)
	}

	page, err := h.lottery.GetEvents(h.ctx, logged[1].Seq, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, string(events.EventTypeLotteryTriggered), page[0].EventType)
}

func TestDeploy_InvalidConfiguration(t *testing.T) {
	ctx := context.Background()
	factory := memory.NewUnitOfWorkFactory(memory.NewStore(), events.NewBus())

	_, err := service.Deploy(ctx, factory, owner, 0, models.DefaultTicketPrice)
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)

	_, err = service.Deploy(ctx, factory, owner, 3, big.NewInt(0))
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)

	missing := service.NewLotteryService(factory, 42, nil)
	_, err = missing.GetLottery(ctx)
	assert.ErrorIs(t, err, models.ErrLotteryNotFound)
}
