package infrastructure

import (
	"context"
	"math/big"
	"testing"

	"blocklucky/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLotteryMetrics_Round(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewLotteryMetrics(registry)
	ctx := context.Background()

	ref := events.LotteryRef{LotteryID: 1, Round: 1}
	price := big.NewInt(10_000_000_000_000_000)

	m.HandleEvent(ctx, events.TicketPurchasedEvent{LotteryRef: ref, TicketPrice: price, Quantity: 1, NewParticipantCount: 1})
	m.HandleEvent(ctx, events.TicketPurchasedEvent{LotteryRef: ref, TicketPrice: price, Quantity: 1, NewParticipantCount: 2})
	m.HandleEvent(ctx, events.TicketsBoughtEvent{LotteryRef: ref, Quantity: 5, TotalPrice: big.NewInt(47_500_000_000_000_000), Discount: 5})

	assert.Equal(t, float64(7), testutil.ToFloat64(m.ticketsSold.WithLabelValues("1")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.purchases.WithLabelValues("1", "single")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.purchases.WithLabelValues("1", "batch")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.participants.WithLabelValues("1")))
	assert.InDelta(t, 0.0675, testutil.ToFloat64(m.potEther.WithLabelValues("1")), 1e-9)

	m.HandleEvent(ctx, events.LotteryTriggeredEvent{LotteryRef: ref, TotalParticipants: 3, TotalPot: big.NewInt(30_000_000_000_000_000)})
	m.HandleEvent(ctx, events.WinnerSelectedEvent{LotteryRef: ref, Prize: big.NewInt(30_000_000_000_000_000)})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.draws.WithLabelValues("1")))
	assert.InDelta(t, 0.03, testutil.ToFloat64(m.prizesPaid.WithLabelValues("1")), 1e-9)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.potEther.WithLabelValues("1")))

	m.HandleEvent(ctx, events.LotteryResetEvent{LotteryRef: events.LotteryRef{LotteryID: 1, Round: 2}, NewMinParticipants: 4})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.resets.WithLabelValues("1")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.round.WithLabelValues("1")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.participants.WithLabelValues("1")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.forfeited.WithLabelValues("1")))
}

func TestLotteryMetrics_ResetWithUndrawnPot(t *testing.T) {
	m := NewLotteryMetrics(prometheus.NewRegistry())
	ctx := context.Background()
	ref := events.LotteryRef{LotteryID: 2, Round: 1}

	m.HandleEvent(ctx, events.TicketPurchasedEvent{LotteryRef: ref, TicketPrice: big.NewInt(10_000_000_000_000_000), Quantity: 1, NewParticipantCount: 1})
	m.HandleEvent(ctx, events.LotteryResetEvent{
		LotteryRef:         events.LotteryRef{LotteryID: 2, Round: 2},
		NewMinParticipants: 3,
		ForfeitedPot:       big.NewInt(10_000_000_000_000_000),
	})

	assert.InDelta(t, 0.01, testutil.ToFloat64(m.forfeited.WithLabelValues("2")), 1e-9)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.potEther.WithLabelValues("2")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.participants.WithLabelValues("2")))
}

func TestLotteryMetrics_AttachAndRegistry(t *testing.T) {
	registry := NewMetricsRegistry()
	m := NewLotteryMetrics(registry)
	bus := events.NewBus()
	m.Attach(bus)

	bus.Emit(context.Background(), events.EmergencyWithdrawalEvent{
		LotteryRef: events.LotteryRef{LotteryID: 9, Round: 1},
		Amount:     big.NewInt(2_000_000_000_000_000_000),
	})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.withdrawals.WithLabelValues("9")))

	count, err := testutil.GatherAndCount(registry, "blocklucky_emergency_withdrawals_ether_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
