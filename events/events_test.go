package events

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var buyer = common.HexToAddress("0x0000000000000000000000000000000000000001")

// TestEventDelivery tests the flow from TransactionalBus to the main Bus
func TestEventDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var received []Event
	mainBus.Subscribe(EventTypeTicketPurchased, func(ctx context.Context, event Event) {
		received = append(received, event)
	})

	testEvent := TicketPurchasedEvent{
		LotteryRef:          LotteryRef{LotteryID: 7, Round: 2},
		Buyer:               buyer,
		TicketPrice:         big.NewInt(10),
		Quantity:            1,
		NewParticipantCount: 1,
	}
	transactionalBus.Publish(testEvent)
	assert.Empty(t, received, "events must not be delivered before flush")

	transactionalBus.Flush(context.Background())

	require.Len(t, received, 1)
	got, ok := received[0].(TicketPurchasedEvent)
	require.True(t, ok)
	assert.Equal(t, testEvent, got)
	assert.Equal(t, LotteryRef{LotteryID: 7, Round: 2}, got.Ref())
	assert.Empty(t, transactionalBus.Pending())
}

// TestEmissionOrderPreserved tests that a draw sequence arrives in emission order
func TestEmissionOrderPreserved(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var order []EventType
	mainBus.SubscribeAll(func(ctx context.Context, event Event) {
		order = append(order, event.Type())
	})

	transactionalBus.Publish(TicketPurchasedEvent{Buyer: buyer, TicketPrice: big.NewInt(1), Quantity: 1})
	transactionalBus.Publish(LotteryTriggeredEvent{TotalParticipants: 3, TotalPot: big.NewInt(3)})
	transactionalBus.Publish(WinnerSelectedEvent{Winner: buyer, Prize: big.NewInt(3)})
	transactionalBus.Flush(context.Background())

	assert.Equal(t, []EventType{
		EventTypeTicketPurchased,
		EventTypeLotteryTriggered,
		EventTypeWinnerSelected,
	}, order)
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	delivered := false
	mainBus.Subscribe(EventTypeLotteryReset, func(ctx context.Context, event Event) {
		delivered = true
	})

	transactionalBus.Publish(LotteryResetEvent{NewMinParticipants: 3})
	transactionalBus.Discard()
	transactionalBus.Flush(context.Background())

	assert.False(t, delivered, "event was delivered despite being discarded")
}

// TestHandlerPanicIsolated tests that one panicking handler does not starve the rest
func TestHandlerPanicIsolated(t *testing.T) {
	mainBus := NewBus()

	called := false
	mainBus.Subscribe(EventTypeWinnerSelected, func(ctx context.Context, event Event) {
		panic("boom")
	})
	mainBus.Subscribe(EventTypeWinnerSelected, func(ctx context.Context, event Event) {
		called = true
	})

	assert.NotPanics(t, func() {
		mainBus.Emit(context.Background(), WinnerSelectedEvent{Winner: buyer, Prize: big.NewInt(1)})
	})
	assert.True(t, called)
}

// TestFlushSurvivesCancelledContext tests handlers still run after the transaction context ends
func TestFlushSurvivesCancelledContext(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var handlerErr error
	mainBus.Subscribe(EventTypeEmergencyWithdrawal, func(ctx context.Context, event Event) {
		handlerErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	transactionalBus.Publish(EmergencyWithdrawalEvent{Owner: buyer, Amount: big.NewInt(5)})
	cancel()
	transactionalBus.Flush(ctx)

	assert.NoError(t, handlerErr)
}
