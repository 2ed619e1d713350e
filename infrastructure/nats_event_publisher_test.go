package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"blocklucky/events"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessagePublisher struct {
	mock.Mock
}

func (m *mockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func TestNATSEventPublisher_Envelope(t *testing.T) {
	client := new(mockMessagePublisher)
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return fixed }

	winner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	event := events.WinnerSelectedEvent{
		LotteryRef: events.LotteryRef{LotteryID: 4, Round: 2},
		Winner:     winner,
		Prize:      big.NewInt(30_000_000_000_000_000),
	}

	var published []byte
	client.On("Publish", mock.Anything, "lottery.4.winner_selected", mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil)

	require.NoError(t, publisher.Publish(context.Background(), event))
	client.AssertExpectations(t)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(published, &envelope))
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)
	assert.Equal(t, "winner_selected", envelope.EventType)
	assert.Equal(t, int64(4), envelope.LotteryID)
	assert.Equal(t, int64(2), envelope.Round)
	assert.Equal(t, fixed, envelope.Timestamp)
	assert.Equal(t, "blocklucky", envelope.SourceService)

	var payload events.WinnerSelectedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, winner, payload.Winner)
	assert.Equal(t, "30000000000000000", payload.Prize.String())
}

func TestNATSEventPublisher_AttachForwardsCommittedEvents(t *testing.T) {
	client := new(mockMessagePublisher)
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())
	bus := events.NewBus()
	publisher.Attach(bus)

	client.On("Publish", mock.Anything, "lottery.1.lottery_reset", mock.Anything).Return(nil).Once()
	client.On("Publish", mock.Anything, "lottery.1.tickets_bought", mock.Anything).Return(errors.New("nats down")).Once()

	tx := events.NewTransactionalBus(bus)
	tx.Publish(events.LotteryResetEvent{LotteryRef: events.LotteryRef{LotteryID: 1}, NewMinParticipants: 3})
	tx.Publish(events.TicketsBoughtEvent{LotteryRef: events.LotteryRef{LotteryID: 1}, Quantity: 2, TotalPrice: big.NewInt(20)})
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)

	// A failed publish is logged and does not stop delivery
	assert.NotPanics(t, func() { tx.Flush(context.Background()) })
	client.AssertExpectations(t)
}
