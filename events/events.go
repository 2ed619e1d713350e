package events

import (
	"context"
	"math/big"

	"github.com/algorand/go-deadlock"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTicketPurchased     EventType = "ticket_purchased"
	EventTypeTicketsBought       EventType = "tickets_bought"
	EventTypeLotteryTriggered    EventType = "lottery_triggered"
	EventTypeWinnerSelected      EventType = "winner_selected"
	EventTypeLotteryReset        EventType = "lottery_reset"
	EventTypeEmergencyWithdrawal EventType = "emergency_withdrawal"
)

// AllEventTypes lists every event type in emission-independent order
var AllEventTypes = []EventType{
	EventTypeTicketPurchased,
	EventTypeTicketsBought,
	EventTypeLotteryTriggered,
	EventTypeWinnerSelected,
	EventTypeLotteryReset,
	EventTypeEmergencyWithdrawal,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Ref() LotteryRef
}

// LotteryRef identifies the lottery and round an event belongs to
type LotteryRef struct {
	LotteryID int64 `json:"lotteryId"`
	Round     int64 `json:"round"`
}

func (r LotteryRef) Ref() LotteryRef {
	return r
}

// TicketPurchasedEvent is emitted for every single-ticket purchase
type TicketPurchasedEvent struct {
	LotteryRef
	Buyer               common.Address `json:"buyer"`
	TicketPrice         *big.Int       `json:"ticketPrice"`
	Quantity            uint64         `json:"quantity"`
	NewParticipantCount uint64         `json:"newParticipantCount"`
}

func (e TicketPurchasedEvent) Type() EventType {
	return EventTypeTicketPurchased
}

// TicketsBoughtEvent is emitted once per batch purchase
type TicketsBoughtEvent struct {
	LotteryRef
	Buyer      common.Address `json:"buyer"`
	Quantity   uint64         `json:"quantity"`
	TotalPrice *big.Int       `json:"totalPrice"`
	Discount   uint64         `json:"discount"`
}

func (e TicketsBoughtEvent) Type() EventType {
	return EventTypeTicketsBought
}

// LotteryTriggeredEvent marks the start of a draw
type LotteryTriggeredEvent struct {
	LotteryRef
	TotalParticipants uint64   `json:"totalParticipants"`
	TotalPot          *big.Int `json:"totalPot"`
}

func (e LotteryTriggeredEvent) Type() EventType {
	return EventTypeLotteryTriggered
}

// WinnerSelectedEvent is emitted after the prize has been paid
type WinnerSelectedEvent struct {
	LotteryRef
	Winner common.Address `json:"winner"`
	Prize  *big.Int       `json:"prize"`
}

func (e WinnerSelectedEvent) Type() EventType {
	return EventTypeWinnerSelected
}

// LotteryResetEvent opens a new round. ForfeitedPot is the undrawn pot the
// reset cleared, zero after a normal draw.
type LotteryResetEvent struct {
	LotteryRef
	NewMinParticipants uint64   `json:"newMinParticipants"`
	ForfeitedPot       *big.Int `json:"forfeitedPot"`
}

func (e LotteryResetEvent) Type() EventType {
	return EventTypeLotteryReset
}

// EmergencyWithdrawalEvent records the owner draining the pot
type EmergencyWithdrawalEvent struct {
	LotteryRef
	Owner  common.Address `json:"owner"`
	Amount *big.Int       `json:"amount"`
}

func (e EmergencyWithdrawalEvent) Type() EventType {
	return EventTypeEmergencyWithdrawal
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       deadlock.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit delivers an event to its handlers in subscription order. Handlers run
// on the caller's goroutine so consecutive emits are observed in order; a
// panicking handler is logged and does not stop the others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.dispatch(ctx, event, handler, i)
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event, h Handler, handlerIndex int) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType":    event.Type(),
				"handlerIndex": handlerIndex,
				"panic":        r,
			}).Error("Event handler panicked")
		}
	}()
	h(ctx, event)
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
}

// Pending returns the events queued so far
func (b *TransactionalBus) Pending() []Event {
	return append([]Event(nil), b.pending...)
}

// Flush hands pending events to the real bus; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus")

	// The transaction context may already be done by the time handlers run
	eventCtx := context.WithoutCancel(ctx)

	pending := b.pending
	b.pending = nil
	for _, ev := range pending {
		b.real.Emit(eventCtx, ev)
	}
}

// Discard drops pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
