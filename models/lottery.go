package models

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the "no winner" sentinel
var ZeroAddress = common.Address{}

// MaxMinParticipants is the largest threshold the store can hold
const MaxMinParticipants = math.MaxInt64

// Lottery is one deployed lottery and the state of its current round
type Lottery struct {
	ID               int64                     `db:"id"`
	Owner            common.Address            `db:"owner_address"`
	TicketPrice      *big.Int                  `db:"ticket_price"`
	MinParticipants  uint64                    `db:"min_participants"`
	Round            int64                     `db:"round"`
	Participants     []common.Address          `db:"-"` // Order of first purchase
	TicketsByAddress map[common.Address]uint64 `db:"-"`
	Pot              *big.Int                  `db:"pot"`
	Forfeited        *big.Int                  `db:"forfeited"` // Pots cleared by resets, kept by the lottery
	Active           bool                      `db:"active"`
	Completed        bool                      `db:"completed"`
	Winner           common.Address            `db:"winner_address"`
	CreatedAt        time.Time                 `db:"created_at"`
	UpdatedAt        time.Time                 `db:"updated_at"`
}

// NewLottery returns a fresh, active lottery owned by owner
func NewLottery(owner common.Address, minParticipants uint64, ticketPrice *big.Int) (*Lottery, error) {
	if err := validateMinParticipants(minParticipants); err != nil {
		return nil, err
	}
	if ticketPrice == nil || ticketPrice.Sign() <= 0 {
		return nil, fmt.Errorf("%w: ticket price must be positive", ErrInvalidConfiguration)
	}

	return &Lottery{
		Owner:            owner,
		TicketPrice:      new(big.Int).Set(ticketPrice),
		MinParticipants:  minParticipants,
		Round:            1,
		Participants:     []common.Address{},
		TicketsByAddress: make(map[common.Address]uint64),
		Pot:              new(big.Int),
		Forfeited:        new(big.Int),
		Active:           true,
	}, nil
}

func validateMinParticipants(n uint64) error {
	if n == 0 {
		return ErrInvalidConfiguration
	}
	if n > MaxMinParticipants {
		return fmt.Errorf("%w: at most %d participants", ErrInvalidConfiguration, uint64(MaxMinParticipants))
	}
	return nil
}

// IsOwner reports whether addr deployed the lottery
func (l *Lottery) IsOwner(addr common.Address) bool {
	return l.Owner == addr
}

// CanPurchaseTickets returns nil while the round accepts entries
func (l *Lottery) CanPurchaseTickets() error {
	if !l.Active || l.Completed {
		return ErrInactiveRound
	}
	return nil
}

// HasParticipated reports whether addr holds at least one ticket this round
func (l *Lottery) HasParticipated(addr common.Address) bool {
	return l.TicketsByAddress[addr] > 0
}

// ParticipantCount returns the number of distinct buyers this round
func (l *Lottery) ParticipantCount() int {
	return len(l.Participants)
}

// TotalTickets returns the number of tickets sold this round
func (l *Lottery) TotalTickets() uint64 {
	var total uint64
	for _, n := range l.TicketsByAddress {
		total += n
	}
	return total
}

// AddTickets credits quantity tickets to buyer and adds paid to the pot. It
// reports whether buyer is new to this round.
func (l *Lottery) AddTickets(buyer common.Address, quantity uint64, paid *big.Int) bool {
	if l.TicketsByAddress == nil {
		l.TicketsByAddress = make(map[common.Address]uint64)
	}

	isNew := !l.HasParticipated(buyer)
	if isNew {
		l.Participants = append(l.Participants, buyer)
	}
	l.TicketsByAddress[buyer] += quantity
	l.Pot = new(big.Int).Add(l.Pot, paid)
	return isNew
}

// ThresholdReached reports whether enough distinct buyers joined to draw
func (l *Lottery) ThresholdReached() bool {
	return !l.Completed && uint64(len(l.Participants)) >= l.MinParticipants
}

// Complete closes the round with winner and empties the pot, returning the prize
func (l *Lottery) Complete(winner common.Address) *big.Int {
	prize := l.Pot
	l.Pot = new(big.Int)
	l.Winner = winner
	l.Active = false
	l.Completed = true
	return prize
}

// Withdraw empties the pot, returning what it held
func (l *Lottery) Withdraw() *big.Int {
	amount := l.Pot
	l.Pot = new(big.Int)
	return amount
}

// Reset opens a new round requiring newMinParticipants buyers. A pot left
// over from an undrawn round is cleared into Forfeited and returned.
func (l *Lottery) Reset(newMinParticipants uint64) (*big.Int, error) {
	if err := validateMinParticipants(newMinParticipants); err != nil {
		return nil, err
	}

	forfeited := l.Pot
	if forfeited == nil {
		forfeited = new(big.Int)
	}
	total := new(big.Int).Set(forfeited)
	if l.Forfeited != nil {
		total.Add(total, l.Forfeited)
	}
	l.Forfeited = total
	l.Pot = new(big.Int)

	l.Participants = []common.Address{}
	l.TicketsByAddress = make(map[common.Address]uint64)
	l.Winner = ZeroAddress
	l.MinParticipants = newMinParticipants
	l.Round++
	l.Active = true
	l.Completed = false
	return forfeited, nil
}

// Info returns the summary tuple clients poll
func (l *Lottery) Info() LotteryInfo {
	return LotteryInfo{
		ParticipantCount: uint64(len(l.Participants)),
		Pot:              new(big.Int).Set(l.Pot),
		MinParticipants:  l.MinParticipants,
		Active:           l.Active,
		Completed:        l.Completed,
		Winner:           l.Winner,
	}
}

// Clone returns a deep copy safe to mutate independently
func (l *Lottery) Clone() *Lottery {
	c := *l
	c.TicketPrice = new(big.Int).Set(l.TicketPrice)
	c.Pot = new(big.Int).Set(l.Pot)
	c.Forfeited = new(big.Int)
	if l.Forfeited != nil {
		c.Forfeited.Set(l.Forfeited)
	}
	c.Participants = append([]common.Address{}, l.Participants...)
	c.TicketsByAddress = make(map[common.Address]uint64, len(l.TicketsByAddress))
	for addr, n := range l.TicketsByAddress {
		c.TicketsByAddress[addr] = n
	}
	return &c
}

// LotteryInfo is the (participantCount, pot, minParticipants, active,
// completed, winner) summary
type LotteryInfo struct {
	ParticipantCount uint64         `json:"participantCount"`
	Pot              *big.Int       `json:"pot"`
	MinParticipants  uint64         `json:"minParticipants"`
	Active           bool           `json:"active"`
	Completed        bool           `json:"completed"`
	Winner           common.Address `json:"winner"`
}
