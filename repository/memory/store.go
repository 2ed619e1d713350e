// Package memory provides a process-local store implementing the service
// repositories. A unit of work holds the store lock from Begin until Commit or
// Rollback, so calls are fully serialized and rollback restores a snapshot.
package memory

import (
	"time"

	"blocklucky/models"

	"github.com/algorand/go-deadlock"
	"github.com/ethereum/go-ethereum/common"
)

// Store holds all ledger and lottery state in memory
type Store struct {
	mu deadlock.Mutex
	st *state
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{st: newState()}
}

type state struct {
	lotteries     map[int64]*models.Lottery
	accounts      map[common.Address]*models.Account
	history       []*models.BalanceHistory
	events        []*models.LogEntry
	nextLotteryID int64
	nextHistoryID int64
	nextSeq       int64
}

func newState() *state {
	return &state{
		lotteries: make(map[int64]*models.Lottery),
		accounts:  make(map[common.Address]*models.Account),
	}
}

// clone deep-copies mutable records. History and log entries are never
// modified after being appended, so the slices are copied shallowly.
func (s *state) clone() *state {
	c := &state{
		lotteries:     make(map[int64]*models.Lottery, len(s.lotteries)),
		accounts:      make(map[common.Address]*models.Account, len(s.accounts)),
		history:       append([]*models.BalanceHistory(nil), s.history...),
		events:        append([]*models.LogEntry(nil), s.events...),
		nextLotteryID: s.nextLotteryID,
		nextHistoryID: s.nextHistoryID,
		nextSeq:       s.nextSeq,
	}
	for id, l := range s.lotteries {
		c.lotteries[id] = l.Clone()
	}
	for addr, a := range s.accounts {
		c.accounts[addr] = a.Clone()
	}
	return c
}

func now() time.Time {
	return time.Now().UTC()
}
