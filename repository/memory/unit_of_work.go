package memory

import (
	"context"
	"fmt"

	"blocklucky/events"
	"blocklucky/service"
)

// NewUnitOfWorkFactory creates a UnitOfWork factory backed by store
func NewUnitOfWorkFactory(store *Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    store,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	store    *Store
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            f.store,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

type unitOfWork struct {
	store            *Store
	ctx              context.Context
	snapshot         *state
	started          bool
	transactionalBus *events.TransactionalBus

	lotteryRepo        *lotteryRepository
	accountRepo        *accountRepository
	balanceHistoryRepo *balanceHistoryRepository
	eventLogRepo       *eventLogRepository
}

// Begin takes the store lock and snapshots the state for rollback
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.started {
		return fmt.Errorf("transaction already started")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.store.mu.Lock()
	u.snapshot = u.store.st.clone()
	u.started = true
	u.ctx = ctx

	st := u.store.st
	u.lotteryRepo = &lotteryRepository{st: st}
	u.accountRepo = &accountRepository{st: st}
	u.balanceHistoryRepo = &balanceHistoryRepository{st: st}
	u.eventLogRepo = &eventLogRepository{st: st}
	return nil
}

// Commit keeps the current state and releases the lock
func (u *unitOfWork) Commit() error {
	if !u.started {
		return fmt.Errorf("no transaction to commit")
	}

	u.started = false
	u.snapshot = nil
	u.store.mu.Unlock()

	u.transactionalBus.Flush(u.ctx)
	return nil
}

// Rollback restores the snapshot taken by Begin and releases the lock
func (u *unitOfWork) Rollback() error {
	if !u.started {
		return nil
	}

	u.store.st = u.snapshot
	u.started = false
	u.snapshot = nil
	u.store.mu.Unlock()

	u.transactionalBus.Discard()
	return nil
}

func (u *unitOfWork) LotteryRepository() service.LotteryRepository {
	if u.lotteryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.lotteryRepo
}

func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

func (u *unitOfWork) EventLogRepository() service.EventLogRepository {
	if u.eventLogRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.eventLogRepo
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	if !u.started {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
