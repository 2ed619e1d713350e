package service

import (
	"context"
	"math/big"

	"blocklucky/events"
	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// MockLotteryRepository is a mock implementation of LotteryRepository
type MockLotteryRepository struct {
	mock.Mock
}

func (m *MockLotteryRepository) Create(ctx context.Context, lottery *models.Lottery) error {
	args := m.Called(ctx, lottery)
	return args.Error(0)
}

func (m *MockLotteryRepository) GetByID(ctx context.Context, id int64) (*models.Lottery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lottery), args.Error(1)
}

func (m *MockLotteryRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Lottery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lottery), args.Error(1)
}

func (m *MockLotteryRepository) Save(ctx context.Context, lottery *models.Lottery) error {
	args := m.Called(ctx, lottery)
	return args.Error(0)
}

func (m *MockLotteryRepository) List(ctx context.Context) ([]*models.Lottery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lottery), args.Error(1)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByAddress(ctx context.Context, address common.Address) (*models.Account, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Credit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error) {
	args := m.Called(ctx, address, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Debit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error) {
	args := m.Called(ctx, address, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) ConsumeNonce(ctx context.Context, address common.Address, nonce uint64) error {
	args := m.Called(ctx, address, nonce)
	return args.Error(0)
}

func (m *MockAccountRepository) SetRejectsPayments(ctx context.Context, address common.Address, rejects bool) (*models.Account, error) {
	args := m.Called(ctx, address, rejects)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAddress(ctx context.Context, address common.Address, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockEventLogRepository is a mock implementation of EventLogRepository
type MockEventLogRepository struct {
	mock.Mock
}

func (m *MockEventLogRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEventLogRepository) List(ctx context.Context, lotteryID int64, afterSeq int64, limit int) ([]*models.LogEntry, error) {
	args := m.Called(ctx, lotteryID, afterSeq, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LogEntry), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Transaction calls go
// through testify; repositories are plain fields set with SetRepositories.
type MockUnitOfWork struct {
	mock.Mock
	lotteryRepo        LotteryRepository
	accountRepo        AccountRepository
	balanceHistoryRepo BalanceHistoryRepository
	eventLogRepo       EventLogRepository
	eventBus           EventPublisher
}

// SetRepositories wires the repositories returned by the unit of work
func (m *MockUnitOfWork) SetRepositories(lotteryRepo LotteryRepository, accountRepo AccountRepository, balanceHistoryRepo BalanceHistoryRepository, eventLogRepo EventLogRepository, eventBus EventPublisher) {
	m.lotteryRepo = lotteryRepo
	m.accountRepo = accountRepo
	m.balanceHistoryRepo = balanceHistoryRepo
	m.eventLogRepo = eventLogRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) LotteryRepository() LotteryRepository {
	return m.lotteryRepo
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.balanceHistoryRepo
}

func (m *MockUnitOfWork) EventLogRepository() EventLogRepository {
	return m.eventLogRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
