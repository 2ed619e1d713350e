package service

import (
	"context"
	"math/big"

	"blocklucky/events"
	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
)

// LotteryRepository defines the interface for lottery data access
type LotteryRepository interface {
	// Create persists a newly deployed lottery and assigns its ID
	Create(ctx context.Context, lottery *models.Lottery) error

	// GetByID retrieves a lottery with its participants, nil if absent
	GetByID(ctx context.Context, id int64) (*models.Lottery, error)

	// GetByIDForUpdate retrieves a lottery and locks it until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Lottery, error)

	// Save writes the lottery state and replaces its participant list
	Save(ctx context.Context, lottery *models.Lottery) error

	// List returns every deployed lottery
	List(ctx context.Context) ([]*models.Lottery, error)
}

// AccountRepository defines the interface for ledger account access
type AccountRepository interface {
	// GetByAddress retrieves an account, nil if it has never been touched
	GetByAddress(ctx context.Context, address common.Address) (*models.Account, error)

	// Credit adds amount to an account, creating it if needed.
	// Fails with models.ErrPaymentRejected for accounts that refuse funds.
	Credit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error)

	// Debit removes amount from an account, failing with
	// models.ErrInsufficientFunds or models.ErrAccountNotFound
	Debit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error)

	// ConsumeNonce checks nonce against the account's next nonce and advances it
	ConsumeNonce(ctx context.Context, address common.Address, nonce uint64) error

	// SetRejectsPayments toggles whether the account refuses incoming funds
	SetRejectsPayments(ctx context.Context, address common.Address, rejects bool) (*models.Account, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByAddress returns the most recent entries for an address, newest first
	GetByAddress(ctx context.Context, address common.Address, limit int) ([]*models.BalanceHistory, error)
}

// EventLogRepository defines the interface for the persisted event log
type EventLogRepository interface {
	// Append stores an entry and assigns its sequence number
	Append(ctx context.Context, entry *models.LogEntry) error

	// List returns entries of a lottery with Seq > afterSeq in emission order
	List(ctx context.Context, lotteryID int64, afterSeq int64, limit int) ([]*models.LogEntry, error)
}

// EventPublisher queues events until the unit of work commits
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups repository calls into one atomic transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	LotteryRepository() LotteryRepository
	AccountRepository() AccountRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventLogRepository() EventLogRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Call carries the identity and value attached to an entry point invocation
type Call struct {
	From  common.Address
	Value *big.Int
	// Nonce, when set, must match the caller's next nonce and is consumed
	// by the call. Trusted local callers leave it nil.
	Nonce *uint64
}

// PurchaseReceipt describes the outcome of a successful purchase
type PurchaseReceipt struct {
	LotteryID        int64
	Round            int64
	Buyer            common.Address
	Quantity         uint64
	TotalPrice       *big.Int
	DiscountPercent  uint64
	NewParticipant   bool
	ParticipantCount uint64
	Drawn            bool
	Winner           common.Address
	Prize            *big.Int
}

// LotteryService defines the entry points and views of one lottery
type LotteryService interface {
	// BuyTicket buys a single ticket at the list price
	BuyTicket(ctx context.Context, call Call) (*PurchaseReceipt, error)

	// BuyTickets buys quantity tickets at the discounted batch price
	BuyTickets(ctx context.Context, call Call, quantity uint64) (*PurchaseReceipt, error)

	// ResetLottery opens a new round; owner only
	ResetLottery(ctx context.Context, call Call, newMinParticipants uint64) error

	// EmergencyWithdraw moves the whole pot to the owner; owner only
	EmergencyWithdraw(ctx context.Context, call Call) (*big.Int, error)

	// CalculatePrice quotes a batch purchase
	CalculatePrice(ctx context.Context, quantity uint64) (models.Quote, error)

	GetLottery(ctx context.Context) (*models.Lottery, error)
	GetLotteryInfo(ctx context.Context) (*models.LotteryInfo, error)
	GetAllParticipants(ctx context.Context) ([]common.Address, error)
	HasParticipated(ctx context.Context, address common.Address) (bool, error)
	TicketsByAddress(ctx context.Context, address common.Address) (uint64, error)
	Owner(ctx context.Context) (common.Address, error)
	TicketPrice(ctx context.Context) (*big.Int, error)
	MinParticipants(ctx context.Context) (uint64, error)
	ParticipantCount(ctx context.Context) (uint64, error)
	Pot(ctx context.Context) (*big.Int, error)
	Active(ctx context.Context) (bool, error)
	Completed(ctx context.Context) (bool, error)
	Winner(ctx context.Context) (common.Address, error)

	// GetEvents returns logged events with sequence greater than afterSeq
	GetEvents(ctx context.Context, afterSeq int64, limit int) ([]*models.LogEntry, error)
}

// AccountService defines ledger operations outside the lottery itself
type AccountService interface {
	// Deposit funds an account
	Deposit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error)

	// GetAccount returns the account, or an empty one if never touched
	GetAccount(ctx context.Context, address common.Address) (*models.Account, error)

	// SetRejectsPayments toggles whether the account refuses incoming funds
	SetRejectsPayments(ctx context.Context, address common.Address, rejects bool) (*models.Account, error)

	// GetHistory returns recent balance changes, newest first
	GetHistory(ctx context.Context, address common.Address, limit int) ([]*models.BalanceHistory, error)
}
