package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"blocklucky/database"
	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `address, balance::text, nonce, rejects_payments, created_at, updated_at`

// GetByAddress retrieves an account by address
func (r *AccountRepository) GetByAddress(ctx context.Context, address common.Address) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE address = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, address.Hex()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address.Hex(), err)
	}
	return account, nil
}

// Credit adds to an account's balance atomically, creating the account if needed
func (r *AccountRepository) Credit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}

	existing, err := r.GetByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.RejectsPayments {
		return nil, fmt.Errorf("%w: %s", models.ErrPaymentRejected, address.Hex())
	}

	query := `
		INSERT INTO accounts (address, balance)
		VALUES ($1, $2::text::numeric)
		ON CONFLICT (address) DO UPDATE
		SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, address.Hex(), weiParam(amount)))
	if err != nil {
		return nil, fmt.Errorf("failed to credit account %s: %w", address.Hex(), err)
	}
	return account, nil
}

// Debit deducts from an account's balance atomically, failing if insufficient funds
func (r *AccountRepository) Debit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}

	query := `
		UPDATE accounts
		SET balance = balance - $1::text::numeric, updated_at = NOW()
		WHERE address = $2 AND balance >= $1::text::numeric
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, weiParam(amount), address.Hex()))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to debit account %s: %w", address.Hex(), err)
	}

	// No row updated: either the account is missing or the balance is short
	existing, getErr := r.GetByAddress(ctx, address)
	if getErr != nil {
		return nil, getErr
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrAccountNotFound, address.Hex())
	}
	return nil, fmt.Errorf("%w: balance %s, required %s", models.ErrInsufficientFunds,
		existing.Balance.String(), amount.String())
}

// ConsumeNonce advances the account nonce when nonce matches the expected value
func (r *AccountRepository) ConsumeNonce(ctx context.Context, address common.Address, nonce uint64) error {
	if _, err := r.q.Exec(ctx, `INSERT INTO accounts (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`, address.Hex()); err != nil {
		return fmt.Errorf("failed to ensure account %s: %w", address.Hex(), err)
	}

	var current int64
	err := r.q.QueryRow(ctx, `SELECT nonce FROM accounts WHERE address = $1 FOR UPDATE`, address.Hex()).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read nonce for %s: %w", address.Hex(), err)
	}
	if uint64(current) != nonce {
		return fmt.Errorf("%w: expected %d, got %d", models.ErrInvalidNonce, current, nonce)
	}

	_, err = r.q.Exec(ctx, `UPDATE accounts SET nonce = nonce + 1, updated_at = NOW() WHERE address = $1`, address.Hex())
	if err != nil {
		return fmt.Errorf("failed to advance nonce for %s: %w", address.Hex(), err)
	}
	return nil
}

// SetRejectsPayments toggles the payment rejection flag, creating the account if needed
func (r *AccountRepository) SetRejectsPayments(ctx context.Context, address common.Address, rejects bool) (*models.Account, error) {
	query := `
		INSERT INTO accounts (address, rejects_payments)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
		SET rejects_payments = EXCLUDED.rejects_payments, updated_at = NOW()
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, address.Hex(), rejects))
	if err != nil {
		return nil, fmt.Errorf("failed to update account %s: %w", address.Hex(), err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		account          models.Account
		address, balance string
		nonce            int64
	)

	err := row.Scan(&address, &balance, &nonce, &account.RejectsPayments, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.Address = common.HexToAddress(address)
	account.Nonce = uint64(nonce)
	if account.Balance, err = parseWei(balance); err != nil {
		return nil, err
	}
	return &account, nil
}
