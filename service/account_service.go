package service

import (
	"context"
	"fmt"
	"math/big"

	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// accountService implements the AccountService interface
type accountService struct {
	uowFactory UnitOfWorkFactory
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory) AccountService {
	return &accountService{uowFactory: uowFactory}
}

// Deposit credits amount to address and journals it
func (s *accountService) Deposit(ctx context.Context, address common.Address, amount *big.Int) (*models.Account, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: deposit must be positive", models.ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().Credit(ctx, address, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit %s: %w", address.Hex(), err)
	}

	if err := RecordBalanceChange(ctx, uow, account, amount, models.TransactionTypeDeposit, nil, nil); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"address": address.Hex(),
		"amount":  models.FormatEther(amount),
		"balance": models.FormatEther(account.Balance),
	}).Info("Account funded")

	return account, nil
}

// GetAccount returns the account for address, or an empty one
func (s *accountService) GetAccount(ctx context.Context, address common.Address) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", address.Hex(), err)
	}
	if account == nil {
		return models.NewAccount(address), nil
	}
	return account, nil
}

// SetRejectsPayments toggles whether address refuses incoming funds
func (s *accountService) SetRejectsPayments(ctx context.Context, address common.Address, rejects bool) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().SetRejectsPayments(ctx, address, rejects)
	if err != nil {
		return nil, fmt.Errorf("failed to update account %s: %w", address.Hex(), err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// GetHistory returns recent balance changes for address
func (s *accountService) GetHistory(ctx context.Context, address common.Address, limit int) ([]*models.BalanceHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	history, err := uow.BalanceHistoryRepository().GetByAddress(ctx, address, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s: %w", address.Hex(), err)
	}
	return history, nil
}
