package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"blocklucky/events"
	"blocklucky/models"
)

// RecordBalanceChange records a balance history entry for an account that
// just moved by change. This is the single entry point for journaling
// balance changes in the system.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, account *models.Account, change *big.Int, txType models.TransactionType, lotteryID *int64, metadata map[string]any) error {
	history := &models.BalanceHistory{
		Address:             account.Address,
		LotteryID:           lotteryID,
		BalanceBefore:       new(big.Int).Sub(account.Balance, change),
		BalanceAfter:        new(big.Int).Set(account.Balance),
		ChangeAmount:        new(big.Int).Set(change),
		TransactionType:     txType,
		TransactionMetadata: metadata,
	}

	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}
	return nil
}

// PublishEvent appends an event to the lottery's log and queues it on the
// unit of work's bus. Both only become visible once the unit of work commits.
func PublishEvent(ctx context.Context, uow UnitOfWork, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type(), err)
	}

	ref := event.Ref()
	entry := &models.LogEntry{
		LotteryID: ref.LotteryID,
		Round:     ref.Round,
		EventType: string(event.Type()),
		Payload:   payload,
	}
	if err := uow.EventLogRepository().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to log %s event: %w", event.Type(), err)
	}

	uow.EventBus().Publish(event)
	return nil
}
