package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"blocklucky/database"
	"blocklucky/models"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceHistoryRepository implements the BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepositoryWithTx creates a new balance history repository with a transaction
func newBalanceHistoryRepositoryWithTx(tx queryable) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(address, lottery_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5::text::numeric, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.Address.Hex(),
		history.LotteryID,
		weiParam(history.BalanceBefore),
		weiParam(history.BalanceAfter),
		weiParam(history.ChangeAmount),
		string(history.TransactionType),
		metadataJSON,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for %s: %w", history.Address.Hex(), err)
	}

	return nil
}

// GetByAddress returns balance history for an address, newest first.
// A limit of zero or less returns every entry.
func (r *BalanceHistoryRepository) GetByAddress(ctx context.Context, address common.Address, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT id, address, lottery_id, balance_before::text, balance_after::text, change_amount::text,
		       transaction_type, transaction_metadata, created_at
		FROM balance_history
		WHERE address = $1
		ORDER BY id DESC
	`
	args := []any{address.Hex()}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s: %w", address.Hex(), err)
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var (
			history               models.BalanceHistory
			addr, txType          string
			before, after, change string
			metadataJSON          []byte
		)

		err := rows.Scan(
			&history.ID,
			&addr,
			&history.LotteryID,
			&before,
			&after,
			&change,
			&txType,
			&metadataJSON,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		history.Address = common.HexToAddress(addr)
		history.TransactionType = models.TransactionType(txType)
		if history.BalanceBefore, err = parseWei(before); err != nil {
			return nil, err
		}
		if history.BalanceAfter, err = parseWei(after); err != nil {
			return nil, err
		}
		if history.ChangeAmount, err = parseWei(change); err != nil {
			return nil, err
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}
