package repository

import (
	"context"
	"fmt"

	"blocklucky/database"
	"blocklucky/models"
)

// EventLogRepository implements the EventLogRepository interface
type EventLogRepository struct {
	q queryable
}

// NewEventLogRepository creates a new event log repository
func NewEventLogRepository(db *database.DB) *EventLogRepository {
	return &EventLogRepository{q: db.Pool}
}

// newEventLogRepositoryWithTx creates a new event log repository with a transaction
func newEventLogRepositoryWithTx(tx queryable) *EventLogRepository {
	return &EventLogRepository{q: tx}
}

// Append stores an event and assigns its sequence number
func (r *EventLogRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	query := `
		INSERT INTO lottery_events (lottery_id, round, event_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING seq, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.LotteryID,
		entry.Round,
		entry.EventType,
		[]byte(entry.Payload),
	).Scan(&entry.Seq, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append %s event for lottery %d: %w", entry.EventType, entry.LotteryID, err)
	}
	return nil
}

// List returns events of a lottery after afterSeq in emission order.
// A limit of zero or less returns every entry.
func (r *EventLogRepository) List(ctx context.Context, lotteryID int64, afterSeq int64, limit int) ([]*models.LogEntry, error) {
	query := `
		SELECT seq, lottery_id, round, event_type, payload, created_at
		FROM lottery_events
		WHERE lottery_id = $1 AND seq > $2
		ORDER BY seq
	`
	args := []any{lotteryID, afterSeq}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for lottery %d: %w", lotteryID, err)
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		var payload []byte
		if err := rows.Scan(&entry.Seq, &entry.LotteryID, &entry.Round, &entry.EventType, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lottery event: %w", err)
		}
		entry.Payload = payload
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lottery events: %w", err)
	}
	return entries, nil
}
