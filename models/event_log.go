package models

import (
	"encoding/json"
	"time"
)

// LogEntry is a persisted copy of an emitted lottery event
type LogEntry struct {
	Seq       int64           `db:"seq" json:"seq"`
	LotteryID int64           `db:"lottery_id" json:"lotteryId"`
	Round     int64           `db:"round" json:"round"`
	EventType string          `db:"event_type" json:"eventType"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}
