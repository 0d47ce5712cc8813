package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
)

// OutboxEvent is one queued ledger event. Rows are written in the same
// transaction as the change they describe and relayed by the publisher.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"primaryKey;column:id;type:uuid;default:gen_random_uuid()"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null;index:idx_outbox_events_aggregate,priority:1"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null;index:idx_outbox_events_aggregate,priority:2"`
	// Payload is an outbox.Envelope.
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`

	PublishedAt  *time.Time `gorm:"column:published_at"`
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Published reports whether the row has been relayed.
func (e OutboxEvent) Published() bool { return e.PublishedAt != nil }

// Parked reports whether the publisher gave up on the row.
func (e OutboxEvent) Parked(maxAttempts int) bool {
	return e.PublishedAt == nil && maxAttempts > 0 && e.AttemptCount >= maxAttempts
}
