package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
)

// Event is a clip ledger event as it arrives from the outbox topic.
type Event struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Data          json.RawMessage
}

// ClipEventRow is one row of the clip_events BigQuery table.
type ClipEventRow struct {
	EventID        string               `bigquery:"event_id"`
	EventType      string               `bigquery:"event_type"`
	AggregateType  string               `bigquery:"aggregate_type"`
	AggregateID    string               `bigquery:"aggregate_id"`
	OccurredAt     time.Time            `bigquery:"occurred_at"`
	BusinessID     cbigquery.NullString `bigquery:"business_id"`
	ClipID         cbigquery.NullString `bigquery:"clip_id"`
	ProjectID      cbigquery.NullString `bigquery:"project_id"`
	RefillID       cbigquery.NullString `bigquery:"refill_id"`
	PaymentStatus  cbigquery.NullString `bigquery:"payment_status"`
	RemainingClips cbigquery.NullInt64  `bigquery:"remaining_clips"`
	ClipsDelta     int64                `bigquery:"clips_delta"`
	ActorUserID    cbigquery.NullString `bigquery:"actor_user_id"`
	ActorRole      cbigquery.NullString `bigquery:"actor_role"`
	Payload        cbigquery.NullJSON   `bigquery:"payload"`
}

// eventFields is the union of the ids and counters carried by clip payloads.
type eventFields struct {
	ClipID         *uuid.UUID `json:"clip_id"`
	BusinessID     *uuid.UUID `json:"business_id"`
	ProjectID      *uuid.UUID `json:"project_id"`
	RefillID       *uuid.UUID `json:"refill_id"`
	RemainingClips *int       `json:"remaining_clips"`
	Clip           *int       `json:"clip"`
	PaymentStatus  string     `json:"payment_status"`
}

// BuildRow flattens an event into a clip_events row. ClipsDelta is the change
// the event made to the spendable balance: -1 per application and +N per refill.
func BuildRow(event Event) (*ClipEventRow, error) {
	var fields eventFields
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &fields); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", event.EventType, err)
		}
	}

	row := &ClipEventRow{
		EventID:        event.EventID.String(),
		EventType:      string(event.EventType),
		AggregateType:  string(event.AggregateType),
		AggregateID:    event.AggregateID.String(),
		OccurredAt:     event.OccurredAt.UTC(),
		BusinessID:     nullUUID(fields.BusinessID),
		ClipID:         nullUUID(fields.ClipID),
		ProjectID:      nullUUID(fields.ProjectID),
		RefillID:       nullUUID(fields.RefillID),
		PaymentStatus:  nullString(fields.PaymentStatus),
		RemainingClips: nullInt(fields.RemainingClips),
	}

	switch event.EventType {
	case enums.EventClipConsumed:
		row.ClipsDelta = -1
	case enums.EventClipRefillPurchased:
		if fields.Clip != nil {
			row.ClipsDelta = int64(*fields.Clip)
		}
	}

	if event.Actor != nil {
		row.ActorUserID = nullUUID(&event.Actor.UserID)
		row.ActorRole = nullString(event.Actor.Role)
	}
	if len(event.Data) > 0 {
		row.Payload = cbigquery.NullJSON{Valid: true, JSONVal: string(event.Data)}
	}
	return row, nil
}

func nullUUID(id *uuid.UUID) cbigquery.NullString {
	if id == nil || *id == uuid.Nil {
		return cbigquery.NullString{}
	}
	return cbigquery.NullString{StringVal: id.String(), Valid: true}
}

func nullString(value string) cbigquery.NullString {
	if value == "" {
		return cbigquery.NullString{}
	}
	return cbigquery.NullString{StringVal: value, Valid: true}
}

func nullInt(value *int) cbigquery.NullInt64 {
	if value == nil {
		return cbigquery.NullInt64{}
	}
	return cbigquery.NullInt64{Int64: int64(*value), Valid: true}
}
