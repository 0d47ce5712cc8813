package analytics

import (
	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/clips-backend/pkg/bigquery"
)

// ClipEventsTable describes the clip_events table so the worker can create it
// on a fresh dataset. The column set mirrors ClipEventRow.
func ClipEventsTable(name string) bigquery.TableSpec {
	return bigquery.TableSpec{
		Name: name,
		Schema: cbigquery.Schema{
			{Name: "event_id", Type: cbigquery.StringFieldType, Required: true},
			{Name: "event_type", Type: cbigquery.StringFieldType, Required: true},
			{Name: "aggregate_type", Type: cbigquery.StringFieldType, Required: true},
			{Name: "aggregate_id", Type: cbigquery.StringFieldType, Required: true},
			{Name: "occurred_at", Type: cbigquery.TimestampFieldType, Required: true},
			{Name: "business_id", Type: cbigquery.StringFieldType},
			{Name: "clip_id", Type: cbigquery.StringFieldType},
			{Name: "project_id", Type: cbigquery.StringFieldType},
			{Name: "refill_id", Type: cbigquery.StringFieldType},
			{Name: "payment_status", Type: cbigquery.StringFieldType},
			{Name: "remaining_clips", Type: cbigquery.IntegerFieldType},
			{Name: "clips_delta", Type: cbigquery.IntegerFieldType, Required: true},
			{Name: "actor_user_id", Type: cbigquery.StringFieldType},
			{Name: "actor_role", Type: cbigquery.StringFieldType},
			{Name: "payload", Type: cbigquery.JSONFieldType},
		},
		PartitionField: "occurred_at",
		Clustering:     []string{"business_id", "event_type"},
	}
}
