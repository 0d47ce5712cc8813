package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateBusinessClip OutboxAggregateType = "business_clip"
	AggregateClipRefill   OutboxAggregateType = "clip_refill"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBusinessClip,
	AggregateClipRefill,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return known(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", validAggregateTypes, value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventClipPlanRequested   OutboxEventType = "clip_plan_requested"
	EventClipPlanAssigned    OutboxEventType = "clip_plan_assigned"
	EventClipPlanRenewed     OutboxEventType = "clip_plan_renewed"
	EventClipRefillPurchased OutboxEventType = "clip_refill_purchased"
	EventClipPaymentUpdated  OutboxEventType = "clip_payment_updated"
	EventClipPlanExpired     OutboxEventType = "clip_plan_expired"
	EventClipConsumed        OutboxEventType = "clip_consumed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventClipPlanRequested,
	EventClipPlanAssigned,
	EventClipPlanRenewed,
	EventClipRefillPurchased,
	EventClipPaymentUpdated,
	EventClipPlanExpired,
	EventClipConsumed,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return known(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", validOutboxEventTypes, value)
}
