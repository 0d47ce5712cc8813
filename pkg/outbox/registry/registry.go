// Package registry maps outbox event types to the topic they are published on
// and the payload type their envelope must decode into.
package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/outbox/payloads"
)

// ErrPermanent marks failures that retrying the same row cannot fix.
var ErrPermanent = errors.New("permanent outbox failure")

// Permanent wraps err so IsPermanent reports true for it.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

type Descriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// Resolved is an outbox row with its envelope and typed payload decoded.
type Resolved struct {
	Descriptor Descriptor
	Envelope   outbox.Envelope
	Payload    any
}

type Registry struct {
	byType map[enums.OutboxEventType]Descriptor
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// New registers every clip ledger event on the configured clips topic.
func New(cfg config.PubSubConfig) (*Registry, error) {
	topic := cfg.ClipsTopic
	if topic == "" {
		return nil, errors.New("clips topic is required")
	}
	plan := payloadOf[payloads.ClipPlanEvent]()
	descriptors := []Descriptor{
		{enums.EventClipPlanRequested, enums.AggregateBusinessClip, topic, plan},
		{enums.EventClipPlanAssigned, enums.AggregateBusinessClip, topic, plan},
		{enums.EventClipPlanRenewed, enums.AggregateBusinessClip, topic, plan},
		{enums.EventClipPaymentUpdated, enums.AggregateBusinessClip, topic, payloadOf[payloads.ClipPaymentUpdatedEvent]()},
		{enums.EventClipPlanExpired, enums.AggregateBusinessClip, topic, payloadOf[payloads.ClipPlanExpiredEvent]()},
		{enums.EventClipConsumed, enums.AggregateBusinessClip, topic, payloadOf[payloads.ClipConsumedEvent]()},
		{enums.EventClipRefillPurchased, enums.AggregateClipRefill, topic, payloadOf[payloads.ClipRefillPurchasedEvent]()},
	}

	r := &Registry{byType: make(map[enums.OutboxEventType]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		r.byType[d.EventType] = d
	}
	return r, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is permanent: the row will not decode any better next time.
func (r *Registry) Resolve(row models.OutboxEvent) (*Resolved, error) {
	d, ok := r.byType[row.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("unsupported event type %s", row.EventType))
	case d.AggregateType != row.AggregateType:
		return nil, Permanent(fmt.Errorf("%s expects aggregate %s, row has %s", row.EventType, d.AggregateType, row.AggregateType))
	case row.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("missing aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", row.EventType, err))
	}
	payload := d.newPayload()
	if err := env.DecodeData(payload); err != nil {
		return nil, Permanent(fmt.Errorf("%s: %w", row.EventType, err))
	}
	return &Resolved{Descriptor: d, Envelope: env, Payload: payload}, nil
}
