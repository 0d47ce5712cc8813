package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/outbox/payloads"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(config.PubSubConfig{ClipsTopic: "clips-topic"})
	require.NoError(t, err)
	return r
}

func envelopeWith(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.Envelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func TestNewRequiresTopic(t *testing.T) {
	_, err := New(config.PubSubConfig{})
	assert.Error(t, err)
}

func TestEveryEventTypeIsRouted(t *testing.T) {
	r := newRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventClipPlanRequested,
		enums.EventClipPlanAssigned,
		enums.EventClipPlanRenewed,
		enums.EventClipRefillPurchased,
		enums.EventClipPaymentUpdated,
		enums.EventClipPlanExpired,
		enums.EventClipConsumed,
	} {
		d, ok := r.byType[eventType]
		if assert.True(t, ok, "%s not registered", eventType) {
			assert.Equal(t, "clips-topic", d.Topic)
			assert.NotNil(t, d.newPayload())
		}
	}
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	r := newRegistry(t)
	clipID, projectID := uuid.New(), uuid.New()
	data, err := json.Marshal(payloads.ClipConsumedEvent{
		ClipID:         clipID,
		BusinessID:     uuid.New(),
		ProjectID:      projectID,
		OfferID:        uuid.New(),
		RemainingClips: 9,
	})
	require.NoError(t, err)

	resolved, err := r.Resolve(models.OutboxEvent{
		EventType:     enums.EventClipConsumed,
		AggregateType: enums.AggregateBusinessClip,
		AggregateID:   clipID,
		Payload:       envelopeWith(t, string(data)),
	})
	require.NoError(t, err)

	assert.Equal(t, "clips-topic", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*payloads.ClipConsumedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, projectID, payload.ProjectID)
	assert.Equal(t, 9, payload.RemainingClips)
}

func TestResolveFailuresArePermanent(t *testing.T) {
	r := newRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType: "clip_gifted", AggregateType: enums.AggregateBusinessClip,
			AggregateID: uuid.New(), Payload: envelopeWith(t, `{}`),
		},
		"aggregate mismatch": {
			EventType: enums.EventClipRefillPurchased, AggregateType: enums.AggregateBusinessClip,
			AggregateID: uuid.New(), Payload: envelopeWith(t, `{"clip":5}`),
		},
		"missing aggregate id": {
			EventType: enums.EventClipPlanExpired, AggregateType: enums.AggregateBusinessClip,
			Payload: envelopeWith(t, `{}`),
		},
		"null data": {
			EventType: enums.EventClipPlanAssigned, AggregateType: enums.AggregateBusinessClip,
			AggregateID: uuid.New(), Payload: envelopeWith(t, `null`),
		},
		"wrong payload shape": {
			EventType: enums.EventClipConsumed, AggregateType: enums.AggregateBusinessClip,
			AggregateID: uuid.New(), Payload: envelopeWith(t, `{"remaining_clips":"many"}`),
		},
		"broken envelope": {
			EventType: enums.EventClipConsumed, AggregateType: enums.AggregateBusinessClip,
			AggregateID: uuid.New(), Payload: json.RawMessage(`{"data":`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(row)
			require.Error(t, err)
			assert.True(t, IsPermanent(err))
		})
	}
}

func TestPermanentWrapsCause(t *testing.T) {
	cause := errors.New("topic gone")
	err := Permanent(cause)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsPermanent(cause))
}
