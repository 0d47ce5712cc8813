package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is stamped on every envelope written by Emit.
const EnvelopeVersion = 1

// ErrEmptyPayload is returned when an envelope carries no event data.
var ErrEmptyPayload = errors.New("envelope has no data")

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID     uuid.UUID  `json:"userId"`
	BusinessID *uuid.UUID `json:"businessId,omitempty"`
	Role       string     `json:"role,omitempty"`
}

// Envelope is the JSON document stored in outbox_events.payload and sent
// verbatim as the Pub/Sub message body. Data holds the typed event payload.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored envelope and rejects one without data.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Envelope{}, ErrEmptyPayload
	}
	return env, nil
}

// DecodeData unmarshals the event payload into dst.
func (e Envelope) DecodeData(dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
