package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
)

const consumerName = "clip-analytics"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type claimGuard interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type rowWriter interface {
	Insert(ctx context.Context, row *ClipEventRow) error
}

// Service copies clip ledger events from Pub/Sub into BigQuery. Each event is
// written at most once per consumer thanks to the redis claim guard.
type Service struct {
	subscription receiver
	writer       rowWriter
	guard        claimGuard
	logg         *logger.Logger
}

func NewService(subscription receiver, writer rowWriter, guard claimGuard, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("clips subscription is required")
	}
	if writer == nil {
		return nil, errors.New("analytics writer is required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, writer: writer, guard: guard, logg: logg}, nil
}

type processResult struct {
	nack bool
}

// Run consumes messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	event, err := decodeEvent(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "invalid clip event")
		return processResult{}
	}
	fields["event_id"] = event.EventID.String()
	fields["event_type"] = string(event.EventType)
	fields["aggregate_id"] = event.AggregateID.String()
	logCtx = s.logg.WithFields(ctx, fields)

	already, err := s.guard.Claim(logCtx, consumerName, event.EventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency claim failed", err)
		return processResult{nack: true}
	}
	if already {
		s.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	row, err := BuildRow(*event)
	if err != nil {
		// A payload that cannot be decoded will never succeed on redelivery.
		s.logg.Error(logCtx, "build clip event row", err)
		s.release(logCtx, event.EventID)
		return processResult{}
	}

	if err := s.writer.Insert(logCtx, row); err != nil {
		s.logg.Error(logCtx, "insert clip event row", err)
		s.release(logCtx, event.EventID)
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "clip event recorded")
	return processResult{}
}

func (s *Service) release(ctx context.Context, eventID uuid.UUID) {
	if err := s.guard.Release(ctx, consumerName, eventID); err != nil {
		s.logg.Error(ctx, "release idempotency claim", err)
	}
}

// decodeEvent reads the stored payload envelope plus the attributes the outbox
// publisher stamps on every message.
func decodeEvent(msg *gcppubsub.Message) (*Event, error) {
	stored, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		return nil, err
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(strings.TrimSpace(msg.Attributes["aggregate_type"]))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID, err := uuid.Parse(strings.TrimSpace(msg.Attributes["aggregate_id"]))
	if err != nil {
		return nil, fmt.Errorf("aggregate_id: %w", err)
	}

	rawID := strings.TrimSpace(stored.EventID)
	if rawID == "" {
		rawID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("event_id: %w", err)
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := strings.TrimSpace(msg.Attributes["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	return &Event{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Data:          stored.Data,
	}, nil
}
