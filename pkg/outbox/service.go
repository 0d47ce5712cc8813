package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/logger"
)

// DomainEvent is a ledger state change to be relayed once its transaction
// commits. Data is marshalled into the envelope as-is.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	// Version defaults to EnvelopeVersion.
	Version    int
	OccurredAt time.Time
}

type rowInserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

type Service struct {
	rows rowInserter
	logg *logger.Logger
	now  func() time.Time
}

func NewService(rows rowInserter, logg *logger.Logger) *Service {
	return &Service{rows: rows, logg: logg, now: time.Now}
}

// Emit queues the event in the caller's transaction so it commits or rolls
// back together with the state change it describes.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	row, env, err := s.toRow(event)
	if err != nil {
		return err
	}
	if err := s.rows.Insert(tx, row); err != nil {
		return fmt.Errorf("queue %s: %w", event.EventType, err)
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":       env.EventID,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

func (s *Service) toRow(event DomainEvent) (models.OutboxEvent, Envelope, error) {
	if !event.EventType.IsValid() {
		return models.OutboxEvent{}, Envelope{}, fmt.Errorf("unknown outbox event type %q", event.EventType)
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, Envelope{}, fmt.Errorf("marshal %s payload: %w", event.EventType, err)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	env := Envelope{
		Version:    max(event.Version, EnvelopeVersion),
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, Envelope{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       body,
		CreatedAt:     env.OccurredAt,
	}, env, nil
}
