package consumption

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/internal/clips"
	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/internal/offers"
	"github.com/angelmondragon/clips-backend/internal/usage"
	dbpkg "github.com/angelmondragon/clips-backend/pkg/db"
	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/metrics"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/clips-backend/pkg/types"
)

const maxMessageLength = 2000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type usageRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input usage.RecordInput) (*models.ClipUsageHistory, error)
}

type accountReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams groups dependencies for the consumption gate.
type ServiceParams struct {
	Ledger  ledger.Repository
	Users   accountReader
	Offers  offers.Repository
	Usage   usageRecorder
	Outbox  outboxPublisher
	Tx      txRunner
	Metrics *metrics.ClipMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// Service spends one clip per project application.
type Service struct {
	ledger  ledger.Repository
	users   accountReader
	offers  offers.Repository
	usage   usageRecorder
	outbox  outboxPublisher
	tx      txRunner
	metrics *metrics.ClipMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the consumption gate.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, errors.New("ledger repository required")
	}
	if params.Users == nil {
		return nil, errors.New("account reader required")
	}
	if params.Offers == nil {
		return nil, errors.New("offers repository required")
	}
	if params.Usage == nil {
		return nil, errors.New("usage recorder required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		ledger:  params.Ledger,
		users:   params.Users,
		offers:  params.Offers,
		usage:   params.Usage,
		outbox:  params.Outbox,
		tx:      params.Tx,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// ApplyInput is a business's application to a project.
type ApplyInput struct {
	BusinessID uuid.UUID
	ProjectID  uuid.UUID
	Message    string
	Actor      *outbox.ActorRef
}

// ApplyResult reports the offer created and the balance left after the spend.
type ApplyResult struct {
	OfferID               uuid.UUID `json:"offer_id"`
	ProjectID             uuid.UUID `json:"project_id"`
	ClipID                uuid.UUID `json:"clip_id"`
	RemainingClips        int       `json:"remaining_clips"`
	MonthlyRemainingClips int       `json:"monthly_remaining_clips"`
}

// Apply checks the account and balance, then spends one clip and records the
// offer in a single transaction.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required").
			WithDetails(map[string]any{"field": "project_id"})
	}
	message := strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is too long").
			WithDetails(map[string]any{"field": "message", "max": maxMessageLength})
	}

	account, err := s.users.FindByID(ctx, input.BusinessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business account")
	}
	if !account.CanSpendClips() {
		s.metrics.IncRejected(metrics.RejectNoActivePlan)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active plan")
	}

	now := s.now().UTC()
	entry, err := s.ledger.FindActive(ctx, input.BusinessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active plan")
	}
	// An entry past its expiry date counts as gone even before the sweep
	// flips its status.
	if entry == nil || entry.PaymentStatus != enums.ClipPaymentReceived || !entry.IsLive(now) {
		s.metrics.IncRejected(metrics.RejectNoActivePlan)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active plan")
	}
	if entry.RemainingClips < 1 {
		s.metrics.IncRejected(metrics.RejectNoBalance)
		return nil, noBalance(entry)
	}

	project, err := s.offers.FindProject(ctx, input.ProjectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	if project == nil {
		s.metrics.IncRejected(metrics.RejectProjectMissing)
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
	}
	exists, err := s.offers.OfferExists(ctx, input.BusinessID, input.ProjectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing offer")
	}
	if exists {
		s.metrics.IncRejected(metrics.RejectDuplicateOffer)
		return nil, duplicateOffer(input.ProjectID)
	}

	result := &ApplyResult{ProjectID: project.ID, ClipID: entry.ID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledger.WithTx(tx)
		spent, err := repo.DecrementRemaining(ctx, entry.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement clip balance")
		}
		if !spent {
			s.metrics.IncRejected(metrics.RejectLostRace)
			return noBalance(entry)
		}

		current, err := repo.FindByID(ctx, entry.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload business clip")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeInternal, "business clip vanished during spend")
		}
		history, decremented := spendFromBucket(current.MonthHistory, now)
		if decremented {
			if err := repo.UpdateMonthHistory(ctx, current.ID, history); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update month history")
			}
		}

		offer := &models.Offer{
			ID:         uuid.New(),
			BusinessID: input.BusinessID,
			ProjectID:  project.ID,
			Message:    message,
			CreatedAt:  now,
		}
		if err := s.offers.WithTx(tx).CreateOffer(ctx, offer); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				s.metrics.IncRejected(metrics.RejectDuplicateOffer)
				return duplicateOffer(project.ID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer")
		}

		projectID := project.ID
		if _, err := s.usage.Record(ctx, tx, usage.RecordInput{
			BusinessID:  input.BusinessID,
			ProjectID:   &projectID,
			ClipsUsed:   1,
			UsageType:   enums.UsageTypeApplied,
			Description: project.Title,
		}); err != nil {
			return err
		}

		result.OfferID = offer.ID
		result.RemainingClips = current.RemainingClips
		result.MonthlyRemainingClips = clips.CurrentBucketClips(history, now)

		var bucketClips *int
		if idx := clips.CurrentBucketIndex(history, now); idx >= 0 {
			left := history[idx].Clip
			bucketClips = &left
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventClipConsumed,
			AggregateType: enums.AggregateBusinessClip,
			AggregateID:   current.ID,
			Actor:         input.Actor,
			OccurredAt:    now,
			Data: payloads.ClipConsumedEvent{
				ClipID:         current.ID,
				BusinessID:     input.BusinessID,
				ProjectID:      project.ID,
				OfferID:        offer.ID,
				RemainingClips: current.RemainingClips,
				BucketClips:    bucketClips,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncConsumed()
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"business_id":     input.BusinessID.String(),
			"project_id":      project.ID.String(),
			"clip_id":         entry.ID.String(),
			"remaining_clips": result.RemainingClips,
		}), "clip consumed")
	}
	return result, nil
}

// spendFromBucket takes one clip from the bucket covering now. The bucket is
// decremented even when it is already at or below zero, so the buckets keep
// summing to the remaining balance. A history with no bucket for now is left
// untouched.
func spendFromBucket(history types.MonthHistory, now time.Time) (types.MonthHistory, bool) {
	idx := clips.CurrentBucketIndex(history, now)
	if idx < 0 {
		return history, false
	}
	out := make(types.MonthHistory, len(history))
	copy(out, history)
	out[idx].Clip--
	return out, true
}

func noBalance(entry *models.BusinessClip) error {
	return pkgerrors.New(pkgerrors.CodePrecondition, "no clips remaining").
		WithDetails(map[string]any{"clip_id": entry.ID.String()})
}

func duplicateOffer(projectID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "offer already exists for project").
		WithDetails(map[string]any{"project_id": projectID.String()})
}
