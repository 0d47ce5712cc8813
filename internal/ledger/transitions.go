package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/internal/clips"
	"github.com/angelmondragon/clips-backend/internal/usage"
	"github.com/angelmondragon/clips-backend/pkg/config"
	dbpkg "github.com/angelmondragon/clips-backend/pkg/db"
	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/clips-backend/pkg/types"
)

// AssignPlanInput is an admin assignment of a catalog plan to a business.
// Nil overrides fall back to the plan's own values.
type AssignPlanInput struct {
	BusinessID      uuid.UUID
	PlanID          uuid.UUID
	ValidityDays    *string
	MonthlyDuration *int
	Price           *decimal.Decimal
	Actor           *outbox.ActorRef
}

// RenewInput restarts a lapsed plan window.
type RenewInput struct {
	BusinessID      uuid.UUID
	PlanID          uuid.UUID
	ValidityDays    *string
	MonthlyDuration *int
	Price           *decimal.Decimal
	Actor           *outbox.ActorRef
}

// RefillInput buys a top-up once the current month is spent.
type RefillInput struct {
	BusinessID uuid.UUID
	Clip       int
	Price      decimal.Decimal
	Actor      *outbox.ActorRef
}

// UpdatePaymentInput records the admin's payment decision on an entry.
type UpdatePaymentInput struct {
	EntryID      uuid.UUID
	Status       string
	Price        *decimal.Decimal
	ValidityDays *string
	Actor        *outbox.ActorRef
}

// RequestPlan opens a pending entry for a plan the business wants. No clips
// are granted until an admin marks the payment received.
func (s *Service) RequestPlan(ctx context.Context, businessID, planID uuid.UUID, actor *outbox.ActorRef) (*EntryDTO, error) {
	business, err := s.loadBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if business.PlanAssigned {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a plan is already assigned to this business")
	}
	plan, err := s.plans.LoadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	entry := &models.BusinessClip{
		ID:             uuid.New(),
		BusinessID:     businessID,
		SubscriptionID: &plan.ID,
		Package:        snapshot(plan, plan.ValidityDays, plan.MonthlyDuration, plan.TotalClips, plan.Price),
		RemainingClips: 0,
		MonthHistory:   types.MonthHistory{},
		PurchasedAt:    timePtr(now),
		Status:         enums.ClipStatusActive,
		PaymentStatus:  enums.ClipPaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.supersedeActive(ctx, tx, businessID, now); err != nil {
			return err
		}
		if err := s.createEntry(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.users.WithTx(tx).SetPlanAssigned(ctx, businessID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag plan assigned")
		}
		return s.emitPlanEvent(ctx, tx, enums.EventClipPlanRequested, entry, actor)
	})
	if err != nil {
		return nil, err
	}
	dto := toEntryDTO(*entry, now)
	return &dto, nil
}

// AssignPlan grants a plan directly. A live entry blocks the assignment; an
// active entry whose window already closed is expired first.
func (s *Service) AssignPlan(ctx context.Context, input AssignPlanInput) (*EntryDTO, error) {
	if _, err := s.loadBusiness(ctx, input.BusinessID); err != nil {
		return nil, err
	}
	plan, err := s.plans.LoadPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	validity, monthly, price, err := resolveTerms(plan, input.ValidityDays, input.MonthlyDuration, input.Price)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	alloc := clips.Allocate(now, validity, monthly)
	entry := &models.BusinessClip{
		ID:             uuid.New(),
		BusinessID:     input.BusinessID,
		SubscriptionID: &plan.ID,
		Package:        snapshot(plan, validity, monthly, alloc.TotalClips, price),
		RemainingClips: alloc.TotalClips,
		MonthHistory:   alloc.MonthHistory,
		PurchasedAt:    timePtr(alloc.PurchasedAt),
		ExpiryDate:     timePtr(alloc.ExpiryDate),
		Status:         enums.ClipStatusActive,
		PaymentStatus:  enums.ClipPaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.supersedeActive(ctx, tx, input.BusinessID, now); err != nil {
			return err
		}
		if err := s.createEntry(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.users.WithTx(tx).SetPlanAssigned(ctx, input.BusinessID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag plan assigned")
		}
		return s.emitPlanEvent(ctx, tx, enums.EventClipPlanAssigned, entry, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	dto := toEntryDTO(*entry, now)
	return &dto, nil
}

// Renew restarts the business's plan once its window has closed. The latest
// entry is overwritten in place, or created when the business never had one.
func (s *Service) Renew(ctx context.Context, input RenewInput) (*EntryDTO, error) {
	if _, err := s.loadBusiness(ctx, input.BusinessID); err != nil {
		return nil, err
	}
	plan, err := s.plans.LoadPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	validity, monthly, price, err := resolveTerms(plan, input.ValidityDays, input.MonthlyDuration, input.Price)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	alloc := clips.Allocate(now, validity, monthly)
	var entry *models.BusinessClip

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := s.currentOrLatest(ctx, repo, input.BusinessID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ExpiryDate != nil && existing.ExpiryDate.After(now) {
			return pkgerrors.New(pkgerrors.CodeConflict, "current plan has not expired yet")
		}

		if existing == nil {
			entry = &models.BusinessClip{
				ID:         uuid.New(),
				BusinessID: input.BusinessID,
				CreatedAt:  now,
			}
		} else {
			entry = existing
		}
		entry.SubscriptionID = &plan.ID
		entry.Package = snapshot(plan, validity, monthly, alloc.TotalClips, price)
		entry.RemainingClips = alloc.TotalClips
		entry.MonthHistory = alloc.MonthHistory
		entry.PurchasedAt = timePtr(alloc.PurchasedAt)
		entry.ExpiryDate = timePtr(alloc.ExpiryDate)
		entry.Status = enums.ClipStatusActive
		entry.PaymentStatus = enums.ClipPaymentPending
		entry.UpdatedAt = now

		if existing == nil {
			if err := s.createEntry(ctx, tx, entry); err != nil {
				return err
			}
		} else if err := repo.Save(ctx, entry); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "business already has an active plan")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save renewed plan")
		}

		renewal := &models.ClipRenewal{
			ID:              uuid.New(),
			BusinessID:      input.BusinessID,
			SubscriptionID:  plan.ID,
			ValidityDays:    validity,
			MonthlyDuration: monthly,
			Status:          enums.ClipStatusActive,
			CreatedAt:       now,
		}
		if err := repo.CreateRenewal(ctx, renewal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record renewal")
		}
		if err := s.users.WithTx(tx).SetPlanState(ctx, input.BusinessID, true, enums.AccountPaymentPending); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account plan state")
		}
		return s.emitPlanEvent(ctx, tx, enums.EventClipPlanRenewed, entry, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	dto := toEntryDTO(*entry, now)
	return &dto, nil
}

// Refill records a top-up. It is refused while the current month still holds
// clips; with no current month the purchase goes through.
func (s *Service) Refill(ctx context.Context, input RefillInput) (*RefillDTO, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	details := map[string]string{}
	if input.Clip < 1 {
		details["clip"] = "must be at least 1"
	}
	if input.Price.IsNegative() {
		details["price"] = "must not be negative"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refill").WithDetails(details)
	}

	now := s.clock()
	var refill *models.ClipRefill
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindActive(ctx, input.BusinessID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active plan")
		}
		if entry == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "business clip not found")
		}
		if clips.CurrentBucketClips(entry.MonthHistory, now) > 0 {
			return pkgerrors.New(pkgerrors.CodePrecondition, "current month still has clips available")
		}

		refill = &models.ClipRefill{
			ID:          uuid.New(),
			BusinessID:  input.BusinessID,
			Clip:        input.Clip,
			Price:       input.Price,
			ExpiryDate:  clips.ExpiryPreview(now, entry.MonthHistory, entry.ExpiryDate),
			PurchasedAt: now,
			CreatedAt:   now,
		}
		if err := repo.CreateRefill(ctx, refill); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refill")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventClipRefillPurchased,
			AggregateType: enums.AggregateClipRefill,
			AggregateID:   refill.ID,
			Actor:         input.Actor,
			OccurredAt:    now,
			Data: payloads.ClipRefillPurchasedEvent{
				RefillID:   refill.ID,
				BusinessID: refill.BusinessID,
				Clip:       refill.Clip,
				Price:      refill.Price,
				ExpiryDate: refill.ExpiryDate,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &RefillDTO{
		ID:          refill.ID,
		BusinessID:  refill.BusinessID,
		Clip:        refill.Clip,
		Price:       refill.Price,
		ExpiryDate:  refill.ExpiryDate,
		PurchasedAt: refill.PurchasedAt,
	}, nil
}

// UpdatePayment applies the admin's payment decision. A received payment
// restarts the plan window from the configured anchor and grants the clips.
func (s *Service) UpdatePayment(ctx context.Context, input UpdatePaymentInput) (*EntryDTO, error) {
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	status, err := enums.ParseClipPaymentStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if err != nil || status == enums.ClipPaymentPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment status must be received or rejected")
	}
	if input.Price != nil && input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.ValidityDays != nil {
		if err := clips.CheckValidity(*input.ValidityDays); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity_days "+err.Error())
		}
	}

	now := s.clock()
	var entry *models.BusinessClip
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		accounts := s.users.WithTx(tx)
		loaded, err := repo.LockByID(ctx, input.EntryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
		}
		if loaded == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		if loaded.Status != enums.ClipStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase has already expired")
		}
		// A received entry already holds its allocation; granting again would
		// double the balance.
		if loaded.PaymentStatus == enums.ClipPaymentReceived && status == enums.ClipPaymentReceived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already received")
		}
		entry = loaded

		if input.Price != nil {
			entry.Package.Price = *input.Price
		}
		entry.PaymentStatus = status
		entry.UpdatedAt = now

		if status == enums.ClipPaymentRejected {
			if err := repo.Save(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment status")
			}
			if err := accounts.SetPaymentStatus(ctx, entry.BusinessID, enums.AccountPaymentRejected); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account payment status")
			}
			return s.emitPaymentEvent(ctx, tx, entry, input.Actor)
		}

		if input.ValidityDays != nil {
			entry.Package.ValidityDays = strings.TrimSpace(*input.ValidityDays)
		}
		alloc := clips.Allocate(s.paymentAnchorFor(entry, now), entry.Package.ValidityDays, entry.Package.MonthlyDuration)
		entry.Package.TotalClips = alloc.TotalClips
		entry.RemainingClips = alloc.TotalClips
		entry.MonthHistory = alloc.MonthHistory
		entry.PurchasedAt = timePtr(alloc.PurchasedAt)
		entry.ExpiryDate = timePtr(alloc.ExpiryDate)

		if err := repo.Save(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payment status")
		}
		if err := accounts.SetPlanState(ctx, entry.BusinessID, true, enums.AccountPaymentReceived); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account plan state")
		}
		if _, err := s.usage.Record(ctx, tx, usage.RecordInput{
			BusinessID:  entry.BusinessID,
			ClipsUsed:   entry.RemainingClips,
			UsageType:   enums.UsageTypePurchased,
			Description: entry.Package.Name,
		}); err != nil {
			return err
		}
		return s.emitPaymentEvent(ctx, tx, entry, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	dto := toEntryDTO(*entry, now)
	return &dto, nil
}

func (s *Service) paymentAnchorFor(entry *models.BusinessClip, now time.Time) time.Time {
	if s.paymentAnchor == config.PaymentAnchorPurchasedAt && entry.PurchasedAt != nil && !entry.PurchasedAt.IsZero() {
		return entry.PurchasedAt.UTC()
	}
	return now
}

// supersedeActive makes room for a new entry. A live entry is a conflict; an
// active entry whose window closed (or never opened) is expired.
func (s *Service) supersedeActive(ctx context.Context, tx *gorm.DB, businessID uuid.UUID, now time.Time) error {
	active, err := s.repo.WithTx(tx).FindActive(ctx, businessID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active plan")
	}
	if active == nil {
		return nil
	}
	if active.IsLive(now) {
		return pkgerrors.New(pkgerrors.CodeConflict, "business already has an active plan")
	}
	_, err = s.expireInTx(ctx, tx, active, now)
	return err
}

func (s *Service) createEntry(ctx context.Context, tx *gorm.DB, entry *models.BusinessClip) error {
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "business already has an active plan")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create business clip")
	}
	return nil
}

func resolveTerms(plan *models.ClipSubscription, validity *string, monthly *int, price *decimal.Decimal) (string, int, decimal.Decimal, error) {
	resolvedValidity, resolvedMonthly, resolvedPrice := plan.ValidityDays, plan.MonthlyDuration, plan.Price
	if validity != nil && strings.TrimSpace(*validity) != "" {
		resolvedValidity = strings.TrimSpace(*validity)
	}
	if monthly != nil {
		resolvedMonthly = *monthly
	}
	if price != nil {
		resolvedPrice = *price
	}

	details := map[string]string{}
	if err := clips.CheckValidity(resolvedValidity); err != nil {
		details["validity_days"] = err.Error()
	}
	if resolvedMonthly < 1 {
		details["monthly_duration"] = "must be at least 1"
	}
	if resolvedPrice.IsNegative() {
		details["price"] = "must not be negative"
	}
	if len(details) > 0 {
		return "", 0, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan terms").WithDetails(details)
	}
	return resolvedValidity, resolvedMonthly, resolvedPrice, nil
}

func planEvent(entry *models.BusinessClip) payloads.ClipPlanEvent {
	return payloads.ClipPlanEvent{
		ClipID:         entry.ID,
		BusinessID:     entry.BusinessID,
		SubscriptionID: entry.SubscriptionID,
		PackageName:    entry.Package.Name,
		TotalClips:     entry.Package.TotalClips,
		RemainingClips: entry.RemainingClips,
		ExpiryDate:     entry.ExpiryDate,
		Status:         entry.Status,
		PaymentStatus:  entry.PaymentStatus,
	}
}

func (s *Service) emitPlanEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, entry *models.BusinessClip, actor *outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBusinessClip,
		AggregateID:   entry.ID,
		Actor:         actor,
		OccurredAt:    entry.UpdatedAt,
		Data:          planEvent(entry),
	})
}

func (s *Service) emitPaymentEvent(ctx context.Context, tx *gorm.DB, entry *models.BusinessClip, actor *outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventClipPaymentUpdated,
		AggregateType: enums.AggregateBusinessClip,
		AggregateID:   entry.ID,
		Actor:         actor,
		OccurredAt:    entry.UpdatedAt,
		Data: payloads.ClipPaymentUpdatedEvent{
			ClipID:         entry.ID,
			BusinessID:     entry.BusinessID,
			PaymentStatus:  entry.PaymentStatus,
			RemainingClips: entry.RemainingClips,
			ExpiryDate:     entry.ExpiryDate,
		},
	})
}
