package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/outbox/payloads"
)

// ExpireIfDue expires the business's paid entry once its window has closed
// and clears the account's activation flags. Calling it again is a no-op.
func (s *Service) ExpireIfDue(ctx context.Context, businessID uuid.UUID) (bool, error) {
	if businessID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	now := s.clock()
	entry, err := s.repo.FindActive(ctx, businessID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active plan")
	}
	if !isDue(entry, now) {
		return false, nil
	}

	var expired bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		expired, err = s.expireInTx(ctx, tx, entry, now)
		return err
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// ExpireDue sweeps up to limit overdue entries, each in its own transaction.
// Failures are collected so one bad row does not stop the batch.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	now := s.clock()
	entries, err := s.repo.FindDueForExpiry(ctx, now, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due plans")
	}

	var (
		count int
		errs  error
	)
	for i := range entries {
		entry := entries[i]
		var expired bool
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			expired, err = s.expireInTx(ctx, tx, &entry, now)
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire business clip %s: %w", entry.ID, err))
			continue
		}
		if expired {
			count++
		}
	}
	return count, errs
}

func isDue(entry *models.BusinessClip, now time.Time) bool {
	return entry != nil &&
		entry.Status == enums.ClipStatusActive &&
		entry.PaymentStatus == enums.ClipPaymentReceived &&
		entry.ExpiryDate != nil &&
		entry.ExpiryDate.Before(now)
}

func (s *Service) expireInTx(ctx context.Context, tx *gorm.DB, entry *models.BusinessClip, now time.Time) (bool, error) {
	expired, err := s.repo.WithTx(tx).MarkExpired(ctx, entry.ID, now)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire business clip")
	}
	if !expired {
		return false, nil
	}
	if err := s.users.WithTx(tx).SetPlanState(ctx, entry.BusinessID, false, enums.AccountPaymentPending); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset account plan state")
	}
	entry.Status = enums.ClipStatusExpired
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventClipPlanExpired,
		AggregateType: enums.AggregateBusinessClip,
		AggregateID:   entry.ID,
		OccurredAt:    now,
		Data: payloads.ClipPlanExpiredEvent{
			ClipID:         entry.ID,
			BusinessID:     entry.BusinessID,
			RemainingClips: entry.RemainingClips,
			ExpiredAt:      now,
		},
	})
	if err != nil {
		return false, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"clip_id":     entry.ID.String(),
			"business_id": entry.BusinessID.String(),
		}), "business clip expired")
	}
	return true, nil
}
