package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/clips-backend/pkg/enums"
)

// ClipPlanEvent describes a ledger entry after a plan request, assignment or renewal.
type ClipPlanEvent struct {
	ClipID         uuid.UUID               `json:"clip_id"`
	BusinessID     uuid.UUID               `json:"business_id"`
	SubscriptionID *uuid.UUID              `json:"subscription_id,omitempty"`
	PackageName    string                  `json:"package_name"`
	TotalClips     int                     `json:"total_clips"`
	RemainingClips int                     `json:"remaining_clips"`
	ExpiryDate     *time.Time              `json:"expiry_date,omitempty"`
	Status         enums.ClipStatus        `json:"status"`
	PaymentStatus  enums.ClipPaymentStatus `json:"payment_status"`
}

// ClipRefillPurchasedEvent is emitted when a business buys a top-up.
type ClipRefillPurchasedEvent struct {
	RefillID   uuid.UUID       `json:"refill_id"`
	BusinessID uuid.UUID       `json:"business_id"`
	Clip       int             `json:"clip"`
	Price      decimal.Decimal `json:"price"`
	ExpiryDate time.Time       `json:"expiry_date"`
}

// ClipPaymentUpdatedEvent records an admin payment decision on an entry.
type ClipPaymentUpdatedEvent struct {
	ClipID         uuid.UUID               `json:"clip_id"`
	BusinessID     uuid.UUID               `json:"business_id"`
	PaymentStatus  enums.ClipPaymentStatus `json:"payment_status"`
	RemainingClips int                     `json:"remaining_clips"`
	ExpiryDate     *time.Time              `json:"expiry_date,omitempty"`
}

// ClipPlanExpiredEvent is emitted by the sweep when an entry lapses.
type ClipPlanExpiredEvent struct {
	ClipID         uuid.UUID `json:"clip_id"`
	BusinessID     uuid.UUID `json:"business_id"`
	RemainingClips int       `json:"remaining_clips"`
	ExpiredAt      time.Time `json:"expired_at"`
}

// ClipConsumedEvent is emitted when an application spends a clip.
type ClipConsumedEvent struct {
	ClipID         uuid.UUID `json:"clip_id"`
	BusinessID     uuid.UUID `json:"business_id"`
	ProjectID      uuid.UUID `json:"project_id"`
	OfferID        uuid.UUID `json:"offer_id"`
	RemainingClips int       `json:"remaining_clips"`
	BucketClips    *int      `json:"bucket_clips,omitempty"`
}
