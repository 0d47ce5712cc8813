package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/types"
)

// PackageDetails is the plan snapshot frozen onto a ledger entry at purchase time.
type PackageDetails struct {
	Name            string          `gorm:"column:name"`
	Description     string          `gorm:"column:description"`
	TotalClips      int             `gorm:"column:total_clips;not null;default:0"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	ValidityDays    string          `gorm:"column:validity_days"`
	MonthlyDuration int             `gorm:"column:monthly_duration;not null;default:0"`
}

// BusinessClip is the per-business clip ledger entry.
type BusinessClip struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID     uuid.UUID               `gorm:"column:business_id;type:uuid;not null"`
	SubscriptionID *uuid.UUID              `gorm:"column:subscription_id;type:uuid"`
	Package        PackageDetails          `gorm:"embedded;embeddedPrefix:package_"`
	RemainingClips int                     `gorm:"column:remaining_clips;not null;default:0"`
	MonthHistory   types.MonthHistory      `gorm:"column:month_history;type:jsonb;serializer:json"`
	PurchasedAt    *time.Time              `gorm:"column:purchased_at"`
	ExpiryDate     *time.Time              `gorm:"column:expiry_date"`
	Status         enums.ClipStatus        `gorm:"column:status;type:clip_status;not null;default:'active'"`
	PaymentStatus  enums.ClipPaymentStatus `gorm:"column:payment_status;type:clip_payment_status;not null;default:'pending'"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (BusinessClip) TableName() string { return "business_clips" }

// IsLive reports whether the entry is active and its window has not closed yet.
func (b *BusinessClip) IsLive(now time.Time) bool {
	if b == nil || b.Status != enums.ClipStatusActive {
		return false
	}
	return b.ExpiryDate != nil && b.ExpiryDate.After(now)
}
