package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
)

// ClipRenewal audits each renewal applied to a business ledger entry.
type ClipRenewal struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID      uuid.UUID        `gorm:"column:business_id;type:uuid;not null"`
	SubscriptionID  uuid.UUID        `gorm:"column:subscription_id;type:uuid;not null"`
	ValidityDays    string           `gorm:"column:validity_days;not null"`
	MonthlyDuration int              `gorm:"column:monthly_duration;not null;default:0"`
	Status          enums.ClipStatus `gorm:"column:status;type:clip_status;not null;default:'active'"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (ClipRenewal) TableName() string { return "clip_renewals" }
