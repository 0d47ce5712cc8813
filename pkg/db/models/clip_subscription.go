package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClipSubscription is an admin-defined plan template in the clip catalog.
type ClipSubscription struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PackageName        string          `gorm:"column:package_name;not null"`
	PackageDescription string          `gorm:"column:package_description"`
	Price              decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	TotalClips         int             `gorm:"column:total_clips;not null;default:0"`
	ValidityDays       string          `gorm:"column:validity_days;not null"`
	MonthlyDuration    int             `gorm:"column:monthly_duration;not null;default:0"`
	IsDeleted          bool            `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (ClipSubscription) TableName() string { return "clip_subscriptions" }
