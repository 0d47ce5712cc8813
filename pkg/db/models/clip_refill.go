package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClipRefill is an out-of-band top-up bought once the current month is exhausted.
type ClipRefill struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID  uuid.UUID       `gorm:"column:business_id;type:uuid;not null"`
	Clip        int             `gorm:"column:clip;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	ExpiryDate  time.Time       `gorm:"column:expiry_date;not null"`
	PurchasedAt time.Time       `gorm:"column:purchased_at;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (ClipRefill) TableName() string { return "clip_refills" }
