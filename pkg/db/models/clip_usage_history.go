package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/enums"
)

// ClipUsageHistory is an immutable audit row for every clip-affecting event.
type ClipUsageHistory struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID  uuid.UUID       `gorm:"column:business_id;type:uuid;not null"`
	ProjectID   *uuid.UUID      `gorm:"column:project_id;type:uuid"`
	ClipsUsed   int             `gorm:"column:clips_used;not null"`
	UsageType   enums.UsageType `gorm:"column:usage_type;type:clip_usage_type;not null"`
	Description string          `gorm:"column:description"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (ClipUsageHistory) TableName() string { return "clip_usage_histories" }
