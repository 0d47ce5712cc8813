package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

var usageSortColumns = map[string]string{
	"created_at": "clip_usage_histories.created_at",
	"clips_used": "clip_usage_histories.clips_used",
	"usage_type": "clip_usage_histories.usage_type",
}

// ListQuery narrows a usage listing to one business.
type ListQuery struct {
	BusinessID uuid.UUID
	UsageType  *enums.UsageType
	Params     pagination.Params
}

// Row is a usage record joined with the title of the project it was spent on.
type Row struct {
	ID           uuid.UUID       `gorm:"column:id"`
	BusinessID   uuid.UUID       `gorm:"column:business_id"`
	ProjectID    *uuid.UUID      `gorm:"column:project_id"`
	ClipsUsed    int             `gorm:"column:clips_used"`
	UsageType    enums.UsageType `gorm:"column:usage_type"`
	Description  string          `gorm:"column:description"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	ProjectTitle *string         `gorm:"column:project_title"`
}

// Repository is the append-only store for clip usage.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.ClipUsageHistory) error
	List(ctx context.Context, query ListQuery) ([]Row, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a usage repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.ClipUsageHistory) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]Row, int64, error) {
	params := query.Params.Normalize()
	base := r.db.WithContext(ctx).
		Model(&models.ClipUsageHistory{}).
		Where("clip_usage_histories.business_id = ?", query.BusinessID)
	if query.UsageType != nil {
		base = base.Where("clip_usage_histories.usage_type = ?", *query.UsageType)
	}
	if params.Search != "" {
		like := pagination.ContainsPattern(params.Search)
		base = base.Where(
			`LOWER(CAST(clip_usage_histories.usage_type AS TEXT)) LIKE ? ESCAPE '\' OR LOWER(clip_usage_histories.description) LIKE ? ESCAPE '\' OR CAST(clip_usage_histories.clips_used AS TEXT) LIKE ? ESCAPE '\'`,
			like, like, like,
		)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Row
	if err := base.
		Select("clip_usage_histories.id, clip_usage_histories.business_id, clip_usage_histories.project_id, clip_usage_histories.clips_used, clip_usage_histories.usage_type, clip_usage_histories.description, clip_usage_histories.created_at, projects.title AS project_title").
		Joins("LEFT JOIN projects ON projects.id = clip_usage_histories.project_id").
		Order(pagination.OrderClause(params, usageSortColumns, "clip_usage_histories.created_at")).
		Order("clip_usage_histories.id ASC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
