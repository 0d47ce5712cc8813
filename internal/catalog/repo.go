package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

const uniquePlanNameConstraint = "ux_clip_subscriptions_package_name"

var planSortColumns = map[string]string{
	"package_name":     "package_name",
	"price":            "price",
	"total_clips":      "total_clips",
	"validity_days":    "validity_days",
	"monthly_duration": "monthly_duration",
	"created_at":       "created_at",
}

// Repository persists catalog plans.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, plan *models.ClipSubscription) error
	Save(ctx context.Context, plan *models.ClipSubscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ClipSubscription, error)
	NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, params pagination.Params) ([]models.ClipSubscription, int64, error)
	ActiveEntryForBusiness(ctx context.Context, businessID uuid.UUID) (*models.BusinessClip, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a catalog repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, plan *models.ClipSubscription) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *repository) Save(ctx context.Context, plan *models.ClipSubscription) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// FindByID returns nil when the plan is missing or soft-deleted.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ClipSubscription, error) {
	var plan models.ClipSubscription
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ClipSubscription{}).
		Where("LOWER(package_name) = ? AND is_deleted = ?", strings.ToLower(strings.TrimSpace(name)), false)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ClipSubscription{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]any{"is_deleted": true})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.ClipSubscription, int64, error) {
	params = params.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.ClipSubscription{}).
		Where("is_deleted = ?", false)
	if params.Search != "" {
		like := pagination.ContainsPattern(params.Search)
		query = query.Where(
			`LOWER(package_name) LIKE ? ESCAPE '\' OR LOWER(validity_days) LIKE ? ESCAPE '\' OR CAST(price AS TEXT) LIKE ? ESCAPE '\' OR CAST(total_clips AS TEXT) LIKE ? ESCAPE '\'`,
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var plans []models.ClipSubscription
	if err := query.
		Order(pagination.OrderClause(params, planSortColumns, "created_at")).
		Order("id ASC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&plans).Error; err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

func (r *repository) ActiveEntryForBusiness(ctx context.Context, businessID uuid.UUID) (*models.BusinessClip, error) {
	var entry models.BusinessClip
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessID, enums.ClipStatusActive).
		First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}
