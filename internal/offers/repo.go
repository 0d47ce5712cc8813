package offers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/pkg/db/models"
)

// UniqueOfferConstraint guards one offer per business and project.
const UniqueOfferConstraint = "ux_offers_business_project"

// Repository persists projects and the offers businesses make on them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	OfferExists(ctx context.Context, businessID, projectID uuid.UUID) (bool, error)
	CreateOffer(ctx context.Context, offer *models.Offer) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an offers repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &project, nil
}

func (r *repository) OfferExists(ctx context.Context, businessID, projectID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("business_id = ? AND project_id = ?", businessID, projectID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CreateOffer(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}
