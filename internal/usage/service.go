package usage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the usage service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

// Service records and lists clip usage. Records are never updated or deleted.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a usage service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("usage repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: params.Repo, now: now}, nil
}

// RecordInput describes one usage row.
type RecordInput struct {
	BusinessID  uuid.UUID
	ProjectID   *uuid.UUID
	ClipsUsed   int
	UsageType   enums.UsageType
	Description string
}

// ListParams filters a usage listing.
type ListParams struct {
	UsageType  string
	Pagination pagination.Params
}

// UsageDTO is the listing view of a usage record.
type UsageDTO struct {
	ID           uuid.UUID       `json:"id"`
	BusinessID   uuid.UUID       `json:"business_id"`
	ProjectID    *uuid.UUID      `json:"project_id,omitempty"`
	ProjectTitle *string         `json:"project_title"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ClipsUsed    int             `json:"clips_used"`
	UsageType    enums.UsageType `json:"usage_type"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Record appends a usage row inside the caller's transaction.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.ClipUsageHistory, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if !input.UsageType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid usage type")
	}
	if input.ClipsUsed < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "clips used must not be negative")
	}

	record := &models.ClipUsageHistory{
		ID:          uuid.New(),
		BusinessID:  input.BusinessID,
		ProjectID:   input.ProjectID,
		ClipsUsed:   input.ClipsUsed,
		UsageType:   input.UsageType,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record clip usage")
	}
	return record, nil
}

// List pages through one business's usage, newest first unless sorted otherwise.
func (s *Service) List(ctx context.Context, businessID uuid.UUID, params ListParams) (pagination.Page[UsageDTO], error) {
	if businessID == uuid.Nil {
		return pagination.Page[UsageDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	query := ListQuery{BusinessID: businessID, Params: params.Pagination.Normalize()}
	if raw := strings.TrimSpace(params.UsageType); raw != "" {
		usageType, err := enums.ParseUsageType(raw)
		if err != nil {
			return pagination.Page[UsageDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid usage_type").
				WithDetails(map[string]any{"field": "usage_type"})
		}
		query.UsageType = &usageType
	}

	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		return pagination.Page[UsageDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list clip usage")
	}
	items := make([]UsageDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, UsageDTO{
			ID:           row.ID,
			BusinessID:   row.BusinessID,
			ProjectID:    row.ProjectID,
			ProjectTitle: row.ProjectTitle,
			Title:        row.Description,
			Description:  row.Description,
			ClipsUsed:    row.ClipsUsed,
			UsageType:    row.UsageType,
			CreatedAt:    row.CreatedAt,
		})
	}
	return pagination.NewPage(query.Params, total, items), nil
}
