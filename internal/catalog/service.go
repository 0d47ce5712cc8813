package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/clips-backend/internal/clips"
	dbpkg "github.com/angelmondragon/clips-backend/pkg/db"
	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

// Service manages the admin-defined clip plan catalog.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("catalog repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{repo: params.Repo, now: now}, nil
}

// CreatePlanInput describes a new plan. TotalClips is derived when omitted.
type CreatePlanInput struct {
	PackageName        string
	PackageDescription string
	Price              decimal.Decimal
	TotalClips         *int
	ValidityDays       string
	MonthlyDuration    int
}

// UpdatePlanInput carries a partial plan update; nil fields are left untouched.
type UpdatePlanInput struct {
	PackageName        *string
	PackageDescription *string
	Price              *decimal.Decimal
	TotalClips         *int
	ValidityDays       *string
	MonthlyDuration    *int
}

// PlanDTO is the catalog view of a plan.
type PlanDTO struct {
	ID                 uuid.UUID                `json:"id"`
	PackageName        string                   `json:"package_name"`
	PackageDescription string                   `json:"package_description"`
	Price              decimal.Decimal          `json:"price"`
	TotalClips         int                      `json:"total_clips"`
	ValidityDays       string                   `json:"validity_days"`
	MonthlyDuration    int                      `json:"monthly_duration"`
	PlanStatus         *enums.PlanRequestStatus `json:"plan_status,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

func toDTO(plan models.ClipSubscription) PlanDTO {
	return PlanDTO{
		ID:                 plan.ID,
		PackageName:        plan.PackageName,
		PackageDescription: plan.PackageDescription,
		Price:              plan.Price,
		TotalClips:         plan.TotalClips,
		ValidityDays:       plan.ValidityDays,
		MonthlyDuration:    plan.MonthlyDuration,
		CreatedAt:          plan.CreatedAt,
		UpdatedAt:          plan.UpdatedAt,
	}
}

func (s *Service) CreatePlan(ctx context.Context, input CreatePlanInput) (*PlanDTO, error) {
	name := strings.TrimSpace(input.PackageName)
	validity := strings.TrimSpace(input.ValidityDays)
	if err := validatePlanFields(name, input.Price, validity, input.MonthlyDuration, input.TotalClips); err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, name, nil); err != nil {
		return nil, err
	}

	total := clips.ValidityMonths(s.now().UTC(), validity) * input.MonthlyDuration
	if input.TotalClips != nil {
		total = *input.TotalClips
	}

	plan := &models.ClipSubscription{
		ID:                 uuid.New(),
		PackageName:        name,
		PackageDescription: strings.TrimSpace(input.PackageDescription),
		Price:              input.Price,
		TotalClips:         total,
		ValidityDays:       validity,
		MonthlyDuration:    input.MonthlyDuration,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		if dbpkg.IsUniqueViolation(err, uniquePlanNameConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a plan with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	dto := toDTO(*plan)
	return &dto, nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*plan)
	return &dto, nil
}

// ListPlans pages through non-deleted plans. When businessID is set every item
// carries the plan_status seen by that business.
func (s *Service) ListPlans(ctx context.Context, businessID *uuid.UUID, params pagination.Params) (pagination.Page[PlanDTO], error) {
	params = params.Normalize()
	plans, total, err := s.repo.List(ctx, params)
	if err != nil {
		return pagination.Page[PlanDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}

	var active *models.BusinessClip
	if businessID != nil {
		active, err = s.repo.ActiveEntryForBusiness(ctx, *businessID)
		if err != nil {
			return pagination.Page[PlanDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active plan")
		}
	}

	items := make([]PlanDTO, 0, len(plans))
	for _, plan := range plans {
		dto := toDTO(plan)
		if businessID != nil {
			status := planStatusFor(plan.ID, active)
			dto.PlanStatus = &status
		}
		items = append(items, dto)
	}
	return pagination.NewPage(params, total, items), nil
}

func planStatusFor(planID uuid.UUID, active *models.BusinessClip) enums.PlanRequestStatus {
	if active == nil || active.SubscriptionID == nil || *active.SubscriptionID != planID {
		return enums.PlanRequestPending
	}
	switch active.PaymentStatus {
	case enums.ClipPaymentReceived:
		return enums.PlanRequestAccepted
	case enums.ClipPaymentPending:
		return enums.PlanRequestRequested
	}
	return enums.PlanRequestPending
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*PlanDTO, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.PackageName != nil {
		plan.PackageName = strings.TrimSpace(*input.PackageName)
	}
	if input.PackageDescription != nil {
		plan.PackageDescription = strings.TrimSpace(*input.PackageDescription)
	}
	if input.Price != nil {
		plan.Price = *input.Price
	}
	if input.ValidityDays != nil {
		plan.ValidityDays = strings.TrimSpace(*input.ValidityDays)
	}
	if input.MonthlyDuration != nil {
		plan.MonthlyDuration = *input.MonthlyDuration
	}
	if err := validatePlanFields(plan.PackageName, plan.Price, plan.ValidityDays, plan.MonthlyDuration, input.TotalClips); err != nil {
		return nil, err
	}
	if input.TotalClips != nil {
		plan.TotalClips = *input.TotalClips
	} else if input.ValidityDays != nil || input.MonthlyDuration != nil {
		plan.TotalClips = clips.ValidityMonths(s.now().UTC(), plan.ValidityDays) * plan.MonthlyDuration
	}
	if input.PackageName != nil {
		if err := s.ensureNameAvailable(ctx, plan.PackageName, &plan.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, plan); err != nil {
		if dbpkg.IsUniqueViolation(err, uniquePlanNameConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a plan with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	dto := toDTO(*plan)
	return &dto, nil
}

// DeletePlan soft-deletes the plan. Ledger entries keep their own snapshot.
func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete plan")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return nil
}

// LoadPlan returns the raw plan row for other services that snapshot it.
func (s *Service) LoadPlan(ctx context.Context, id uuid.UUID) (*models.ClipSubscription, error) {
	return s.loadPlan(ctx, id)
}

func (s *Service) loadPlan(ctx context.Context, id uuid.UUID) (*models.ClipSubscription, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

func (s *Service) ensureNameAvailable(ctx context.Context, name string, excludeID *uuid.UUID) error {
	taken, err := s.repo.NameTaken(ctx, name, excludeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check plan name")
	}
	if taken {
		return pkgerrors.New(pkgerrors.CodeConflict, "a plan with this name already exists")
	}
	return nil
}

func validatePlanFields(name string, price decimal.Decimal, validity string, monthly int, total *int) error {
	details := map[string]string{}
	if name == "" {
		details["package_name"] = "is required"
	}
	if price.IsNegative() {
		details["price"] = "must not be negative"
	}
	if err := clips.CheckValidity(validity); err != nil {
		details["validity_days"] = err.Error()
	}
	if monthly < 1 {
		details["monthly_duration"] = "must be at least 1"
	}
	if total != nil && *total < 0 {
		details["total_clips"] = "must not be negative"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid plan").WithDetails(details)
	}
	return nil
}
