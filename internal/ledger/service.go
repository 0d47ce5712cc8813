package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/clips-backend/internal/clips"
	"github.com/angelmondragon/clips-backend/internal/usage"
	"github.com/angelmondragon/clips-backend/internal/users"
	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
	"github.com/angelmondragon/clips-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type planLoader interface {
	LoadPlan(ctx context.Context, id uuid.UUID) (*models.ClipSubscription, error)
}

type usageRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input usage.RecordInput) (*models.ClipUsageHistory, error)
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo   Repository
	Users  *users.Repository
	Plans  planLoader
	Usage  usageRecorder
	Outbox outboxPublisher
	Tx     txRunner
	Logger *logger.Logger
	// PaymentAnchor is config.PaymentAnchorNow (default) or config.PaymentAnchorPurchasedAt.
	PaymentAnchor string
	Now           func() time.Time
}

// Service owns every transition of a business clip ledger entry.
type Service struct {
	repo          Repository
	users         *users.Repository
	plans         planLoader
	usage         usageRecorder
	outbox        outboxPublisher
	tx            txRunner
	logg          *logger.Logger
	paymentAnchor string
	now           func() time.Time
}

// NewService builds a ledger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("ledger repository required")
	}
	if params.Users == nil {
		return nil, errors.New("users repository required")
	}
	if params.Plans == nil {
		return nil, errors.New("plan loader required")
	}
	if params.Usage == nil {
		return nil, errors.New("usage recorder required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox publisher required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	anchor := strings.ToLower(strings.TrimSpace(params.PaymentAnchor))
	switch anchor {
	case "":
		anchor = config.PaymentAnchorNow
	case config.PaymentAnchorNow, config.PaymentAnchorPurchasedAt:
	default:
		return nil, errors.New("unknown payment anchor " + params.PaymentAnchor)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:          params.Repo,
		users:         params.Users,
		plans:         params.Plans,
		usage:         params.Usage,
		outbox:        params.Outbox,
		tx:            params.Tx,
		logg:          params.Logger,
		paymentAnchor: anchor,
		now:           now,
	}, nil
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// PackageDTO mirrors the plan snapshot stored on an entry.
type PackageDTO struct {
	PackageName        string          `json:"package_name"`
	PackageDescription string          `json:"package_description"`
	TotalClips         int             `json:"total_clips"`
	Price              decimal.Decimal `json:"price"`
	ValidityDays       string          `json:"validity_days"`
	MonthlyDuration    int             `json:"monthly_duration"`
}

// EntryDTO is the API view of a ledger entry.
type EntryDTO struct {
	ID                    uuid.UUID               `json:"id"`
	BusinessID            uuid.UUID               `json:"business_id"`
	BusinessName          *string                 `json:"business_name,omitempty"`
	SubscriptionID        *uuid.UUID              `json:"subscription_id,omitempty"`
	PackageDetails        PackageDTO              `json:"package_details"`
	RemainingClips        int                     `json:"remaining_clips"`
	MonthlyRemainingClips int                     `json:"monthly_remaining_clips"`
	MonthHistory          types.MonthHistory      `json:"month_history"`
	PurchasedAt           *time.Time              `json:"purchased_at,omitempty"`
	ExpiryDate            *time.Time              `json:"expiry_date,omitempty"`
	Status                enums.ClipStatus        `json:"status"`
	PaymentStatus         enums.ClipPaymentStatus `json:"payment_status"`
	CreatedAt             time.Time               `json:"created_at"`
	UpdatedAt             time.Time               `json:"updated_at"`
}

func toEntryDTO(entry models.BusinessClip, now time.Time) EntryDTO {
	history := entry.MonthHistory
	if history == nil {
		history = types.MonthHistory{}
	}
	return EntryDTO{
		ID:             entry.ID,
		BusinessID:     entry.BusinessID,
		SubscriptionID: entry.SubscriptionID,
		PackageDetails: PackageDTO{
			PackageName:        entry.Package.Name,
			PackageDescription: entry.Package.Description,
			TotalClips:         entry.Package.TotalClips,
			Price:              entry.Package.Price,
			ValidityDays:       entry.Package.ValidityDays,
			MonthlyDuration:    entry.Package.MonthlyDuration,
		},
		RemainingClips:        entry.RemainingClips,
		MonthlyRemainingClips: clips.CurrentBucketClips(history, now),
		MonthHistory:          history,
		PurchasedAt:           entry.PurchasedAt,
		ExpiryDate:            entry.ExpiryDate,
		Status:                entry.Status,
		PaymentStatus:         entry.PaymentStatus,
		CreatedAt:             entry.CreatedAt,
		UpdatedAt:             entry.UpdatedAt,
	}
}

// RefillDTO is the API view of a top-up purchase.
type RefillDTO struct {
	ID          uuid.UUID       `json:"id"`
	BusinessID  uuid.UUID       `json:"business_id"`
	Clip        int             `json:"clip"`
	Price       decimal.Decimal `json:"price"`
	ExpiryDate  time.Time       `json:"expiry_date"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// ListPurchasesParams filters the admin purchase listing.
type ListPurchasesParams struct {
	Status        string
	PaymentStatus string
	Pagination    pagination.Params
}

// GetActive returns the business's active entry.
func (s *Service) GetActive(ctx context.Context, businessID uuid.UUID) (*EntryDTO, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	entry, err := s.repo.FindActive(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active plan")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active plan")
	}
	dto := toEntryDTO(*entry, s.clock())
	return &dto, nil
}

// ExpiryPreview returns the date a top-up bought now would expire on.
func (s *Service) ExpiryPreview(ctx context.Context, businessID uuid.UUID) (time.Time, error) {
	if businessID == uuid.Nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	entry, err := s.currentOrLatest(ctx, s.repo, businessID)
	if err != nil {
		return time.Time{}, err
	}
	if entry == nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeNotFound, "business clip not found")
	}
	return clips.ExpiryPreview(s.clock(), entry.MonthHistory, entry.ExpiryDate), nil
}

// GetPurchase returns a single entry for the admin detail view.
func (s *Service) GetPurchase(ctx context.Context, id uuid.UUID) (*EntryDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id is required")
	}
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
	}
	if entry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	names, err := s.users.FindNames(ctx, []uuid.UUID{entry.BusinessID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business name")
	}
	dto := toEntryDTO(*entry, s.clock())
	if name, ok := names[entry.BusinessID]; ok {
		dto.BusinessName = &name
	}
	return &dto, nil
}

// ListPurchases pages through every ledger entry for the admin console.
func (s *Service) ListPurchases(ctx context.Context, params ListPurchasesParams) (pagination.Page[EntryDTO], error) {
	query := PurchaseQuery{Params: params.Pagination.Normalize()}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParseClipStatus(strings.ToLower(raw))
		if err != nil {
			return pagination.Page[EntryDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(params.PaymentStatus); raw != "" {
		status, err := enums.ParseClipPaymentStatus(strings.ToLower(raw))
		if err != nil {
			return pagination.Page[EntryDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status filter")
		}
		query.PaymentStatus = &status
	}

	entries, total, err := s.repo.ListPurchases(ctx, query)
	if err != nil {
		return pagination.Page[EntryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.BusinessID)
	}
	names, err := s.users.FindNames(ctx, ids)
	if err != nil {
		return pagination.Page[EntryDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business names")
	}

	now := s.clock()
	items := make([]EntryDTO, 0, len(entries))
	for _, entry := range entries {
		dto := toEntryDTO(entry, now)
		if name, ok := names[entry.BusinessID]; ok {
			dto.BusinessName = &name
		}
		items = append(items, dto)
	}
	return pagination.NewPage(query.Params, total, items), nil
}

func (s *Service) currentOrLatest(ctx context.Context, repo Repository, businessID uuid.UUID) (*models.BusinessClip, error) {
	entry, err := repo.FindActive(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active plan")
	}
	if entry != nil {
		return entry, nil
	}
	entry, err = repo.FindLatest(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest plan")
	}
	return entry, nil
}

func (s *Service) loadBusiness(ctx context.Context, businessID uuid.UUID) (*models.User, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	user, err := s.users.FindByID(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	if user == nil || !user.IsActive || user.Role != enums.RoleBusiness {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
	}
	return user, nil
}

func snapshot(plan *models.ClipSubscription, validity string, monthly, total int, price decimal.Decimal) models.PackageDetails {
	return models.PackageDetails{
		Name:            plan.PackageName,
		Description:     plan.PackageDescription,
		TotalClips:      total,
		Price:           price,
		ValidityDays:    validity,
		MonthlyDuration: monthly,
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
