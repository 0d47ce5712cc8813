package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/clips-backend/pkg/db/models"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
	"github.com/angelmondragon/clips-backend/pkg/types"
)

// UniqueActiveEntryConstraint guards the one-active-entry-per-business rule.
const UniqueActiveEntryConstraint = "ux_business_clips_active_business"

var purchaseSortColumns = map[string]string{
	"created_at":      "created_at",
	"purchased_at":    "purchased_at",
	"expiry_date":     "expiry_date",
	"remaining_clips": "remaining_clips",
	"package_name":    "package_name",
	"payment_status":  "payment_status",
}

// PurchaseQuery filters the admin purchase listing.
type PurchaseQuery struct {
	Status        *enums.ClipStatus
	PaymentStatus *enums.ClipPaymentStatus
	Params        pagination.Params
}

// Repository persists business clip ledger entries and their side tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.BusinessClip) error
	Save(ctx context.Context, entry *models.BusinessClip) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BusinessClip, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.BusinessClip, error)
	FindActive(ctx context.Context, businessID uuid.UUID) (*models.BusinessClip, error)
	FindLatest(ctx context.Context, businessID uuid.UUID) (*models.BusinessClip, error)
	FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.BusinessClip, error)
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DecrementRemaining(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	UpdateMonthHistory(ctx context.Context, id uuid.UUID, history types.MonthHistory) error
	CreateRefill(ctx context.Context, refill *models.ClipRefill) error
	CreateRenewal(ctx context.Context, renewal *models.ClipRenewal) error
	ListPurchases(ctx context.Context, query PurchaseQuery) ([]models.BusinessClip, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.BusinessClip) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Save(ctx context.Context, entry *models.BusinessClip) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BusinessClip, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// LockByID loads the entry with a row lock held until the surrounding
// transaction ends.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.BusinessClip, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

// FindActive returns the business's single active entry regardless of payment state.
func (r *repository) FindActive(ctx context.Context, businessID uuid.UUID) (*models.BusinessClip, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Where("business_id = ? AND status = ?", businessID, enums.ClipStatusActive))
}

func (r *repository) FindLatest(ctx context.Context, businessID uuid.UUID) (*models.BusinessClip, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC").
		Order("id DESC"))
}

func (r *repository) first(_ context.Context, query *gorm.DB) (*models.BusinessClip, error) {
	var entry models.BusinessClip
	if err := query.First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindDueForExpiry lists paid active entries whose window closed before now.
func (r *repository) FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.BusinessClip, error) {
	var entries []models.BusinessClip
	query := r.db.WithContext(ctx).
		Where("status = ? AND payment_status = ?", enums.ClipStatusActive, enums.ClipPaymentReceived).
		Where("expiry_date IS NOT NULL AND expiry_date < ?", now).
		Order("expiry_date ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkExpired flips an active entry to expired. It reports false when the
// entry was already expired, so concurrent sweeps apply the change once.
func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BusinessClip{}).
		Where("id = ? AND status = ?", id, enums.ClipStatusActive).
		UpdateColumns(map[string]any{
			"status":     enums.ClipStatusExpired,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DecrementRemaining spends one clip only while the balance is positive. The
// guard lives in the WHERE clause so two racing spends cannot both succeed.
func (r *repository) DecrementRemaining(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.BusinessClip{}).
		Where("id = ? AND remaining_clips >= ?", id, 1).
		UpdateColumns(map[string]any{
			"remaining_clips": gorm.Expr("remaining_clips - ?", 1),
			"updated_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateMonthHistory(ctx context.Context, id uuid.UUID, history types.MonthHistory) error {
	return r.db.WithContext(ctx).
		Model(&models.BusinessClip{ID: id}).
		Select("month_history").
		Updates(&models.BusinessClip{MonthHistory: history}).Error
}

func (r *repository) CreateRefill(ctx context.Context, refill *models.ClipRefill) error {
	return r.db.WithContext(ctx).Create(refill).Error
}

func (r *repository) CreateRenewal(ctx context.Context, renewal *models.ClipRenewal) error {
	return r.db.WithContext(ctx).Create(renewal).Error
}

func (r *repository) ListPurchases(ctx context.Context, q PurchaseQuery) ([]models.BusinessClip, int64, error) {
	params := q.Params.Normalize()
	query := r.db.WithContext(ctx).Model(&models.BusinessClip{})
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *q.PaymentStatus)
	}
	if params.Search != "" {
		like := pagination.ContainsPattern(params.Search)
		businesses := r.db.WithContext(ctx).
			Model(&models.User{}).
			Select("id").
			Where(`LOWER(name) LIKE ? ESCAPE '\'`, like)
		query = query.Where(
			`LOWER(package_name) LIKE ? ESCAPE '\' OR LOWER(package_validity_days) LIKE ? ESCAPE '\' OR CAST(remaining_clips AS TEXT) LIKE ? ESCAPE '\' OR business_id IN (?)`,
			like, like, like, businesses,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.BusinessClip
	if err := query.
		Order(pagination.OrderClause(params, purchaseSortColumns, "created_at")).
		Order("id ASC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
