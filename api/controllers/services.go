package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/api/middleware"
	"github.com/angelmondragon/clips-backend/internal/catalog"
	"github.com/angelmondragon/clips-backend/internal/consumption"
	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/internal/usage"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

// CatalogService is the plan catalog surface the HTTP layer depends on.
type CatalogService interface {
	CreatePlan(ctx context.Context, input catalog.CreatePlanInput) (*catalog.PlanDTO, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*catalog.PlanDTO, error)
	ListPlans(ctx context.Context, businessID *uuid.UUID, params pagination.Params) (pagination.Page[catalog.PlanDTO], error)
	UpdatePlan(ctx context.Context, id uuid.UUID, input catalog.UpdatePlanInput) (*catalog.PlanDTO, error)
	DeletePlan(ctx context.Context, id uuid.UUID) error
}

// LedgerService is the credit ledger surface the HTTP layer depends on.
type LedgerService interface {
	RequestPlan(ctx context.Context, businessID, planID uuid.UUID, actor *outbox.ActorRef) (*ledger.EntryDTO, error)
	AssignPlan(ctx context.Context, input ledger.AssignPlanInput) (*ledger.EntryDTO, error)
	Renew(ctx context.Context, input ledger.RenewInput) (*ledger.EntryDTO, error)
	Refill(ctx context.Context, input ledger.RefillInput) (*ledger.RefillDTO, error)
	UpdatePayment(ctx context.Context, input ledger.UpdatePaymentInput) (*ledger.EntryDTO, error)
	GetActive(ctx context.Context, businessID uuid.UUID) (*ledger.EntryDTO, error)
	ExpiryPreview(ctx context.Context, businessID uuid.UUID) (time.Time, error)
	GetPurchase(ctx context.Context, id uuid.UUID) (*ledger.EntryDTO, error)
	ListPurchases(ctx context.Context, params ledger.ListPurchasesParams) (pagination.Page[ledger.EntryDTO], error)
}

// UsageService lists clip usage history.
type UsageService interface {
	List(ctx context.Context, businessID uuid.UUID, params usage.ListParams) (pagination.Page[usage.UsageDTO], error)
}

// ConsumptionService spends a clip on a project application.
type ConsumptionService interface {
	Apply(ctx context.Context, input consumption.ApplyInput) (*consumption.ApplyResult, error)
}

func businessFromRequest(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.BusinessIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "business context missing")
	}
	return id, nil
}

// actorFromRequest builds the outbox actor for the authenticated caller.
func actorFromRequest(r *http.Request) *outbox.ActorRef {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || principal.UserID == uuid.Nil {
		return nil
	}
	actor := &outbox.ActorRef{UserID: principal.UserID, Role: string(principal.Role)}
	if principal.IsBusiness() {
		businessID := principal.UserID
		actor.BusinessID = &businessID
	}
	return actor
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
