package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/api/middleware"
	"github.com/angelmondragon/clips-backend/internal/catalog"
	"github.com/angelmondragon/clips-backend/internal/consumption"
	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/internal/usage"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

var errNotStubbed = errors.New("not stubbed")

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx, _ := req.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if routeCtx == nil {
		routeCtx = chi.NewRouteContext()
	}
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func asRole(req *http.Request, userID uuid.UUID, role enums.Role) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{UserID: userID, Role: role}))
}

func jsonBody(body string) io.Reader {
	return strings.NewReader(body)
}

type testCatalogService struct {
	createFn func(ctx context.Context, input catalog.CreatePlanInput) (*catalog.PlanDTO, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*catalog.PlanDTO, error)
	listFn   func(ctx context.Context, businessID *uuid.UUID, params pagination.Params) (pagination.Page[catalog.PlanDTO], error)
	updateFn func(ctx context.Context, id uuid.UUID, input catalog.UpdatePlanInput) (*catalog.PlanDTO, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s *testCatalogService) CreatePlan(ctx context.Context, input catalog.CreatePlanInput) (*catalog.PlanDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, errNotStubbed
}

func (s *testCatalogService) GetPlan(ctx context.Context, id uuid.UUID) (*catalog.PlanDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, errNotStubbed
}

func (s *testCatalogService) ListPlans(ctx context.Context, businessID *uuid.UUID, params pagination.Params) (pagination.Page[catalog.PlanDTO], error) {
	if s.listFn != nil {
		return s.listFn(ctx, businessID, params)
	}
	return pagination.Page[catalog.PlanDTO]{}, errNotStubbed
}

func (s *testCatalogService) UpdatePlan(ctx context.Context, id uuid.UUID, input catalog.UpdatePlanInput) (*catalog.PlanDTO, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, id, input)
	}
	return nil, errNotStubbed
}

func (s *testCatalogService) DeletePlan(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return errNotStubbed
}

type testLedgerService struct {
	requestFn       func(ctx context.Context, businessID, planID uuid.UUID, actor *outbox.ActorRef) (*ledger.EntryDTO, error)
	assignFn        func(ctx context.Context, input ledger.AssignPlanInput) (*ledger.EntryDTO, error)
	renewFn         func(ctx context.Context, input ledger.RenewInput) (*ledger.EntryDTO, error)
	refillFn        func(ctx context.Context, input ledger.RefillInput) (*ledger.RefillDTO, error)
	paymentFn       func(ctx context.Context, input ledger.UpdatePaymentInput) (*ledger.EntryDTO, error)
	activeFn        func(ctx context.Context, businessID uuid.UUID) (*ledger.EntryDTO, error)
	expiryFn        func(ctx context.Context, businessID uuid.UUID) (time.Time, error)
	purchaseFn      func(ctx context.Context, id uuid.UUID) (*ledger.EntryDTO, error)
	listPurchasesFn func(ctx context.Context, params ledger.ListPurchasesParams) (pagination.Page[ledger.EntryDTO], error)
}

func (s *testLedgerService) RequestPlan(ctx context.Context, businessID, planID uuid.UUID, actor *outbox.ActorRef) (*ledger.EntryDTO, error) {
	if s.requestFn != nil {
		return s.requestFn(ctx, businessID, planID, actor)
	}
	return nil, errNotStubbed
}

func (s *testLedgerService) AssignPlan(ctx context.Context, input ledger.AssignPlanInput) (*ledger.EntryDTO, error) {
	if s.assignFn != nil {
		return s.assignFn(ctx, input)
	}
	return nil, errNotStubbed
}

func (s *testLedgerService) Renew(ctx context.Context, input ledger.RenewInput) (*ledger.EntryDTO, error) {
	if s.renewFn != nil {
		return s.renewFn(ctx, input)
	}
	return nil, errNotStubbed
}

func (s *testLedgerService) Refill(ctx context.Context, input ledger.RefillInput) (*ledger.RefillDTO, error) {
	if s.refillFn != nil {
		return s.refillFn(ctx, input)
	}
	return nil, errNotStubbed
}

func (s *testLedgerService) UpdatePayment(ctx context.Context, input ledger.UpdatePaymentInput) (*ledger.EntryDTO, error) {
	if s.paymentFn != nil {
		return s.paymentFn(ctx, input)
	}
	return nil, errNotStubbed
}

func (s *testLedgerService) GetActive(ctx context.Context, businessID uuid.UUID) (*ledger.EntryDTO, error) {
	if s.activeFn != nil {
		return s.activeFn(ctx, businessID)
	}
	return nil, errNotStubbed
}

func (s *testLedgerService) ExpiryPreview(ctx context.Context, businessID uuid.UUID) (time.Time, error) {
	if s.expiryFn != nil {
		return s.expiryFn(ctx, businessID)
	}
	return time.Time{}, errNotStubbed
}

func (s *testLedgerService) GetPurchase(ctx context.Context, id uuid.UUID) (*ledger.EntryDTO, error) {
	if s.purchaseFn != nil {
		return s.purchaseFn(ctx, id)
	}
	return nil, errNotStubbed
}

func (s *testLedgerService) ListPurchases(ctx context.Context, params ledger.ListPurchasesParams) (pagination.Page[ledger.EntryDTO], error) {
	if s.listPurchasesFn != nil {
		return s.listPurchasesFn(ctx, params)
	}
	return pagination.Page[ledger.EntryDTO]{}, errNotStubbed
}

type testUsageService struct {
	listFn func(ctx context.Context, businessID uuid.UUID, params usage.ListParams) (pagination.Page[usage.UsageDTO], error)
}

func (s *testUsageService) List(ctx context.Context, businessID uuid.UUID, params usage.ListParams) (pagination.Page[usage.UsageDTO], error) {
	if s.listFn != nil {
		return s.listFn(ctx, businessID, params)
	}
	return pagination.Page[usage.UsageDTO]{}, errNotStubbed
}

type testConsumptionService struct {
	applyFn func(ctx context.Context, input consumption.ApplyInput) (*consumption.ApplyResult, error)
}

func (s *testConsumptionService) Apply(ctx context.Context, input consumption.ApplyInput) (*consumption.ApplyResult, error) {
	if s.applyFn != nil {
		return s.applyFn(ctx, input)
	}
	return nil, errNotStubbed
}
