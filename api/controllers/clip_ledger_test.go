package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

func TestBusinessActivePlan(t *testing.T) {
	businessID := uuid.New()
	svc := &testLedgerService{
		activeFn: func(ctx context.Context, bid uuid.UUID) (*ledger.EntryDTO, error) {
			if bid != businessID {
				t.Fatalf("unexpected business %s", bid)
			}
			return &ledger.EntryDTO{ID: uuid.New(), BusinessID: bid, RemainingClips: 7, MonthlyRemainingClips: 2}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clips/me", nil)
	req = asRole(req, businessID, enums.RoleBusiness)
	resp := httptest.NewRecorder()
	BusinessActivePlan(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data ledger.EntryDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.RemainingClips != 7 || envelope.Data.MonthlyRemainingClips != 2 {
		t.Fatalf("unexpected balances %+v", envelope.Data)
	}
}

func TestAdminExpiryPreview(t *testing.T) {
	businessID := uuid.New()
	expiry := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
	svc := &testLedgerService{
		expiryFn: func(ctx context.Context, bid uuid.UUID) (time.Time, error) {
			if bid != businessID {
				t.Fatalf("unexpected business %s", bid)
			}
			return expiry, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/businesses/"+businessID.String()+"/clips/expiry", nil)
	req = addRouteParam(req, "businessId", businessID.String())
	req = asRole(req, uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminExpiryPreview(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data expiryPreviewResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data.ExpiryDate.Equal(expiry) {
		t.Fatalf("unexpected expiry %s", envelope.Data.ExpiryDate)
	}
}

func TestAdminExpiryPreviewInvalidBusiness(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/businesses/nope/clips/expiry", nil)
	req = addRouteParam(req, "businessId", "nope")
	resp := httptest.NewRecorder()
	AdminExpiryPreview(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminRenewPlanMapsConflict(t *testing.T) {
	adminID := uuid.New()
	businessID := uuid.New()
	planID := uuid.New()
	svc := &testLedgerService{
		renewFn: func(ctx context.Context, input ledger.RenewInput) (*ledger.EntryDTO, error) {
			if input.BusinessID != businessID || input.PlanID != planID {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.MonthlyDuration == nil || *input.MonthlyDuration != 5 {
				t.Fatalf("expected monthly override")
			}
			if input.Actor == nil || input.Actor.UserID != adminID {
				t.Fatalf("unexpected actor %+v", input.Actor)
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "current plan has not expired yet")
		},
	}
	body := `{"business_id":"` + businessID.String() + `","plan_id":"` + planID.String() + `","monthly_duration":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/clips/renewals", jsonBody(body))
	req = asRole(req, adminID, enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminRenewPlan(svc, testLogger())(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAdminRenewPlanRequiresBusinessID(t *testing.T) {
	body := `{"plan_id":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/clips/renewals", jsonBody(body))
	req = asRole(req, uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminRenewPlan(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminRefill(t *testing.T) {
	adminID := uuid.New()
	businessID := uuid.New()
	svc := &testLedgerService{
		refillFn: func(ctx context.Context, input ledger.RefillInput) (*ledger.RefillDTO, error) {
			if input.BusinessID != businessID || input.Clip != 5 {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.Actor == nil || input.Actor.UserID != adminID {
				t.Fatalf("missing actor")
			}
			return &ledger.RefillDTO{ID: uuid.New(), BusinessID: businessID, Clip: input.Clip, Price: input.Price}, nil
		},
	}
	body := `{"business_id":"` + businessID.String() + `","clip":5,"price":"12.50"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/clips/refills", jsonBody(body))
	req = asRole(req, adminID, enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminRefill(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminRefillRejectsZeroClips(t *testing.T) {
	body := `{"business_id":"` + uuid.NewString() + `","clip":0,"price":"1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/clips/refills", jsonBody(body))
	req = asRole(req, uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminRefill(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminAssignPlan(t *testing.T) {
	adminID := uuid.New()
	businessID := uuid.New()
	planID := uuid.New()
	svc := &testLedgerService{
		assignFn: func(ctx context.Context, input ledger.AssignPlanInput) (*ledger.EntryDTO, error) {
			if input.BusinessID != businessID || input.PlanID != planID {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.ValidityDays == nil || *input.ValidityDays != "2 month" {
				t.Fatalf("expected validity override")
			}
			if input.Actor == nil || input.Actor.UserID != adminID || input.Actor.BusinessID != nil {
				t.Fatalf("unexpected actor %+v", input.Actor)
			}
			return &ledger.EntryDTO{ID: uuid.New(), BusinessID: businessID, RemainingClips: 10}, nil
		},
	}
	body := `{"business_id":"` + businessID.String() + `","plan_id":"` + planID.String() + `","validity_days":"2 month"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/clips/assignments", jsonBody(body))
	req = asRole(req, adminID, enums.RoleAdmin)
	resp := httptest.NewRecorder()
	AdminAssignPlan(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminListPurchasesFilters(t *testing.T) {
	svc := &testLedgerService{
		listPurchasesFn: func(ctx context.Context, params ledger.ListPurchasesParams) (pagination.Page[ledger.EntryDTO], error) {
			if params.Status != "active" || params.PaymentStatus != "pending" {
				t.Fatalf("unexpected filters %+v", params)
			}
			if params.Pagination.Search != "acme" {
				t.Fatalf("unexpected search %q", params.Pagination.Search)
			}
			return pagination.NewPage[ledger.EntryDTO](params.Pagination, 0, nil), nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/clips/purchases?status=active&payment_status=pending&search=acme", nil)
	resp := httptest.NewRecorder()
	AdminListPurchases(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminGetPurchaseInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/clips/purchases/nope", nil)
	req = addRouteParam(req, "clipId", "nope")
	resp := httptest.NewRecorder()
	AdminGetPurchase(&testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminUpdatePayment(t *testing.T) {
	clipID := uuid.New()
	svc := &testLedgerService{
		paymentFn: func(ctx context.Context, input ledger.UpdatePaymentInput) (*ledger.EntryDTO, error) {
			if input.EntryID != clipID || input.Status != "received" {
				t.Fatalf("unexpected input %+v", input)
			}
			return &ledger.EntryDTO{ID: clipID, PaymentStatus: enums.ClipPaymentReceived}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/clips/purchases/"+clipID.String()+"/payment", jsonBody(`{"status":"received"}`))
	req = asRole(req, uuid.New(), enums.RoleAdmin)
	req = addRouteParam(req, "clipId", clipID.String())
	resp := httptest.NewRecorder()
	AdminUpdatePayment(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminUpdatePaymentStateConflict(t *testing.T) {
	clipID := uuid.New()
	svc := &testLedgerService{
		paymentFn: func(ctx context.Context, input ledger.UpdatePaymentInput) (*ledger.EntryDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "entry has expired")
		},
	}
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/v1/clips/purchases/"+clipID.String()+"/payment", jsonBody(`{"status":"rejected"}`))
	req = addRouteParam(req, "clipId", clipID.String())
	resp := httptest.NewRecorder()
	AdminUpdatePayment(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
