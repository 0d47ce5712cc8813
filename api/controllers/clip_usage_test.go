package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/internal/consumption"
	"github.com/angelmondragon/clips-backend/internal/usage"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/clips-backend/pkg/errors"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

func TestBusinessUsageHistory(t *testing.T) {
	businessID := uuid.New()
	svc := &testUsageService{
		listFn: func(ctx context.Context, bid uuid.UUID, params usage.ListParams) (pagination.Page[usage.UsageDTO], error) {
			if bid != businessID {
				t.Fatalf("unexpected business %s", bid)
			}
			if params.UsageType != "applied" {
				t.Fatalf("unexpected usage type %q", params.UsageType)
			}
			return pagination.NewPage(params.Pagination, 1, []usage.UsageDTO{{ID: uuid.New(), BusinessID: bid, ClipsUsed: 1}}), nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clips/history?usage_type=applied", nil)
	req = asRole(req, businessID, enums.RoleBusiness)
	resp := httptest.NewRecorder()
	BusinessUsageHistory(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminBusinessUsageHistoryUsesPathBusiness(t *testing.T) {
	businessID := uuid.New()
	called := false
	svc := &testUsageService{
		listFn: func(ctx context.Context, bid uuid.UUID, params usage.ListParams) (pagination.Page[usage.UsageDTO], error) {
			called = bid == businessID
			return pagination.NewPage[usage.UsageDTO](params.Pagination, 0, nil), nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/businesses/"+businessID.String()+"/clips/history", nil)
	req = asRole(req, uuid.New(), enums.RoleAdmin)
	req = addRouteParam(req, "businessId", businessID.String())
	resp := httptest.NewRecorder()
	AdminBusinessUsageHistory(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected listing for the path business")
	}
}

func TestBusinessApplyToProject(t *testing.T) {
	businessID := uuid.New()
	projectID := uuid.New()
	svc := &testConsumptionService{
		applyFn: func(ctx context.Context, input consumption.ApplyInput) (*consumption.ApplyResult, error) {
			if input.BusinessID != businessID || input.ProjectID != projectID {
				t.Fatalf("unexpected ids %+v", input)
			}
			if input.Message != "We can help" {
				t.Fatalf("expected trimmed message, got %q", input.Message)
			}
			return &consumption.ApplyResult{OfferID: uuid.New(), ProjectID: projectID, RemainingClips: 9, MonthlyRemainingClips: 4}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+projectID.String()+"/apply", jsonBody(`{"message":"  We can help "}`))
	req = asRole(req, businessID, enums.RoleBusiness)
	req = addRouteParam(req, "projectId", projectID.String())
	resp := httptest.NewRecorder()
	BusinessApplyToProject(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data consumption.ApplyResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.RemainingClips != 9 || envelope.Data.MonthlyRemainingClips != 4 {
		t.Fatalf("unexpected balances %+v", envelope.Data)
	}
}

func TestBusinessApplyToProjectErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "no plan", err: pkgerrors.New(pkgerrors.CodeNotFound, "no active plan"), status: http.StatusNotFound},
		{name: "empty balance", err: pkgerrors.New(pkgerrors.CodePrecondition, "insufficient clips"), status: http.StatusPreconditionFailed},
		{name: "duplicate offer", err: pkgerrors.New(pkgerrors.CodeConflict, "offer already submitted"), status: http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			projectID := uuid.New()
			svc := &testConsumptionService{
				applyFn: func(ctx context.Context, input consumption.ApplyInput) (*consumption.ApplyResult, error) {
					return nil, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+projectID.String()+"/apply", jsonBody(`{"message":"hi"}`))
			req = asRole(req, uuid.New(), enums.RoleBusiness)
			req = addRouteParam(req, "projectId", projectID.String())
			resp := httptest.NewRecorder()
			BusinessApplyToProject(svc, testLogger())(resp, req)
			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.Code)
			}
			if !strings.Contains(resp.Body.String(), string(pkgerrors.As(tc.err).Code())) {
				t.Fatalf("expected error code in body: %s", resp.Body.String())
			}
		})
	}
}

func TestBusinessApplyToProjectRequiresMessage(t *testing.T) {
	projectID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+projectID.String()+"/apply", jsonBody(`{}`))
	req = asRole(req, uuid.New(), enums.RoleBusiness)
	req = addRouteParam(req, "projectId", projectID.String())
	resp := httptest.NewRecorder()
	BusinessApplyToProject(&testConsumptionService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
