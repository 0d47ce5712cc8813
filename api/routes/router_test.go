package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/internal/catalog"
	"github.com/angelmondragon/clips-backend/internal/consumption"
	"github.com/angelmondragon/clips-backend/internal/ledger"
	"github.com/angelmondragon/clips-backend/internal/usage"
	pkgAuth "github.com/angelmondragon/clips-backend/pkg/auth"
	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/enums"
	"github.com/angelmondragon/clips-backend/pkg/logger"
	"github.com/angelmondragon/clips-backend/pkg/outbox"
	"github.com/angelmondragon/clips-backend/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubCache struct {
	mu      sync.Mutex
	data    map[string]string
	allowed bool
}

func newStubCache() *stubCache {
	return &stubCache{data: map[string]string{}, allowed: true}
}

func (s *stubCache) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *stubCache) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *stubCache) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *stubCache) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *stubCache) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return s.allowed, 1, nil
}

func (s *stubCache) Ping(context.Context) error {
	return nil
}

type stubCatalog struct{}

func (stubCatalog) CreatePlan(ctx context.Context, input catalog.CreatePlanInput) (*catalog.PlanDTO, error) {
	return &catalog.PlanDTO{ID: uuid.New(), PackageName: input.PackageName}, nil
}

func (stubCatalog) GetPlan(ctx context.Context, id uuid.UUID) (*catalog.PlanDTO, error) {
	return &catalog.PlanDTO{ID: id}, nil
}

func (stubCatalog) ListPlans(ctx context.Context, businessID *uuid.UUID, params pagination.Params) (pagination.Page[catalog.PlanDTO], error) {
	return pagination.NewPage[catalog.PlanDTO](params, 0, nil), nil
}

func (stubCatalog) UpdatePlan(ctx context.Context, id uuid.UUID, input catalog.UpdatePlanInput) (*catalog.PlanDTO, error) {
	return &catalog.PlanDTO{ID: id}, nil
}

func (stubCatalog) DeletePlan(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubLedger struct {
	mu     sync.Mutex
	swept  []uuid.UUID
	refill int
}

func (s *stubLedger) RequestPlan(ctx context.Context, businessID, planID uuid.UUID, actor *outbox.ActorRef) (*ledger.EntryDTO, error) {
	return &ledger.EntryDTO{ID: uuid.New(), BusinessID: businessID}, nil
}

func (s *stubLedger) AssignPlan(ctx context.Context, input ledger.AssignPlanInput) (*ledger.EntryDTO, error) {
	return &ledger.EntryDTO{ID: uuid.New(), BusinessID: input.BusinessID}, nil
}

func (s *stubLedger) Renew(ctx context.Context, input ledger.RenewInput) (*ledger.EntryDTO, error) {
	return &ledger.EntryDTO{ID: uuid.New(), BusinessID: input.BusinessID}, nil
}

func (s *stubLedger) Refill(ctx context.Context, input ledger.RefillInput) (*ledger.RefillDTO, error) {
	s.mu.Lock()
	s.refill++
	s.mu.Unlock()
	return &ledger.RefillDTO{ID: uuid.New(), BusinessID: input.BusinessID, Clip: input.Clip}, nil
}

func (s *stubLedger) UpdatePayment(ctx context.Context, input ledger.UpdatePaymentInput) (*ledger.EntryDTO, error) {
	return &ledger.EntryDTO{ID: input.EntryID}, nil
}

func (s *stubLedger) GetActive(ctx context.Context, businessID uuid.UUID) (*ledger.EntryDTO, error) {
	return &ledger.EntryDTO{ID: uuid.New(), BusinessID: businessID}, nil
}

func (s *stubLedger) ExpiryPreview(ctx context.Context, businessID uuid.UUID) (time.Time, error) {
	return time.Now().UTC(), nil
}

func (s *stubLedger) GetPurchase(ctx context.Context, id uuid.UUID) (*ledger.EntryDTO, error) {
	return &ledger.EntryDTO{ID: id}, nil
}

func (s *stubLedger) ListPurchases(ctx context.Context, params ledger.ListPurchasesParams) (pagination.Page[ledger.EntryDTO], error) {
	return pagination.NewPage[ledger.EntryDTO](params.Pagination, 0, nil), nil
}

func (s *stubLedger) ExpireIfDue(ctx context.Context, businessID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept = append(s.swept, businessID)
	return false, nil
}

func (s *stubLedger) sweepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.swept)
}

func (s *stubLedger) refillCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refill
}

type stubUsage struct{}

func (stubUsage) List(ctx context.Context, businessID uuid.UUID, params usage.ListParams) (pagination.Page[usage.UsageDTO], error) {
	return pagination.NewPage[usage.UsageDTO](params.Pagination, 0, nil), nil
}

type stubConsumption struct{}

func (stubConsumption) Apply(ctx context.Context, input consumption.ApplyInput) (*consumption.ApplyResult, error) {
	return &consumption.ApplyResult{OfferID: uuid.New(), ProjectID: input.ProjectID}, nil
}

type routerFixture struct {
	handler http.Handler
	cfg     *config.Config
	tokens  *pkgAuth.Tokens
	cache   *stubCache
	ledger  *stubLedger
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "clips-test", ExpirationMinutes: 5},
		Ledger: config.LedgerConfig{
			SweepTimeout: time.Second,
		},
		ApplyLimit: config.ApplyRateLimitConfig{Window: time.Minute, Limit: 10},
	}
	cache := newStubCache()
	ledgerSvc := &stubLedger{}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	tokens, err := pkgAuth.NewTokens(cfg.JWT)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	handler := NewRouter(cfg, logg, tokens, stubPinger{}, cache, stubCatalog{}, ledgerSvc, stubUsage{}, stubConsumption{})
	return &routerFixture{handler: handler, cfg: cfg, tokens: tokens, cache: cache, ledger: ledgerSvc}
}

func (f *routerFixture) token(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := f.tokens.Mint(time.Now(), pkgAuth.Subject{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (f *routerFixture) do(method, path, token, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutesArePublic(t *testing.T) {
	f := newRouterFixture(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := f.do(http.MethodGet, path, "", "", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestMetricsRouteIsPublic(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(http.MethodGet, "/metrics", "", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "go_goroutines") {
		t.Fatal("expected default collectors in exposition")
	}
}

func TestBusinessRoutesRequireAuth(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(http.MethodGet, "/api/v1/clips/me", "", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRoleSeparation(t *testing.T) {
	f := newRouterFixture(t)
	business := f.token(t, uuid.New(), enums.RoleBusiness)
	admin := f.token(t, uuid.New(), enums.RoleAdmin)

	if resp := f.do(http.MethodGet, "/api/admin/v1/clips/purchases", business, "", nil); resp.Code != http.StatusForbidden {
		t.Fatalf("business on admin route: expected 403 got %d", resp.Code)
	}
	if resp := f.do(http.MethodGet, "/api/v1/clips/me", admin, "", nil); resp.Code != http.StatusForbidden {
		t.Fatalf("admin on business route: expected 403 got %d", resp.Code)
	}
	if resp := f.do(http.MethodGet, "/api/admin/v1/clips/purchases", admin, "", nil); resp.Code != http.StatusOK {
		t.Fatalf("admin purchases: expected 200 got %d", resp.Code)
	}
}

func TestBusinessRoutesTriggerLazySweep(t *testing.T) {
	f := newRouterFixture(t)
	businessID := uuid.New()
	resp := f.do(http.MethodGet, "/api/v1/clips/me", f.token(t, businessID, enums.RoleBusiness), "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	deadline := time.Now().Add(time.Second)
	for f.ledger.sweepCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.ledger.sweepCount() == 0 {
		t.Fatal("expected lazy sweep for the calling business")
	}
}

func TestRefillReplaysWithIdempotencyKey(t *testing.T) {
	f := newRouterFixture(t)
	token := f.token(t, uuid.New(), enums.RoleAdmin)
	body := `{"business_id":"` + uuid.NewString() + `","clip":5,"price":"10"}`

	if resp := f.do(http.MethodPost, "/api/admin/v1/clips/refills", token, body, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing key: expected 400 got %d", resp.Code)
	}

	headers := map[string]string{"Idempotency-Key": "refill-1"}
	first := f.do(http.MethodPost, "/api/admin/v1/clips/refills", token, body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first refill: expected 201 got %d: %s", first.Code, first.Body.String())
	}
	second := f.do(http.MethodPost, "/api/admin/v1/clips/refills", token, body, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201 got %d", second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatal("expected replayed body")
	}
	if got := f.ledger.refillCount(); got != 1 {
		t.Fatalf("expected one refill call, got %d", got)
	}
}

func TestBusinessCannotRenewRefillOrPreviewExpiry(t *testing.T) {
	f := newRouterFixture(t)
	businessID := uuid.New()
	business := f.token(t, businessID, enums.RoleBusiness)
	headers := map[string]string{"Idempotency-Key": "k-1"}
	renewal := `{"business_id":"` + businessID.String() + `","plan_id":"` + uuid.NewString() + `","price":"0","monthly_duration":1000}`
	refill := `{"business_id":"` + businessID.String() + `","clip":1000,"price":"0"}`

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/admin/v1/clips/renewals", renewal, http.StatusForbidden},
		{http.MethodPost, "/api/admin/v1/clips/refills", refill, http.StatusForbidden},
		{http.MethodGet, "/api/admin/v1/businesses/" + businessID.String() + "/clips/expiry", "", http.StatusForbidden},
		{http.MethodPost, "/api/v1/clips/renewals", renewal, http.StatusNotFound},
		{http.MethodPost, "/api/v1/clips/refills", refill, http.StatusNotFound},
		{http.MethodGet, "/api/v1/clips/me/expiry", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		if resp := f.do(tc.method, tc.path, business, tc.body, headers); resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
	if got := f.ledger.refillCount(); got != 0 {
		t.Fatalf("expected no refill calls, got %d", got)
	}
}

func TestAdminExpiryPreviewRoute(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.token(t, uuid.New(), enums.RoleAdmin)
	resp := f.do(http.MethodGet, "/api/admin/v1/businesses/"+uuid.NewString()+"/clips/expiry", admin, "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestApplyRouteIsRateLimited(t *testing.T) {
	f := newRouterFixture(t)
	f.cache.allowed = false
	token := f.token(t, uuid.New(), enums.RoleBusiness)
	resp := f.do(http.MethodPost, "/api/v1/projects/"+uuid.NewString()+"/apply", token, `{"message":"hi"}`, map[string]string{"Idempotency-Key": "apply-1"})
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestAdminPlanCRUDRoutes(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.token(t, uuid.New(), enums.RoleAdmin)
	planID := uuid.NewString()

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/admin/v1/clips/plans", "", http.StatusOK},
		{http.MethodPost, "/api/admin/v1/clips/plans", `{"package_name":"A","price":"1","validity_days":"1 month","monthly_duration":5}`, http.StatusCreated},
		{http.MethodGet, "/api/admin/v1/clips/plans/" + planID, "", http.StatusOK},
		{http.MethodPatch, "/api/admin/v1/clips/plans/" + planID, `{"package_name":"B"}`, http.StatusOK},
		{http.MethodDelete, "/api/admin/v1/clips/plans/" + planID, "", http.StatusOK},
		{http.MethodGet, "/api/admin/v1/businesses/" + uuid.NewString() + "/clips/history", "", http.StatusOK},
	}
	for i, tc := range cases {
		headers := map[string]string{"Idempotency-Key": fmt.Sprintf("admin-%d", i)}
		resp := f.do(tc.method, tc.path, admin, tc.body, headers)
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d: %s", tc.method, tc.path, tc.want, resp.Code, resp.Body.String())
		}
	}
}
