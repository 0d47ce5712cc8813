package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/clips-backend/pkg/auth"
	"github.com/angelmondragon/clips-backend/pkg/config"
	"github.com/angelmondragon/clips-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func testTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(testJWT)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	return tokens
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testTokens(t), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testTokens(t), nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	userID := uuid.New()
	token := mintTestToken(t, userID, enums.RoleBusiness)

	var captured struct {
		user     string
		role     string
		business uuid.UUID
	}
	handler := Auth(testTokens(t), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		p, _ := PrincipalFromContext(r.Context())
		captured.role = string(p.Role)
		captured.business, _ = BusinessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != userID.String() {
		t.Fatalf("expected user %s got %s", userID, captured.user)
	}
	if captured.role != string(enums.RoleBusiness) {
		t.Fatalf("expected role business got %s", captured.role)
	}
	if captured.business != userID {
		t.Fatalf("expected business id %s got %s", userID, captured.business)
	}
}

func TestBusinessIDFromContextRequiresBusinessRole(t *testing.T) {
	ctx := WithPrincipal(context.Background(), Principal{UserID: uuid.New(), Role: enums.RoleAdmin})
	if _, ok := BusinessIDFromContext(ctx); ok {
		t.Fatal("admin must not resolve to a business id")
	}
	ctx = WithPrincipal(context.Background(), Principal{Role: enums.RoleBusiness})
	if _, ok := BusinessIDFromContext(ctx); ok {
		t.Fatal("nil user id must not resolve")
	}
	if _, ok := BusinessIDFromContext(context.Background()); ok {
		t.Fatal("anonymous request must not resolve")
	}
	if _, ok := PrincipalFromContext(context.Background()); ok || UserIDFromContext(context.Background()) != "" {
		t.Fatal("anonymous request must not carry an identity")
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(enums.RoleAdmin, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: enums.RoleBusiness}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: enums.RoleAdmin}))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAuthReportsExpiredToken(t *testing.T) {
	raw, err := testTokens(t).Mint(time.Now().Add(-2*time.Hour), auth.Subject{UserID: uuid.New(), Role: enums.RoleBusiness})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+raw)
	resp := httptest.NewRecorder()
	Auth(testTokens(t), nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "token expired") {
		t.Fatalf("expected expiry message, got %s", resp.Body.String())
	}
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"Bearer ":      "",
		"":             "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		got, ok := bearerToken(req)
		if got != want || ok != (want != "") {
			t.Fatalf("%q: got %q ok=%v", header, got, ok)
		}
	}
}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.Role) string {
	t.Helper()
	token, err := testTokens(t).Mint(time.Now(), auth.Subject{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
