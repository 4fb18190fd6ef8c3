package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"peopleops/internal/domain/auth"
)

const testSecret = "test-secret"

func bearerToken(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{
		UserID:   "u1",
		TenantID: "t1",
		Role:     role,
	}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + token
}

func TestAuthAttachesUser(t *testing.T) {
	var got auth.UserContext
	var ok bool
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetUser(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearerToken(t, auth.RoleHR))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !ok {
		t.Fatal("expected user in context")
	}
	if got.UserID != "u1" || got.TenantID != "t1" || got.Role != auth.RoleHR {
		t.Fatalf("unexpected user %+v", got)
	}
}

func TestAuthIgnoresGarbageToken(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Error("garbage token must not authenticate")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequirePermissionForbidsEmployee(t *testing.T) {
	protected := Auth(testSecret)(RequirePermission(auth.PermPayrollWrite)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

	req := httptest.NewRequest(http.MethodPost, "/payroll/runs", nil)
	req.Header.Set("Authorization", bearerToken(t, auth.RoleEmployee))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employee got %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/payroll/runs", nil)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous got %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/payroll/runs", nil)
	req.Header.Set("Authorization", bearerToken(t, auth.RoleAdmin))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin got %d, want 204", rec.Code)
	}
}
