package payrollhandler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/payroll"
	"peopleops/internal/tenant"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
)

func testRouter(t *testing.T, role string) (*chi.Mux, pgxmock.PgxPoolIface) {
	t.Helper()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	handle := &tenant.Handle{TenantID: "t1", Code: "acme", Schema: "tenant_acme", DB: mock}

	handler := NewHandler(payroll.NewService(nil, nil, slog.Default()), audit.New(mock))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", Role: role})
			ctx = middleware.WithHandle(ctx, handle)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	handler.RegisterRoutes(r)
	return r, mock
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var envelope api.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func TestReviseLockedSnapshotConflicts(t *testing.T) {
	r, mock := testRouter(t, auth.RoleAdmin)

	b, err := payroll.ComputeBreakdown(840000)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE salary_snapshots")).
		WithArgs("snap-1", b.AnnualCTC, b.MonthlyCTC,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			b.GrossMonthly, b.DeductionsTotal, b.NetMonthly).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT locked FROM salary_snapshots")).
		WithArgs("snap-1").
		WillReturnRows(pgxmock.NewRows([]string{"locked"}).AddRow(true))

	req := httptest.NewRequest(http.MethodPut, "/payroll/snapshots/snap-1",
		strings.NewReader(`{"annualCtc":840000}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != "snapshot_locked" {
		t.Fatalf("expected snapshot_locked, got %+v", envelope.Error)
	}
}

func TestLatestSnapshotMissing(t *testing.T) {
	r, mock := testRouter(t, auth.RoleHR)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, target_type, target_id")).
		WithArgs("employee", "emp-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodGet, "/payroll/snapshots/employee/emp-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != "snapshot_not_found" {
		t.Fatalf("expected snapshot_not_found, got %+v", envelope.Error)
	}
}

func TestExecuteRunRejectsBadPeriod(t *testing.T) {
	r, _ := testRouter(t, auth.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/payroll/runs",
		strings.NewReader(`{"month":13,"year":2026}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunRouteRequiresPermission(t *testing.T) {
	r, _ := testRouter(t, auth.RoleEmployee)

	req := httptest.NewRequest(http.MethodPost, "/payroll/runs",
		strings.NewReader(`{"month":6,"year":2026}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for employee role, got %d", rec.Code)
	}
}

func TestCreateSnapshotRejectsBadTargetType(t *testing.T) {
	r, _ := testRouter(t, auth.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/payroll/snapshots",
		strings.NewReader(`{"targetType":"vendor","targetId":"x","annualCtc":600000}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", envelope.Error)
	}
}
