package recruiting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"peopleops/internal/tenant"
)

func mockHandle(t *testing.T) (*tenant.Handle, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return &tenant.Handle{TenantID: "t1", Code: "acme", Schema: "tenant_acme", DB: mock}, mock
}

func testService() *Service {
	return NewService(nil, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func applicantRow(employeeID, snapshotID *string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "requirement_id", "name", "email", "phone",
		"stage_id", "employee_id", "snapshot_id", "created_at",
	}).AddRow("a1", "req-1", "Asha Rao", "asha@acme.test", "",
		"stage-offer", employeeID, snapshotID, time.Now())
}

// Hiring must move the applicant's authoritative salary snapshot onto the
// new employee, or the first payroll run finds no salary structure.
func TestHireRetargetsSalarySnapshot(t *testing.T) {
	h, mock := mockHandle(t)
	snapID := "snap-1"
	joining := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM applicants")).
		WithArgs("a1").
		WillReturnRows(applicantRow(nil, &snapID))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO employees")).
		WithArgs("t1", "Asha", "Rao", "asha@acme.test", "engineer", joining).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("emp-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applicants SET employee_id")).
		WithArgs("a1", "emp-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE salary_snapshots SET target_type = 'employee'")).
		WithArgs("snap-1", "emp-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	employeeID, err := testService().Hire(context.Background(), h, "a1", "engineer", joining)
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	if employeeID != "emp-1" {
		t.Fatalf("expected emp-1, got %s", employeeID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHireAlreadyHired(t *testing.T) {
	h, mock := mockHandle(t)
	employeeID := "emp-9"

	mock.ExpectQuery(regexp.QuoteMeta("FROM applicants")).
		WithArgs("a1").
		WillReturnRows(applicantRow(&employeeID, nil))

	_, err := testService().Hire(context.Background(), h, "a1", "engineer", time.Now())
	if !errors.Is(err, ErrAlreadyHired) {
		t.Fatalf("expected ErrAlreadyHired, got %v", err)
	}
}
