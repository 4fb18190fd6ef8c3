package payroll

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

func TestCreateSnapshotBacklinksApplicant(t *testing.T) {
	h, mock := mockHandle(t)

	b, err := ComputeBreakdown(500000)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO salary_snapshots")).
		WithArgs(TargetApplicant, "a1", b.AnnualCTC, b.MonthlyCTC,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			b.GrossMonthly, b.DeductionsTotal, b.NetMonthly).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow("snap-1", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE applicants SET snapshot_id")).
		WithArgs("a1", "snap-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	snap, err := NewStore(h).CreateSnapshot(context.Background(), TargetApplicant, "a1", b)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.ID != "snap-1" {
		t.Fatalf("expected snap-1, got %s", snap.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateSnapshotEmployeeSkipsBacklink(t *testing.T) {
	h, mock := mockHandle(t)

	b, err := ComputeBreakdown(500000)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO salary_snapshots")).
		WithArgs(TargetEmployee, "e1", b.AnnualCTC, b.MonthlyCTC,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			b.GrossMonthly, b.DeductionsTotal, b.NetMonthly).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
			AddRow("snap-2", time.Now()))

	if _, err := NewStore(h).CreateSnapshot(context.Background(), TargetEmployee, "e1", b); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateSnapshotLockedGuard(t *testing.T) {
	h, mock := mockHandle(t)

	b, err := ComputeBreakdown(700000)
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

	err = NewStore(h).UpdateSnapshot(context.Background(), "snap-1", b)
	if !errors.Is(err, ErrSnapshotLocked) {
		t.Fatalf("expected ErrSnapshotLocked, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateSnapshotMissing(t *testing.T) {
	h, mock := mockHandle(t)

	b, err := ComputeBreakdown(700000)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE salary_snapshots")).
		WithArgs("ghost", b.AnnualCTC, b.MonthlyCTC,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			b.GrossMonthly, b.DeductionsTotal, b.NetMonthly).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT locked FROM salary_snapshots")).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	err = NewStore(h).UpdateSnapshot(context.Background(), "ghost", b)
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestCreateRunDuplicateMonth(t *testing.T) {
	h, mock := mockHandle(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payroll_runs")).
		WithArgs(6, 2026, RunStatusCompleted, 12).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payroll_runs_month_year_key"})

	_, err := NewStore(h).CreateRun(context.Background(), 6, 2026, 12)
	if !errors.Is(err, ErrRunExists) {
		t.Fatalf("expected ErrRunExists, got %v", err)
	}
}
