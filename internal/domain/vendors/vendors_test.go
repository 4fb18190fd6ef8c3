package vendors

import (
	"context"
	"errors"
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

func registrationRows() *pgxmock.Rows {
	reviewedBy := "u1"
	reviewedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "company_name", "contact_name", "contact_email", "phone", "services",
		"bank_name", "bank_account", "status", "reviewed_by", "review_note", "reviewed_at", "created_at",
	}).AddRow("v1", "Clean Co", "Dana Perera", "dana@cleanco.example", "", "office cleaning",
		"First Bank", "1234", StatusApproved, &reviewedBy, "ok", &reviewedAt, reviewedAt.Add(-time.Hour))
}

func TestReviewApprovesPending(t *testing.T) {
	h, mock := mockHandle(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vendor_registrations")).
		WithArgs("v1", StatusApproved, "u1", "ok", StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM vendor_registrations")).
		WithArgs("v1").
		WillReturnRows(registrationRows())

	got, err := NewService().Review(context.Background(), h, "v1", StatusApproved, "u1", "ok")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReviewAlreadySettled(t *testing.T) {
	h, mock := mockHandle(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vendor_registrations")).
		WithArgs("v1", StatusRejected, "u1", "", StatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM vendor_registrations")).
		WithArgs("v1").
		WillReturnRows(registrationRows())

	_, err := NewService().Review(context.Background(), h, "v1", StatusRejected, "u1", "")
	if !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestReviewRejectsBadDecision(t *testing.T) {
	h, _ := mockHandle(t)

	_, err := NewService().Review(context.Background(), h, "v1", "maybe", "u1", "")
	if !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
}
