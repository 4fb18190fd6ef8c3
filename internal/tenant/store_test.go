package tenant

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestCreateDuplicateCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shared.tenants")).
		WithArgs("acme", "Acme Corp", "tenant_acme", StatusActive).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "tenants_code_key"})

	_, err = NewStore(mock).Create(context.Background(), "acme", "Acme Corp")
	if !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func TestByCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "code", "name", "schema_name", "status", "created_at"}).
		AddRow("t9", "blue-sky", "Blue Sky Ltd", "tenant_blue_sky", StatusActive, created)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE code = $1")).
		WithArgs("blue-sky").
		WillReturnRows(rows)

	got, err := NewStore(mock).ByCode(context.Background(), "blue-sky")
	if err != nil {
		t.Fatalf("by code: %v", err)
	}
	if got.SchemaName != "tenant_blue_sky" || got.ID != "t9" {
		t.Fatalf("unexpected tenant %+v", got)
	}
}

func TestSchemaFor(t *testing.T) {
	if SchemaFor("blue-sky") != "tenant_blue_sky" {
		t.Fatalf("unexpected schema %q", SchemaFor("blue-sky"))
	}
}
