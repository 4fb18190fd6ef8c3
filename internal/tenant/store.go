package tenant

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store reads and writes the shared tenant registry.
type Store struct {
	DB Querier
}

func NewStore(db Querier) *Store {
	return &Store{DB: db}
}

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,30}[a-z0-9]$`)

// ValidCode reports whether code is usable as a tenant identifier. The code
// doubles as the public career-site slug and feeds the schema name.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// SchemaFor derives the physical schema name for a tenant code.
func SchemaFor(code string) string {
	return "tenant_" + strings.ReplaceAll(code, "-", "_")
}

func (s *Store) Create(ctx context.Context, code, name string) (Tenant, error) {
	var t Tenant
	err := s.DB.QueryRow(ctx, `
    INSERT INTO shared.tenants (code, name, schema_name, status)
    VALUES ($1, $2, $3, $4)
    RETURNING id, code, name, schema_name, status, created_at
  `, code, name, SchemaFor(code), StatusActive).
		Scan(&t.ID, &t.Code, &t.Name, &t.SchemaName, &t.Status, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Tenant{}, ErrCodeTaken
		}
		return Tenant{}, err
	}
	return t, nil
}

func (s *Store) ByID(ctx context.Context, tenantID string) (Tenant, error) {
	return s.one(ctx, `
    SELECT id, code, name, schema_name, status, created_at
    FROM shared.tenants
    WHERE id = $1
  `, tenantID)
}

func (s *Store) ByCode(ctx context.Context, code string) (Tenant, error) {
	return s.one(ctx, `
    SELECT id, code, name, schema_name, status, created_at
    FROM shared.tenants
    WHERE code = $1
  `, code)
}

func (s *Store) one(ctx context.Context, sql string, arg any) (Tenant, error) {
	var t Tenant
	err := s.DB.QueryRow(ctx, sql, arg).
		Scan(&t.ID, &t.Code, &t.Name, &t.SchemaName, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrTenantNotFound
	}
	if err != nil {
		return Tenant{}, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]Tenant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, code, name, schema_name, status, created_at
    FROM shared.tenants
    ORDER BY created_at
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.SchemaName, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) SetStatus(ctx context.Context, tenantID, status string) error {
	tag, err := s.DB.Exec(ctx, "UPDATE shared.tenants SET status = $2 WHERE id = $1", tenantID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}
