package tenant

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Tenant is a row in the shared registry. Tenants are provisioned at signup
// and never hard-deleted; suspension hides them from resolution.
type Tenant struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	SchemaName string    `json:"schemaName"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Querier is the subset of pgxpool.Pool the domain layer depends on.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Handle binds a resolved tenant to its isolated data partition. It is passed
// explicitly through the call chain; queries issued on DB see only the
// tenant's schema.
type Handle struct {
	TenantID string
	Code     string
	Schema   string
	DB       Querier
}
