package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"peopleops/internal/db"
)

// Provisioner creates new tenant partitions: schema, tenant-local DDL, and
// the registry row. Used at signup and by the seeder.
type Provisioner struct {
	Pool          *pgxpool.Pool
	Registry      *Store
	MigrationsDir string
}

func NewProvisioner(pool *pgxpool.Pool, registry *Store, migrationsDir string) *Provisioner {
	return &Provisioner{Pool: pool, Registry: registry, MigrationsDir: migrationsDir}
}

func (p *Provisioner) Provision(ctx context.Context, code, name string) (Tenant, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !ValidCode(code) {
		return Tenant{}, fmt.Errorf("invalid tenant code %q", code)
	}

	if _, err := p.Registry.ByCode(ctx, code); err == nil {
		return Tenant{}, ErrCodeTaken
	}

	if err := db.MigrateTenantSchema(ctx, p.Pool, SchemaFor(code), p.MigrationsDir); err != nil {
		return Tenant{}, fmt.Errorf("provision schema for %s: %w", code, err)
	}

	t, err := p.Registry.Create(ctx, code, name)
	if err != nil {
		return Tenant{}, err
	}
	slog.Info("tenant provisioned", "code", t.Code, "schema", t.SchemaName)
	return t, nil
}

// UpgradeAll applies pending tenant migrations to every registered schema.
// Run at boot so existing tenants pick up new DDL.
func (p *Provisioner) UpgradeAll(ctx context.Context) error {
	tenants, err := p.Registry.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		if err := db.MigrateTenantSchema(ctx, p.Pool, t.SchemaName, p.MigrationsDir); err != nil {
			return fmt.Errorf("upgrade tenant %s: %w", t.Code, err)
		}
	}
	return nil
}
