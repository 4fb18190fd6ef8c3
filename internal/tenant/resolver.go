package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// OpenFunc opens a connection pool whose queries are confined to the given
// schema. Swapped out in tests.
type OpenFunc func(ctx context.Context, schema string) (Querier, error)

type pooled struct {
	handle *Handle
	closer interface{ Close() }
}

// Resolver maps tenant ids to bound data-access handles. Pools are created
// lazily and cached. Concurrent resolution of the same tenant is collapsed
// into one registry lookup and one pool open; a slow open for one tenant
// never stalls resolution of another.
type Resolver struct {
	registry *Store
	open     OpenFunc

	flights singleflight.Group

	mu    sync.Mutex
	byID  map[string]*pooled
	codes map[string]string
}

func NewResolver(registry *Store, databaseURL string) *Resolver {
	return &Resolver{
		registry: registry,
		open:     pgxOpener(databaseURL),
		byID:     make(map[string]*pooled),
		codes:    make(map[string]string),
	}
}

// NewResolverWithOpener is used by tests to inject a fake pool opener.
func NewResolverWithOpener(registry *Store, open OpenFunc) *Resolver {
	return &Resolver{
		registry: registry,
		open:     open,
		byID:     make(map[string]*pooled),
		codes:    make(map[string]string),
	}
}

func pgxOpener(databaseURL string) OpenFunc {
	return func(ctx context.Context, schema string) (Querier, error) {
		poolCfg, err := pgxpool.ParseConfig(databaseURL)
		if err != nil {
			return nil, err
		}
		poolCfg.ConnConfig.RuntimeParams["search_path"] = schema + ",public"
		poolCfg.MaxConnLifetime = time.Hour
		poolCfg.MaxConns = 4
		poolCfg.MinConns = 0
		return pgxpool.NewWithConfig(ctx, poolCfg)
	}
}

// Resolve returns the handle for the tenant's data partition, creating and
// caching the underlying pool on first use.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (*Handle, error) {
	r.mu.Lock()
	entry, ok := r.byID[tenantID]
	r.mu.Unlock()
	if ok {
		return entry.handle, nil
	}

	v, err, _ := r.flights.Do("id:"+tenantID, func() (any, error) {
		t, err := r.registry.ByID(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		return r.admit(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// ResolveCode resolves by public tenant code; used by the career site where
// requests carry no credentials.
func (r *Resolver) ResolveCode(ctx context.Context, code string) (*Handle, error) {
	r.mu.Lock()
	var entry *pooled
	if id, ok := r.codes[code]; ok {
		entry = r.byID[id]
	}
	r.mu.Unlock()
	if entry != nil {
		return entry.handle, nil
	}

	v, err, _ := r.flights.Do("code:"+code, func() (any, error) {
		t, err := r.registry.ByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		return r.admit(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// admit opens and caches a pool for t. A resolve by id and one by code can
// race into separate flights for the same tenant, so the cache insert
// re-checks and keeps the first pool.
func (r *Resolver) admit(ctx context.Context, t Tenant) (*Handle, error) {
	if t.Status != StatusActive {
		return nil, fmt.Errorf("%w: tenant %s is %s", ErrTenantNotFound, t.Code, t.Status)
	}

	r.mu.Lock()
	entry, ok := r.byID[t.ID]
	r.mu.Unlock()
	if ok {
		return entry.handle, nil
	}

	db, err := r.open(ctx, t.SchemaName)
	if err != nil {
		return nil, fmt.Errorf("open tenant pool for %s: %w", t.Code, err)
	}

	handle := &Handle{TenantID: t.ID, Code: t.Code, Schema: t.SchemaName, DB: db}
	entry = &pooled{handle: handle}
	if closer, ok := db.(interface{ Close() }); ok {
		entry.closer = closer
	}

	r.mu.Lock()
	if existing, ok := r.byID[t.ID]; ok {
		r.mu.Unlock()
		if entry.closer != nil {
			entry.closer.Close()
		}
		return existing.handle, nil
	}
	r.byID[t.ID] = entry
	r.codes[t.Code] = t.ID
	r.mu.Unlock()
	return handle, nil
}

// Evict drops a cached handle, closing its pool. Used after suspension.
func (r *Resolver) Evict(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[tenantID]
	if !ok {
		return
	}
	delete(r.byID, tenantID)
	delete(r.codes, entry.handle.Code)
	if entry.closer != nil {
		entry.closer.Close()
	}
}

// Close releases every cached pool.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.byID {
		if entry.closer != nil {
			entry.closer.Close()
		}
		delete(r.byID, id)
	}
	r.codes = make(map[string]string)
}
