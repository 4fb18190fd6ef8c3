package tenant

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

type fakePool struct {
	Querier
	schema string
	closed atomic.Bool
}

func (f *fakePool) Close() {
	f.closed.Store(true)
}

func registryWithTenant(t *testing.T, id, code string) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	rows := pgxmock.NewRows([]string{"id", "code", "name", "schema_name", "status", "created_at"}).
		AddRow(id, code, "Test Tenant", SchemaFor(code), StatusActive, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM shared.tenants")).
		WithArgs(id).
		WillReturnRows(rows)
	return NewStore(mock), mock
}

func TestResolveCachesPool(t *testing.T) {
	registry, mock := registryWithTenant(t, "t1", "acme")
	defer mock.Close()

	var opens atomic.Int32
	resolver := NewResolverWithOpener(registry, func(ctx context.Context, schema string) (Querier, error) {
		opens.Add(1)
		return &fakePool{schema: schema}, nil
	})

	first, err := resolver.Resolve(context.Background(), "t1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first.Schema != "tenant_acme" {
		t.Fatalf("unexpected schema %q", first.Schema)
	}

	second, err := resolver.Resolve(context.Background(), "t1")
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if first != second {
		t.Fatal("expected cached handle on second resolve")
	}
	if opens.Load() != 1 {
		t.Fatalf("expected one pool open, got %d", opens.Load())
	}
}

func TestResolveConcurrentSameTenant(t *testing.T) {
	registry, mock := registryWithTenant(t, "t1", "acme")
	defer mock.Close()

	var opens atomic.Int32
	resolver := NewResolverWithOpener(registry, func(ctx context.Context, schema string) (Querier, error) {
		opens.Add(1)
		return &fakePool{schema: schema}, nil
	})

	var wg sync.WaitGroup
	handles := make([]*Handle, 16)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := resolver.Resolve(context.Background(), "t1")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	if opens.Load() != 1 {
		t.Fatalf("expected exactly one live pool, got %d opens", opens.Load())
	}
	for _, h := range handles {
		if h != handles[0] {
			t.Fatal("all goroutines must share one handle")
		}
	}
}

// One tenant's slow pool open must not stall resolution of another tenant.
func TestResolveSlowTenantDoesNotBlockOthers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	mock.MatchExpectationsInOrder(false)
	for _, tn := range []struct{ id, code string }{{"t-slow", "slowco"}, {"t-fast", "fastco"}} {
		rows := pgxmock.NewRows([]string{"id", "code", "name", "schema_name", "status", "created_at"}).
			AddRow(tn.id, tn.code, "Test Tenant", SchemaFor(tn.code), StatusActive, time.Now())
		mock.ExpectQuery(regexp.QuoteMeta("FROM shared.tenants")).
			WithArgs(tn.id).
			WillReturnRows(rows)
	}

	slowOpening := make(chan struct{})
	release := make(chan struct{})
	resolver := NewResolverWithOpener(NewStore(mock), func(ctx context.Context, schema string) (Querier, error) {
		if schema == "tenant_slowco" {
			close(slowOpening)
			<-release
		}
		return &fakePool{schema: schema}, nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := resolver.Resolve(context.Background(), "t-slow"); err != nil {
			t.Errorf("resolve slow tenant: %v", err)
		}
	}()
	<-slowOpening

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve(context.Background(), "t-fast")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("resolve fast tenant: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("healthy tenant stalled behind another tenant's pool open")
	}
	close(release)
	wg.Wait()
}

func TestResolveUnknownTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	mock.ExpectQuery(regexp.QuoteMeta("FROM shared.tenants")).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "name", "schema_name", "status", "created_at"}))

	resolver := NewResolverWithOpener(NewStore(mock), func(ctx context.Context, schema string) (Querier, error) {
		t.Fatal("opener must not run for unknown tenants")
		return nil, nil
	})

	_, err = resolver.Resolve(context.Background(), "nope")
	if !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestResolveSuspendedTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	rows := pgxmock.NewRows([]string{"id", "code", "name", "schema_name", "status", "created_at"}).
		AddRow("t2", "dormant", "Dormant Inc", SchemaFor("dormant"), StatusSuspended, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM shared.tenants")).
		WithArgs("t2").
		WillReturnRows(rows)

	resolver := NewResolverWithOpener(NewStore(mock), func(ctx context.Context, schema string) (Querier, error) {
		t.Fatal("opener must not run for suspended tenants")
		return nil, nil
	})

	_, err = resolver.Resolve(context.Background(), "t2")
	if !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

func TestEvictClosesPool(t *testing.T) {
	registry, mock := registryWithTenant(t, "t1", "acme")
	defer mock.Close()

	pool := &fakePool{}
	resolver := NewResolverWithOpener(registry, func(ctx context.Context, schema string) (Querier, error) {
		pool.schema = schema
		return pool, nil
	})

	if _, err := resolver.Resolve(context.Background(), "t1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	resolver.Evict("t1")
	if !pool.closed.Load() {
		t.Fatal("evict must close the cached pool")
	}
}

func TestValidCode(t *testing.T) {
	valid := []string{"acme", "blue-sky", "a1b"}
	invalid := []string{"", "A", "-acme", "acme-", "has space", "x"}
	for _, code := range valid {
		if !ValidCode(code) {
			t.Fatalf("expected %q to be valid", code)
		}
	}
	for _, code := range invalid {
		if ValidCode(code) {
			t.Fatalf("expected %q to be invalid", code)
		}
	}
}
