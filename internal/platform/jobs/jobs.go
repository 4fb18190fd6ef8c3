// Package jobs runs periodic background work against every tenant.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"peopleops/internal/domain/leave"
	"peopleops/internal/tenant"
)

// Runner walks the tenant registry on a fixed interval and repairs leave
// balances so new cycle years materialize without waiting for a request.
type Runner struct {
	Registry *tenant.Store
	Resolver *tenant.Resolver
	Leave    *leave.Service
	Interval time.Duration
	Logger   *slog.Logger
}

func (r *Runner) Start(ctx context.Context) {
	if r.Interval <= 0 {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.syncAll(ctx, logger)
			}
		}
	}()
}

func (r *Runner) syncAll(ctx context.Context, logger *slog.Logger) {
	tenants, err := r.Registry.List(ctx)
	if err != nil {
		logger.Error("balance sync: list tenants", "err", err)
		return
	}
	now := time.Now().UTC()
	for _, t := range tenants {
		if t.Status != tenant.StatusActive {
			continue
		}
		handle, err := r.Resolver.Resolve(ctx, t.ID)
		if err != nil {
			logger.Error("balance sync: resolve tenant", "tenant", t.Code, "err", err)
			continue
		}
		summary, err := r.Leave.RepairBalances(ctx, handle, now)
		if err != nil {
			logger.Error("balance sync failed", "tenant", t.Code, "err", err)
			continue
		}
		if summary.BalancesCreated > 0 {
			logger.Info("balance sync",
				"tenant", t.Code,
				"checked", summary.EmployeesChecked,
				"created", summary.BalancesCreated)
		}
	}
}
