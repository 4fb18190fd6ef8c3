package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// BalanceStore is the persistence surface the engine needs. The production
// implementation lives in store.go; tests substitute fakes.
type BalanceStore interface {
	EmployeePolicy(ctx context.Context, employeeID string) (Policy, error)
	CycleStartMonth(ctx context.Context) (int, error)
	BalancesForYear(ctx context.Context, employeeID string, year int) ([]Balance, error)
	BalanceFor(ctx context.Context, employeeID, leaveType string, year int) (Balance, error)
	InsertBalance(ctx context.Context, b Balance) (Balance, error)
}

type conflictCounter interface {
	RecordBalanceCreateConflict()
}

// Engine resolves policy rules into per-cycle balances. Creation is
// idempotent: the unique (employee, leaveType, year) index is the only
// concurrency safeguard, and a lost race is resolved by re-reading the row
// the winner created.
type Engine struct {
	Store   BalanceStore
	Metrics conflictCounter
}

func NewEngine(store BalanceStore, metrics conflictCounter) *Engine {
	return &Engine{Store: store, Metrics: metrics}
}

// EnsureResult reports the balances for the active cycle year plus how many
// rows this call created.
type EnsureResult struct {
	Year     int
	Balances []Balance
	Created  int
}

// EnsureBalances resolves the employee's policy and returns one balance per
// rule for the active cycle year, creating missing rows. An unassigned
// policy or an empty rule set is a data-integrity error surfaced to the
// caller; it is never patched here.
func (e *Engine) EnsureBalances(ctx context.Context, employeeID string, now time.Time) (EnsureResult, error) {
	var result EnsureResult

	policy, err := e.Store.EmployeePolicy(ctx, employeeID)
	if err != nil {
		return result, err
	}
	if len(policy.Rules) == 0 {
		return result, fmt.Errorf("%w: policy %s", ErrPolicyRulesEmpty, policy.ID)
	}

	startMonth, err := e.Store.CycleStartMonth(ctx)
	if err != nil {
		return result, err
	}
	result.Year = CycleYear(now, startMonth)

	existing, err := e.Store.BalancesForYear(ctx, employeeID, result.Year)
	if err != nil {
		return result, err
	}
	byType := make(map[string]Balance, len(existing))
	for _, b := range existing {
		byType[b.LeaveType] = b
	}

	for _, rule := range policy.Rules {
		if b, ok := byType[rule.LeaveType]; ok {
			result.Balances = append(result.Balances, b)
			continue
		}

		total := rule.TotalPerYear
		if rule.CarryForwardAllowed {
			carried, err := e.carryForward(ctx, employeeID, rule, result.Year)
			if err != nil {
				return result, err
			}
			total += carried
		}

		created, err := e.Store.InsertBalance(ctx, Balance{
			EmployeeID: employeeID,
			LeaveType:  rule.LeaveType,
			Year:       result.Year,
			Total:      total,
			Available:  total,
		})
		if err == nil {
			result.Created++
		}
		if errors.Is(err, ErrDuplicateBalance) {
			// Lost a creation race; the row exists now.
			if e.Metrics != nil {
				e.Metrics.RecordBalanceCreateConflict()
			}
			slog.Debug("leave balance creation race resolved by re-read",
				"employeeId", employeeID, "leaveType", rule.LeaveType, "year", result.Year)
			created, err = e.Store.BalanceFor(ctx, employeeID, rule.LeaveType, result.Year)
		}
		if err != nil {
			return result, err
		}
		result.Balances = append(result.Balances, created)
	}
	return result, nil
}

func (e *Engine) carryForward(ctx context.Context, employeeID string, rule PolicyRule, year int) (float64, error) {
	prior, err := e.Store.BalanceFor(ctx, employeeID, rule.LeaveType, year-1)
	if errors.Is(err, ErrBalanceNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	carried := prior.Available
	if rule.MaxCarryForward > 0 && carried > rule.MaxCarryForward {
		carried = rule.MaxCarryForward
	}
	if carried < 0 {
		carried = 0
	}
	return carried, nil
}
