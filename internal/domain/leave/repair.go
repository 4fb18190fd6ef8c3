package leave

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"peopleops/internal/tenant"
)

// RepairBalances backfills missing leave balances for every active employee
// with an assigned policy. This is the audited maintenance counterpart of
// the read-path engine: integrity violations found while serving requests
// are surfaced, and fixed only here, on an operator's explicit call.
func (s *Service) RepairBalances(ctx context.Context, h *tenant.Handle, now time.Time) (RepairSummary, error) {
	var summary RepairSummary

	rows, err := h.DB.Query(ctx, `
    SELECT id FROM employees
    WHERE status <> 'terminated' AND leave_policy_id IS NOT NULL
  `)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return summary, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	engine := s.engine(h)
	for _, id := range ids {
		summary.EmployeesChecked++
		result, err := engine.EnsureBalances(ctx, id, now)
		if errors.Is(err, ErrPolicyRulesEmpty) || errors.Is(err, ErrPolicyNotAssigned) {
			// The repair op reports broken assignments instead of
			// inventing rules for them.
			slog.Warn("leave repair skipped employee", "tenant", h.Code, "employeeId", id, "err", err)
			summary.EmployeesSkipped++
			continue
		}
		if err != nil {
			return summary, err
		}
		summary.BalancesCreated += result.Created
	}
	return summary, nil
}
