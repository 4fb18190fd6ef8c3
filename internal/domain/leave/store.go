package leave

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"peopleops/internal/tenant"
)

// Store implements BalanceStore against a resolved tenant partition. It is
// cheap to construct; handlers build one per request around the handle.
type Store struct {
	H *tenant.Handle
}

func NewStore(h *tenant.Handle) *Store {
	return &Store{H: h}
}

func (s *Store) EmployeePolicy(ctx context.Context, employeeID string) (Policy, error) {
	var policyID *string
	err := s.H.DB.QueryRow(ctx, "SELECT leave_policy_id FROM employees WHERE id = $1", employeeID).Scan(&policyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Policy{}, ErrPolicyNotAssigned
	}
	if err != nil {
		return Policy{}, err
	}
	if policyID == nil {
		return Policy{}, ErrPolicyNotAssigned
	}
	return s.PolicyByID(ctx, *policyID)
}

func (s *Store) PolicyByID(ctx context.Context, policyID string) (Policy, error) {
	var p Policy
	var rulesJSON []byte
	err := s.H.DB.QueryRow(ctx, `
    SELECT id, name, description, rules, created_at
    FROM leave_policies
    WHERE id = $1
  `, policyID).Scan(&p.ID, &p.Name, &p.Description, &rulesJSON, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Policy{}, ErrPolicyNotFound
	}
	if err != nil {
		return Policy{}, err
	}
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &p.Rules); err != nil {
			return Policy{}, err
		}
	}
	return p, nil
}

func (s *Store) CycleStartMonth(ctx context.Context) (int, error) {
	var month int
	err := s.H.DB.QueryRow(ctx, "SELECT leave_cycle_start_month FROM attendance_settings LIMIT 1").Scan(&month)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return month, nil
}

func (s *Store) BalancesForYear(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	rows, err := s.H.DB.Query(ctx, `
    SELECT id, employee_id, leave_type, year, total, available, used, pending
    FROM leave_balances
    WHERE employee_id = $1 AND year = $2
    ORDER BY leave_type
  `, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.LeaveType, &b.Year, &b.Total, &b.Available, &b.Used, &b.Pending); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) BalanceFor(ctx context.Context, employeeID, leaveType string, year int) (Balance, error) {
	var b Balance
	err := s.H.DB.QueryRow(ctx, `
    SELECT id, employee_id, leave_type, year, total, available, used, pending
    FROM leave_balances
    WHERE employee_id = $1 AND leave_type = $2 AND year = $3
  `, employeeID, leaveType, year).Scan(&b.ID, &b.EmployeeID, &b.LeaveType, &b.Year, &b.Total, &b.Available, &b.Used, &b.Pending)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrBalanceNotFound
	}
	if err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (s *Store) InsertBalance(ctx context.Context, b Balance) (Balance, error) {
	err := s.H.DB.QueryRow(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, leave_type, year, total, available, used, pending)
    VALUES ($1, $2, $3, $4, $5, $6, 0, 0)
    RETURNING id
  `, s.H.TenantID, b.EmployeeID, b.LeaveType, b.Year, b.Total, b.Available).Scan(&b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Balance{}, ErrDuplicateBalance
		}
		return Balance{}, err
	}
	return b, nil
}
