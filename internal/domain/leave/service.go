package leave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"peopleops/internal/tenant"
)

// Service owns leave policies, balances, and requests for tenant partitions.
type Service struct {
	Metrics conflictCounter
}

func NewService(metrics conflictCounter) *Service {
	return &Service{Metrics: metrics}
}

func (s *Service) engine(h *tenant.Handle) *Engine {
	return NewEngine(NewStore(h), s.Metrics)
}

// ValidateRules rejects a rule set that would leave the policy unusable.
// An empty rule set must never be persisted; the balance engine treats it as
// a data-integrity error on read.
func ValidateRules(rules []PolicyRule) error {
	if len(rules) == 0 {
		return ErrPolicyRulesEmpty
	}
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		name := strings.TrimSpace(rule.LeaveType)
		if name == "" {
			return fmt.Errorf("rule leave type is required")
		}
		if rule.TotalPerYear < 0 {
			return fmt.Errorf("rule %s: totalPerYear must not be negative", name)
		}
		if rule.CarryForwardAllowed && rule.MaxCarryForward < 0 {
			return fmt.Errorf("rule %s: maxCarryForward must not be negative", name)
		}
		if seen[name] {
			return fmt.Errorf("rule %s: duplicate leave type", name)
		}
		seen[name] = true
	}
	return nil
}

func (s *Service) CreatePolicy(ctx context.Context, h *tenant.Handle, p Policy) (string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", fmt.Errorf("policy name is required")
	}
	if err := ValidateRules(p.Rules); err != nil {
		return "", err
	}
	rulesJSON, err := json.Marshal(p.Rules)
	if err != nil {
		return "", err
	}
	var id string
	err = h.DB.QueryRow(ctx, `
    INSERT INTO leave_policies (tenant_id, name, description, rules)
    VALUES ($1, $2, $3, $4)
    RETURNING id
  `, h.TenantID, p.Name, p.Description, rulesJSON).Scan(&id)
	return id, err
}

func (s *Service) UpdatePolicyRules(ctx context.Context, h *tenant.Handle, policyID string, rules []PolicyRule) error {
	if err := ValidateRules(rules); err != nil {
		return err
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	tag, err := h.DB.Exec(ctx, "UPDATE leave_policies SET rules = $2 WHERE id = $1", policyID, rulesJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

func (s *Service) ListPolicies(ctx context.Context, h *tenant.Handle) ([]Policy, error) {
	rows, err := h.DB.Query(ctx, `
    SELECT id, name, description, rules, created_at
    FROM leave_policies
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		var p Policy
		var rulesJSON []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &rulesJSON, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(rulesJSON) > 0 {
			if err := json.Unmarshal(rulesJSON, &p.Rules); err != nil {
				return nil, err
			}
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Service) GetPolicy(ctx context.Context, h *tenant.Handle, policyID string) (Policy, error) {
	return NewStore(h).PolicyByID(ctx, policyID)
}

// Balances ensures and returns the employee's balances for the active cycle
// year.
func (s *Service) Balances(ctx context.Context, h *tenant.Handle, employeeID string, now time.Time) (EnsureResult, error) {
	return s.engine(h).EnsureBalances(ctx, employeeID, now)
}

func (s *Service) CreateRequest(ctx context.Context, h *tenant.Handle, employeeID, leaveType, reason string, start, end time.Time) (Request, error) {
	days, err := CalculateDays(start, end)
	if err != nil {
		return Request{}, err
	}

	ensured, err := s.engine(h).EnsureBalances(ctx, employeeID, start)
	if err != nil {
		return Request{}, err
	}

	var rule *PolicyRule
	policy, err := NewStore(h).EmployeePolicy(ctx, employeeID)
	if err != nil {
		return Request{}, err
	}
	for i := range policy.Rules {
		if policy.Rules[i].LeaveType == leaveType {
			rule = &policy.Rules[i]
			break
		}
	}
	if rule == nil {
		return Request{}, fmt.Errorf("%w: no rule for leave type %s", ErrBalanceNotFound, leaveType)
	}

	var balance *Balance
	for i := range ensured.Balances {
		if ensured.Balances[i].LeaveType == leaveType {
			balance = &ensured.Balances[i]
			break
		}
	}
	if balance == nil {
		return Request{}, ErrBalanceNotFound
	}
	if balance.Available < days {
		return Request{}, fmt.Errorf("%w: %s has %.1f available, requested %.1f", ErrInsufficientBalance, leaveType, balance.Available, days)
	}

	status := RequestApproved
	if rule.RequiresApproval {
		status = RequestPending
	}

	// The request row and the balance debit commit together; a request
	// without its debit would let the balance be spent twice.
	tx, err := h.DB.Begin(ctx)
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx)

	var req Request
	err = tx.QueryRow(ctx, `
    INSERT INTO leave_requests (tenant_id, employee_id, leave_type, start_date, end_date, days, reason, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id, employee_id, leave_type, start_date, end_date, days, reason, status, created_at
  `, h.TenantID, employeeID, leaveType, start, end, days, reason, status).
		Scan(&req.ID, &req.EmployeeID, &req.LeaveType, &req.StartDate, &req.EndDate, &req.Days, &req.Reason, &req.Status, &req.CreatedAt)
	if err != nil {
		return Request{}, err
	}

	debit := `
    UPDATE leave_balances
    SET available = available - $4, used = used + $4
    WHERE employee_id = $1 AND leave_type = $2 AND year = $3
  `
	if status == RequestPending {
		debit = `
    UPDATE leave_balances
    SET available = available - $4, pending = pending + $4
    WHERE employee_id = $1 AND leave_type = $2 AND year = $3
  `
	}
	if _, err := tx.Exec(ctx, debit, employeeID, leaveType, ensured.Year, days); err != nil {
		return Request{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return req, nil
}

func (s *Service) ListRequests(ctx context.Context, h *tenant.Handle, employeeID string, limit, offset int) ([]Request, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := h.DB.Query(ctx, `
    SELECT id, employee_id, leave_type, start_date, end_date, days, reason, status, created_at
    FROM leave_requests
    WHERE ($1 = '' OR employee_id::text = $1)
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.EmployeeID, &req.LeaveType, &req.StartDate, &req.EndDate, &req.Days, &req.Reason, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Resolve moves a pending request to approved or rejected and settles the
// pending balance either into used or back into available.
func (s *Service) Resolve(ctx context.Context, h *tenant.Handle, requestID, decision string) (Request, error) {
	if decision != RequestApproved && decision != RequestRejected {
		return Request{}, fmt.Errorf("%w: decision %s", ErrInvalidTransition, decision)
	}

	var req Request
	err := h.DB.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $2, resolved_at = now()
    WHERE id = $1 AND status = 'pending'
    RETURNING id, employee_id, leave_type, start_date, end_date, days, reason, status, created_at
  `, requestID, decision).
		Scan(&req.ID, &req.EmployeeID, &req.LeaveType, &req.StartDate, &req.EndDate, &req.Days, &req.Reason, &req.Status, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrInvalidTransition
	}
	if err != nil {
		return Request{}, err
	}

	startMonth, err := NewStore(h).CycleStartMonth(ctx)
	if err != nil {
		return Request{}, err
	}
	year := CycleYear(req.StartDate, startMonth)

	if decision == RequestApproved {
		_, err = h.DB.Exec(ctx, `
      UPDATE leave_balances
      SET pending = pending - $4, used = used + $4
      WHERE employee_id = $1 AND leave_type = $2 AND year = $3
    `, req.EmployeeID, req.LeaveType, year, req.Days)
	} else {
		_, err = h.DB.Exec(ctx, `
      UPDATE leave_balances
      SET pending = pending - $4, available = available + $4
      WHERE employee_id = $1 AND leave_type = $2 AND year = $3
    `, req.EmployeeID, req.LeaveType, year, req.Days)
	}
	if err != nil {
		return Request{}, err
	}
	return req, nil
}
