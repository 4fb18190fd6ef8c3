package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"peopleops/internal/tenant"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmailTaken       = errors.New("employee email already in use")
	ErrInvalidSettings  = errors.New("leave cycle start month must be 0-11")
)

// Service owns employee records, departments, and tenant attendance
// settings. Every method takes the resolved tenant handle explicitly.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) ListEmployees(ctx context.Context, h *tenant.Handle, status string, limit, offset int) ([]Employee, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := h.DB.Query(ctx, `
    SELECT id, first_name, last_name, email, role, department_id, manager_id, leave_policy_id, joining_date, status, created_at, updated_at
    FROM employees
    WHERE ($1 = '' OR status = $1)
    ORDER BY last_name, first_name
    LIMIT $2 OFFSET $3
  `, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Role, &e.DepartmentID, &e.ManagerID, &e.LeavePolicyID, &e.JoiningDate, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Service) GetEmployee(ctx context.Context, h *tenant.Handle, employeeID string) (Employee, error) {
	var e Employee
	err := h.DB.QueryRow(ctx, `
    SELECT id, first_name, last_name, email, role, department_id, manager_id, leave_policy_id, joining_date, status, created_at, updated_at
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Role, &e.DepartmentID, &e.ManagerID, &e.LeavePolicyID, &e.JoiningDate, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

func (s *Service) CreateEmployee(ctx context.Context, h *tenant.Handle, e Employee) (string, error) {
	if strings.TrimSpace(e.FirstName) == "" || strings.TrimSpace(e.Email) == "" {
		return "", fmt.Errorf("first name and email are required")
	}
	var id string
	err := h.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, first_name, last_name, email, role, department_id, manager_id, leave_policy_id, joining_date, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    RETURNING id
  `, h.TenantID, e.FirstName, e.LastName, e.Email, e.Role, e.DepartmentID, e.ManagerID, e.LeavePolicyID, e.JoiningDate, StatusActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return id, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, h *tenant.Handle, employeeID string, e Employee) error {
	tag, err := h.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $2, last_name = $3, role = $4, department_id = $5, manager_id = $6, updated_at = now()
    WHERE id = $1
  `, employeeID, e.FirstName, e.LastName, e.Role, e.DepartmentID, e.ManagerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Service) AssignLeavePolicy(ctx context.Context, h *tenant.Handle, employeeID, policyID string) error {
	tag, err := h.DB.Exec(ctx, `
    UPDATE employees SET leave_policy_id = $2, updated_at = now() WHERE id = $1
  `, employeeID, policyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

// Terminate soft-terminates: the record stays for payroll history.
func (s *Service) Terminate(ctx context.Context, h *tenant.Handle, employeeID string) error {
	tag, err := h.DB.Exec(ctx, `
    UPDATE employees SET status = $2, updated_at = now() WHERE id = $1 AND status <> $2
  `, employeeID, StatusTerminated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Service) ListDepartments(ctx context.Context, h *tenant.Handle) ([]Department, error) {
	rows, err := h.DB.Query(ctx, "SELECT id, name, created_at FROM departments ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

func (s *Service) CreateDepartment(ctx context.Context, h *tenant.Handle, name string) (string, error) {
	var id string
	err := h.DB.QueryRow(ctx, `
    INSERT INTO departments (tenant_id, name) VALUES ($1, $2) RETURNING id
  `, h.TenantID, name).Scan(&id)
	return id, err
}

// Settings returns the tenant's attendance settings, falling back to
// defaults when the row has not been created yet.
func (s *Service) Settings(ctx context.Context, h *tenant.Handle) (AttendanceSettings, error) {
	var settings AttendanceSettings
	err := h.DB.QueryRow(ctx, `
    SELECT leave_cycle_start_month, weekly_off_days, attendance_lock_day
    FROM attendance_settings
    LIMIT 1
  `).Scan(&settings.LeaveCycleStartMonth, &settings.WeeklyOffDays, &settings.AttendanceLockDay)
	if errors.Is(err, pgx.ErrNoRows) {
		return AttendanceSettings{LeaveCycleStartMonth: 0, WeeklyOffDays: []int{0}, AttendanceLockDay: 25}, nil
	}
	if err != nil {
		return AttendanceSettings{}, err
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, h *tenant.Handle, settings AttendanceSettings) error {
	if settings.LeaveCycleStartMonth < 0 || settings.LeaveCycleStartMonth > 11 {
		return ErrInvalidSettings
	}
	_, err := h.DB.Exec(ctx, `
    INSERT INTO attendance_settings (tenant_id, leave_cycle_start_month, weekly_off_days, attendance_lock_day)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (tenant_id) DO UPDATE
    SET leave_cycle_start_month = EXCLUDED.leave_cycle_start_month,
        weekly_off_days = EXCLUDED.weekly_off_days,
        attendance_lock_day = EXCLUDED.attendance_lock_day
  `, h.TenantID, settings.LeaveCycleStartMonth, settings.WeeklyOffDays, settings.AttendanceLockDay)
	return err
}
