package leave

import "time"

// PolicyRule is one named leave entitlement inside a policy. Rules are
// ordered; the order is preserved as authored.
type PolicyRule struct {
	LeaveType           string  `json:"leaveType"`
	TotalPerYear        float64 `json:"totalPerYear"`
	CarryForwardAllowed bool    `json:"carryForwardAllowed,omitempty"`
	MaxCarryForward     float64 `json:"maxCarryForward,omitempty"`
	RequiresApproval    bool    `json:"requiresApproval,omitempty"`
	Color               string  `json:"color,omitempty"`
}

type Policy struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Rules       []PolicyRule `json:"rules"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Balance is the per employee, per leave type, per cycle year ledger row.
// At most one row exists per (employee, leaveType, year); the database
// enforces it with a unique index.
type Balance struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employeeId"`
	LeaveType  string  `json:"leaveType"`
	Year       int     `json:"year"`
	Total      float64 `json:"total"`
	Available  float64 `json:"available"`
	Used       float64 `json:"used"`
	Pending    float64 `json:"pending"`
}

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestCanceled = "canceled"
)

type Request struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	LeaveType  string    `json:"leaveType"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Days       float64   `json:"days"`
	Reason     string    `json:"reason,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RepairSummary struct {
	EmployeesChecked int `json:"employeesChecked"`
	BalancesCreated  int `json:"balancesCreated"`
	EmployeesSkipped int `json:"employeesSkipped"`
}
