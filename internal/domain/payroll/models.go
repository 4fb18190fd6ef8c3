package payroll

import "time"

// MoneyRow is one named component of a salary snapshot. Yearly is the
// authored figure; Monthly is yearly / 12 rounded to 2 decimals.
type MoneyRow struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Monthly float64 `json:"monthlyAmount"`
	Yearly  float64 `json:"yearlyAmount"`
}

// Breakdown is the decomposition of an annual CTC into its components.
// Totals are internally consistent: gross - deductions = net.
type Breakdown struct {
	AnnualCTC       float64    `json:"annualCtc"`
	MonthlyCTC      float64    `json:"monthlyCtc"`
	Earnings        []MoneyRow `json:"earnings"`
	Deductions      []MoneyRow `json:"deductions"`
	Benefits        []MoneyRow `json:"benefits"`
	GrossMonthly    float64    `json:"grossMonthly"`
	DeductionsTotal float64    `json:"deductionsTotal"`
	NetMonthly      float64    `json:"netMonthly"`
}

// Snapshot is a point-in-time salary record for an employee or an
// applicant. The most recent snapshot per target is authoritative. Once
// locked, monetary fields never change.
type Snapshot struct {
	ID         string     `json:"id"`
	TargetType string     `json:"targetType"`
	TargetID   string     `json:"targetId"`
	Breakdown  Breakdown  `json:"breakdown"`
	Locked     bool       `json:"locked"`
	LockedAt   *time.Time `json:"lockedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type AttendanceRecord struct {
	EmployeeID string    `json:"employeeId"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
}

// AttendanceSummary is the outcome of computing a month's attendance.
// Fallback is empty when real records drove the numbers.
type AttendanceSummary struct {
	PresentDays float64 `json:"presentDays"`
	TotalDays   int     `json:"totalDays"`
	Fallback    string  `json:"fallback,omitempty"`
}

// Run is one payroll execution for a tenant month. At most one run exists
// per (month, year); the database enforces it with a unique index.
type Run struct {
	ID        string    `json:"id"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Status    string    `json:"status"`
	Eligible  int       `json:"eligible"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"createdAt"`
}

// RunItem is the per-employee outcome inside a run. Failure carries the
// reason; a failed item never has monetary figures. SnapshotID records
// the exact snapshot the run consumed; payslips read that row, never the
// latest revision.
type RunItem struct {
	ID          string  `json:"id"`
	RunID       string  `json:"runId"`
	EmployeeID  string  `json:"employeeId"`
	SnapshotID  string  `json:"snapshotId,omitempty"`
	Gross       float64 `json:"gross"`
	Deductions  float64 `json:"deductions"`
	Net         float64 `json:"net"`
	PresentDays float64 `json:"presentDays"`
	TotalDays   int     `json:"totalDays"`
	Error       string  `json:"error,omitempty"`
}

// EligibleEmployee is the slice of employee data the run needs.
type EligibleEmployee struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}
