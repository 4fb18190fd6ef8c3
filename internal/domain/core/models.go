package core

import "time"

const (
	StatusActive     = "active"
	StatusOnNotice   = "on_notice"
	StatusTerminated = "terminated"
)

type Employee struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	DepartmentID  *string    `json:"departmentId,omitempty"`
	ManagerID     *string    `json:"managerId,omitempty"`
	LeavePolicyID *string    `json:"leavePolicyId,omitempty"`
	JoiningDate   *time.Time `json:"joiningDate,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// AttendanceSettings is per-tenant configuration. LeaveCycleStartMonth is
// 0-indexed (0 = January); the leave year is the rolling 12 months starting
// at that month, not the calendar year.
type AttendanceSettings struct {
	LeaveCycleStartMonth int   `json:"leaveCycleStartMonth"`
	WeeklyOffDays        []int `json:"weeklyOffDays"`
	AttendanceLockDay    int   `json:"attendanceLockDay"`
}
