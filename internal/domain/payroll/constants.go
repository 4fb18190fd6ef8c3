package payroll

const (
	TargetEmployee  = "employee"
	TargetApplicant = "applicant"

	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceHalfDay = "half_day"
	AttendanceLeave   = "leave"

	RunStatusCompleted = "completed"

	// Fallback reasons are distinct so operators can tell an unstarted
	// attendance module apart from corrupt or mis-keyed records.
	FallbackNoRecords   = "no_records"
	FallbackZeroPresent = "zero_present"

	ComponentBasic      = "basic"
	ComponentHRA        = "hra"
	ComponentSpecial    = "special_allowance"
	ComponentPFEmployee = "pf_employee"
	ComponentPFEmployer = "pf_employer"
)
