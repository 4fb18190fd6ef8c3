package auth

const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleManager  = "manager"
	RoleRecruit  = "recruiter"
	RoleEmployee = "employee"
)

const (
	PermEmployeesRead   = "core.employees.read"
	PermEmployeesWrite  = "core.employees.write"
	PermSettingsWrite   = "core.settings.write"
	PermLeaveRead       = "leave.read"
	PermLeaveWrite      = "leave.write"
	PermLeaveApprove    = "leave.approve"
	PermPayrollRead     = "payroll.read"
	PermPayrollWrite    = "payroll.write"
	PermPayrollRun      = "payroll.run"
	PermLettersGenerate = "letters.generate"
	PermRecruitingRead  = "recruiting.read"
	PermRecruitingWrite = "recruiting.write"
	PermVendorsRead     = "vendors.read"
	PermVendorsWrite    = "vendors.write"
	PermAuditRead       = "audit.read"
	PermAdminRepair     = "admin.repair"
	PermAdminMetrics    = "admin.metrics"
)

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermPayrollRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermPayrollRead,
		PermRecruitingRead,
	},
	RoleRecruit: {
		PermEmployeesRead,
		PermRecruitingRead,
		PermRecruitingWrite,
		PermVendorsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermSettingsWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollRun,
		PermLettersGenerate,
		PermRecruitingRead,
		PermRecruitingWrite,
		PermVendorsRead,
		PermVendorsWrite,
		PermAuditRead,
	},
}

// HasPermission reports whether role grants perm. Admin holds every
// permission implicitly.
func HasPermission(role, perm string) bool {
	if role == RoleAdmin {
		return true
	}
	for _, granted := range RolePermissions[role] {
		if granted == perm {
			return true
		}
	}
	return false
}
