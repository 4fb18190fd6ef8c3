package payroll

import "errors"

var (
	ErrSalaryStructureMissing = errors.New("employee has no salary snapshot")
	ErrSnapshotNotFound       = errors.New("salary snapshot not found")
	ErrSnapshotLocked         = errors.New("salary snapshot is locked")
	ErrRunExists              = errors.New("payroll run already exists for this month")
	ErrRunNotFound            = errors.New("payroll run not found")
	ErrInvalidCTC             = errors.New("annual ctc must be positive")
)
