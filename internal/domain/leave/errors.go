package leave

import "errors"

var (
	ErrPolicyNotFound      = errors.New("leave policy not found")
	ErrPolicyNotAssigned   = errors.New("employee has no leave policy assigned")
	ErrPolicyRulesEmpty    = errors.New("leave policy has an empty rule set")
	ErrDuplicateBalance    = errors.New("leave balance already exists for employee, type and year")
	ErrBalanceNotFound     = errors.New("leave balance not found")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrRequestNotFound     = errors.New("leave request not found")
	ErrInvalidTransition   = errors.New("invalid leave request state transition")
)
