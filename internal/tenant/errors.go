package tenant

import "errors"

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrCodeTaken      = errors.New("tenant code already registered")
)
