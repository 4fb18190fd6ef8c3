package letters

import "errors"

var (
	ErrRenderingFailed = errors.New("letter rendering failed")
	ErrTargetNotFound  = errors.New("letter target not found")
	ErrUnknownKind     = errors.New("unknown letter kind")
)
