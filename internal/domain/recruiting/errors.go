package recruiting

import "errors"

var (
	ErrRequirementNotFound = errors.New("requirement not found")
	ErrTemplateNotFound    = errors.New("pipeline template not found")
	ErrPipelineNotFound    = errors.New("job pipeline not found")
	ErrApplicantNotFound   = errors.New("applicant not found")
	ErrStageNotInPipeline  = errors.New("stage does not belong to this pipeline")
	ErrAlreadyHired        = errors.New("applicant already hired")
	ErrStageSetMismatch    = errors.New("reorder must keep the same stage set")
)
