package recruiting

import "time"

const (
	RequirementOpen   = "open"
	RequirementOnHold = "on_hold"
	RequirementClosed = "closed"
)

// Requirement is a job opening. Only published requirements appear on the
// public career site.
type Requirement struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	DepartmentID *string   `json:"departmentId,omitempty"`
	Openings     int       `json:"openings"`
	Status       string    `json:"status"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Stage is one step of a hiring pipeline. The ID is a uuid minted at
// creation and survives renames and reorders; feedback rows key on it.
type Stage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PipelineTemplate is a reusable stage layout. Deleting is soft so
// pipelines already instantiated from it keep their provenance.
type PipelineTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stages    []Stage   `json:"stages"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobPipeline is the concrete pipeline of one requirement.
type JobPipeline struct {
	ID            string    `json:"id"`
	RequirementID string    `json:"requirementId"`
	TemplateID    *string   `json:"templateId,omitempty"`
	Stages        []Stage   `json:"stages"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Applicant struct {
	ID            string    `json:"id"`
	RequirementID string    `json:"requirementId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	StageID       string    `json:"stageId"`
	EmployeeID    *string   `json:"employeeId,omitempty"`
	SnapshotID    *string   `json:"snapshotId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// StageHistory is one move of an applicant between stages.
type StageHistory struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicantId"`
	FromStageID string    `json:"fromStageId,omitempty"`
	ToStageID   string    `json:"toStageId"`
	MovedBy     string    `json:"movedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StageFeedback keys on (applicant, stage id), so reordering the pipeline
// never orphans it.
type StageFeedback struct {
	ID          string     `json:"id"`
	ApplicantID string     `json:"applicantId"`
	StageID     string     `json:"stageId"`
	Interviewer string     `json:"interviewer,omitempty"`
	Rating      int        `json:"rating,omitempty"`
	Comments    string     `json:"comments,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
