package recruiting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"peopleops/internal/platform/email"
	"peopleops/internal/tenant"
)

type Service struct {
	mailer   email.Mailer
	fromAddr string
	logger   *slog.Logger
}

func NewService(mailer email.Mailer, fromAddr string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{mailer: mailer, fromAddr: fromAddr, logger: logger}
}

// Requirements

func (s *Service) CreateRequirement(ctx context.Context, h *tenant.Handle, r Requirement) (string, error) {
	if r.Openings <= 0 {
		r.Openings = 1
	}
	var id string
	err := h.DB.QueryRow(ctx, `
    INSERT INTO requirements (title, description, department_id, openings, status, published)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, r.Title, r.Description, r.DepartmentID, r.Openings, RequirementOpen, r.Published).Scan(&id)
	return id, err
}

func (s *Service) ListRequirements(ctx context.Context, h *tenant.Handle, publishedOnly bool) ([]Requirement, error) {
	query := `
    SELECT id, title, description, department_id, openings, status, published, created_at
    FROM requirements`
	if publishedOnly {
		query += ` WHERE published = true AND status = 'open'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := h.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requirements []Requirement
	for rows.Next() {
		var r Requirement
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.DepartmentID,
			&r.Openings, &r.Status, &r.Published, &r.CreatedAt); err != nil {
			return nil, err
		}
		requirements = append(requirements, r)
	}
	return requirements, rows.Err()
}

func (s *Service) GetRequirement(ctx context.Context, h *tenant.Handle, id string) (Requirement, error) {
	var r Requirement
	err := h.DB.QueryRow(ctx, `
    SELECT id, title, description, department_id, openings, status, published, created_at
    FROM requirements
    WHERE id = $1
  `, id).Scan(&r.ID, &r.Title, &r.Description, &r.DepartmentID,
		&r.Openings, &r.Status, &r.Published, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Requirement{}, ErrRequirementNotFound
	}
	return r, err
}

func (s *Service) SetRequirementStatus(ctx context.Context, h *tenant.Handle, id, status string, published bool) error {
	tag, err := h.DB.Exec(ctx,
		"UPDATE requirements SET status = $2, published = $3 WHERE id = $1",
		id, status, published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequirementNotFound
	}
	return nil
}

// Pipeline templates

func (s *Service) CreateTemplate(ctx context.Context, h *tenant.Handle, name string, stageNames []string) (PipelineTemplate, error) {
	if len(stageNames) == 0 {
		stageNames = DefaultStageNames
	}
	tpl := PipelineTemplate{Name: name, Stages: NewStages(stageNames)}
	stagesJSON, err := json.Marshal(tpl.Stages)
	if err != nil {
		return PipelineTemplate{}, err
	}
	err = h.DB.QueryRow(ctx, `
    INSERT INTO pipeline_templates (name, stages)
    VALUES ($1,$2)
    RETURNING id, created_at
  `, name, stagesJSON).Scan(&tpl.ID, &tpl.CreatedAt)
	if err != nil {
		return PipelineTemplate{}, err
	}
	return tpl, nil
}

func (s *Service) ListTemplates(ctx context.Context, h *tenant.Handle) ([]PipelineTemplate, error) {
	rows, err := h.DB.Query(ctx, `
    SELECT id, name, stages, deleted, created_at
    FROM pipeline_templates
    WHERE deleted = false
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []PipelineTemplate
	for rows.Next() {
		var tpl PipelineTemplate
		var stagesJSON []byte
		if err := rows.Scan(&tpl.ID, &tpl.Name, &stagesJSON, &tpl.Deleted, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(stagesJSON, &tpl.Stages); err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func (s *Service) DeleteTemplate(ctx context.Context, h *tenant.Handle, id string) error {
	tag, err := h.DB.Exec(ctx,
		"UPDATE pipeline_templates SET deleted = true WHERE id = $1 AND deleted = false", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// PipelineFor returns the requirement's pipeline, creating it on first
// access from the given template or the default workflow.
func (s *Service) PipelineFor(ctx context.Context, h *tenant.Handle, requirementID string, templateID *string) (JobPipeline, error) {
	pipeline, err := s.pipelineByRequirement(ctx, h, requirementID)
	if err == nil {
		return pipeline, nil
	}
	if !errors.Is(err, ErrPipelineNotFound) {
		return JobPipeline{}, err
	}

	if _, err := s.GetRequirement(ctx, h, requirementID); err != nil {
		return JobPipeline{}, err
	}

	var stages []Stage
	if templateID != nil {
		var stagesJSON []byte
		err := h.DB.QueryRow(ctx,
			"SELECT stages FROM pipeline_templates WHERE id = $1 AND deleted = false",
			*templateID).Scan(&stagesJSON)
		if errors.Is(err, pgx.ErrNoRows) {
			return JobPipeline{}, ErrTemplateNotFound
		}
		if err != nil {
			return JobPipeline{}, err
		}
		var templateStages []Stage
		if err := json.Unmarshal(stagesJSON, &templateStages); err != nil {
			return JobPipeline{}, err
		}
		stages = CloneStages(templateStages)
	} else {
		stages = NewStages(DefaultStageNames)
	}

	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return JobPipeline{}, err
	}
	pipeline = JobPipeline{RequirementID: requirementID, TemplateID: templateID, Stages: stages}
	err = h.DB.QueryRow(ctx, `
    INSERT INTO job_pipelines (requirement_id, template_id, stages)
    VALUES ($1,$2,$3)
    ON CONFLICT (requirement_id) DO UPDATE SET requirement_id = EXCLUDED.requirement_id
    RETURNING id, stages, created_at
  `, requirementID, templateID, stagesJSON).Scan(&pipeline.ID, &stagesJSON, &pipeline.CreatedAt)
	if err != nil {
		return JobPipeline{}, err
	}
	// A concurrent init may have won; trust what the row holds.
	if err := json.Unmarshal(stagesJSON, &pipeline.Stages); err != nil {
		return JobPipeline{}, err
	}
	return pipeline, nil
}

func (s *Service) pipelineByRequirement(ctx context.Context, h *tenant.Handle, requirementID string) (JobPipeline, error) {
	var pipeline JobPipeline
	var stagesJSON []byte
	err := h.DB.QueryRow(ctx, `
    SELECT id, requirement_id, template_id, stages, created_at
    FROM job_pipelines
    WHERE requirement_id = $1
  `, requirementID).Scan(&pipeline.ID, &pipeline.RequirementID, &pipeline.TemplateID, &stagesJSON, &pipeline.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return JobPipeline{}, ErrPipelineNotFound
	}
	if err != nil {
		return JobPipeline{}, err
	}
	if err := json.Unmarshal(stagesJSON, &pipeline.Stages); err != nil {
		return JobPipeline{}, err
	}
	return pipeline, nil
}

// Reorder rewrites the stage order of a requirement's pipeline. Stage ids
// are preserved so feedback never detaches.
func (s *Service) Reorder(ctx context.Context, h *tenant.Handle, requirementID string, orderedIDs []string) (JobPipeline, error) {
	pipeline, err := s.pipelineByRequirement(ctx, h, requirementID)
	if err != nil {
		return JobPipeline{}, err
	}
	stages, err := ReorderStages(pipeline.Stages, orderedIDs)
	if err != nil {
		return JobPipeline{}, err
	}
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return JobPipeline{}, err
	}
	if _, err := h.DB.Exec(ctx,
		"UPDATE job_pipelines SET stages = $2 WHERE id = $1",
		pipeline.ID, stagesJSON); err != nil {
		return JobPipeline{}, err
	}
	pipeline.Stages = stages
	return pipeline, nil
}

// Applicants

func (s *Service) CreateApplicant(ctx context.Context, h *tenant.Handle, requirementID, name, emailAddr, phone string) (Applicant, error) {
	pipeline, err := s.PipelineFor(ctx, h, requirementID, nil)
	if err != nil {
		return Applicant{}, err
	}
	stage, ok := firstStage(pipeline.Stages)
	if !ok {
		return Applicant{}, ErrPipelineNotFound
	}

	applicant := Applicant{RequirementID: requirementID, Name: name, Email: emailAddr, Phone: phone, StageID: stage.ID}
	err = h.DB.QueryRow(ctx, `
    INSERT INTO applicants (requirement_id, name, email, phone, stage_id)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id, created_at
  `, requirementID, name, emailAddr, phone, stage.ID).Scan(&applicant.ID, &applicant.CreatedAt)
	if err != nil {
		return Applicant{}, err
	}
	return applicant, nil
}

func (s *Service) GetApplicant(ctx context.Context, h *tenant.Handle, id string) (Applicant, error) {
	var a Applicant
	err := h.DB.QueryRow(ctx, `
    SELECT id, requirement_id, name, email, phone, stage_id, employee_id, snapshot_id, created_at
    FROM applicants
    WHERE id = $1
  `, id).Scan(&a.ID, &a.RequirementID, &a.Name, &a.Email, &a.Phone,
		&a.StageID, &a.EmployeeID, &a.SnapshotID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Applicant{}, ErrApplicantNotFound
	}
	return a, err
}

func (s *Service) ListApplicants(ctx context.Context, h *tenant.Handle, requirementID string) ([]Applicant, error) {
	rows, err := h.DB.Query(ctx, `
    SELECT id, requirement_id, name, email, phone, stage_id, employee_id, snapshot_id, created_at
    FROM applicants
    WHERE requirement_id = $1
    ORDER BY created_at
  `, requirementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applicants []Applicant
	for rows.Next() {
		var a Applicant
		if err := rows.Scan(&a.ID, &a.RequirementID, &a.Name, &a.Email, &a.Phone,
			&a.StageID, &a.EmployeeID, &a.SnapshotID, &a.CreatedAt); err != nil {
			return nil, err
		}
		applicants = append(applicants, a)
	}
	return applicants, rows.Err()
}

// MoveApplicant places an applicant in another stage of the same pipeline
// and logs the transition.
func (s *Service) MoveApplicant(ctx context.Context, h *tenant.Handle, applicantID, toStageID, movedBy string) (Applicant, error) {
	applicant, err := s.GetApplicant(ctx, h, applicantID)
	if err != nil {
		return Applicant{}, err
	}
	pipeline, err := s.pipelineByRequirement(ctx, h, applicant.RequirementID)
	if err != nil {
		return Applicant{}, err
	}
	if !stageInPipeline(pipeline.Stages, toStageID) {
		return Applicant{}, ErrStageNotInPipeline
	}

	if _, err := h.DB.Exec(ctx,
		"UPDATE applicants SET stage_id = $2 WHERE id = $1",
		applicantID, toStageID); err != nil {
		return Applicant{}, err
	}
	if _, err := h.DB.Exec(ctx, `
    INSERT INTO applicant_stage_history (applicant_id, from_stage_id, to_stage_id, moved_by)
    VALUES ($1,$2,$3,$4)
  `, applicantID, applicant.StageID, toStageID, movedBy); err != nil {
		return Applicant{}, err
	}
	applicant.StageID = toStageID
	return applicant, nil
}

// Feedback

func (s *Service) RecordFeedback(ctx context.Context, h *tenant.Handle, fb StageFeedback) (StageFeedback, error) {
	applicant, err := s.GetApplicant(ctx, h, fb.ApplicantID)
	if err != nil {
		return StageFeedback{}, err
	}
	pipeline, err := s.pipelineByRequirement(ctx, h, applicant.RequirementID)
	if err != nil {
		return StageFeedback{}, err
	}
	if !stageInPipeline(pipeline.Stages, fb.StageID) {
		return StageFeedback{}, ErrStageNotInPipeline
	}

	err = h.DB.QueryRow(ctx, `
    INSERT INTO stage_feedback (applicant_id, stage_id, interviewer, rating, comments, scheduled_at)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id, created_at
  `, fb.ApplicantID, fb.StageID, fb.Interviewer, fb.Rating, fb.Comments, fb.ScheduledAt).
		Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return StageFeedback{}, err
	}
	return fb, nil
}

func (s *Service) ListFeedback(ctx context.Context, h *tenant.Handle, applicantID string) ([]StageFeedback, error) {
	rows, err := h.DB.Query(ctx, `
    SELECT id, applicant_id, stage_id, interviewer, rating, comments, scheduled_at, created_at
    FROM stage_feedback
    WHERE applicant_id = $1
    ORDER BY created_at
  `, applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedback []StageFeedback
	for rows.Next() {
		var fb StageFeedback
		if err := rows.Scan(&fb.ID, &fb.ApplicantID, &fb.StageID, &fb.Interviewer,
			&fb.Rating, &fb.Comments, &fb.ScheduledAt, &fb.CreatedAt); err != nil {
			return nil, err
		}
		feedback = append(feedback, fb)
	}
	return feedback, rows.Err()
}

// Hire converts an applicant into an employee. The new employee record
// carries the applicant back-reference, and the applicant keeps pointing
// at the authoritative salary snapshot created during the offer.
func (s *Service) Hire(ctx context.Context, h *tenant.Handle, applicantID, role string, joiningDate time.Time) (string, error) {
	applicant, err := s.GetApplicant(ctx, h, applicantID)
	if err != nil {
		return "", err
	}
	if applicant.EmployeeID != nil {
		return "", ErrAlreadyHired
	}

	first, last := splitName(applicant.Name)
	var employeeID string
	err = h.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, first_name, last_name, email, role, joining_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,'active')
    RETURNING id
  `, h.TenantID, first, last, applicant.Email, role, joiningDate).Scan(&employeeID)
	if err != nil {
		return "", err
	}

	if _, err := h.DB.Exec(ctx,
		"UPDATE applicants SET employee_id = $2 WHERE id = $1",
		applicantID, employeeID); err != nil {
		return "", err
	}
	if applicant.SnapshotID != nil {
		if _, err := h.DB.Exec(ctx,
			"UPDATE salary_snapshots SET target_type = 'employee', target_id = $2 WHERE id = $1",
			*applicant.SnapshotID, employeeID); err != nil {
			return "", err
		}
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Dear %s,\n\nWe are delighted to confirm your offer. Your joining date is %s.\n",
			applicant.Name, joiningDate.Format("2 January 2006"))
		if err := s.mailer.Send(ctx, s.fromAddr, applicant.Email, "Your offer of employment", body); err != nil {
			// Hiring already happened; a lost mail is logged, not rolled back.
			s.logger.Warn("offer email failed", "applicant_id", applicantID, "error", err)
		}
	}
	return employeeID, nil
}

func splitName(full string) (first, last string) {
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}
