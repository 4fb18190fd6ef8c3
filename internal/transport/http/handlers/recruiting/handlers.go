package recruitinghandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/recruiting"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

type Handler struct {
	Service *recruiting.Service
	Audit   *audit.Service
}

func NewHandler(service *recruiting.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Post("/recruiting/requirements", h.handleCreateRequirement)
	r.With(middleware.RequirePermission(auth.PermRecruitingRead)).Get("/recruiting/requirements", h.handleListRequirements)
	r.With(middleware.RequirePermission(auth.PermRecruitingRead)).Get("/recruiting/requirements/{requirementID}", h.handleGetRequirement)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Post("/recruiting/requirements/{requirementID}/status", h.handleSetStatus)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Post("/recruiting/templates", h.handleCreateTemplate)
	r.With(middleware.RequirePermission(auth.PermRecruitingRead)).Get("/recruiting/templates", h.handleListTemplates)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Delete("/recruiting/templates/{templateID}", h.handleDeleteTemplate)
	r.With(middleware.RequirePermission(auth.PermRecruitingRead)).Get("/recruiting/requirements/{requirementID}/pipeline", h.handlePipeline)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Put("/recruiting/requirements/{requirementID}/pipeline/order", h.handleReorder)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Post("/recruiting/applicants", h.handleCreateApplicant)
	r.With(middleware.RequirePermission(auth.PermRecruitingRead)).Get("/recruiting/applicants", h.handleListApplicants)
	r.With(middleware.RequirePermission(auth.PermRecruitingRead)).Get("/recruiting/applicants/{applicantID}", h.handleGetApplicant)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Post("/recruiting/applicants/{applicantID}/move", h.handleMoveApplicant)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Post("/recruiting/applicants/{applicantID}/feedback", h.handleRecordFeedback)
	r.With(middleware.RequirePermission(auth.PermRecruitingRead)).Get("/recruiting/applicants/{applicantID}/feedback", h.handleListFeedback)
	r.With(middleware.RequirePermission(auth.PermRecruitingWrite)).Post("/recruiting/applicants/{applicantID}/hire", h.handleHire)
}

func (h *Handler) handleCreateRequirement(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload recruiting.Requirement
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "title is required")
	if payload.Openings <= 0 {
		v.Add("openings", "openings must be positive")
	}
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Service.CreateRequirement(r.Context(), handle, payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requirement_create_failed", "failed to create requirement", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "recruiting.requirement.create", "requirement", id, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit recruiting.requirement.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleListRequirements(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	publishedOnly, _ := strconv.ParseBool(r.URL.Query().Get("published"))
	requirements, err := h.Service.ListRequirements(r.Context(), handle, publishedOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requirements_list_failed", "failed to list requirements", requestID)
		return
	}
	api.Success(w, requirements, requestID)
}

func (h *Handler) handleGetRequirement(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	requirement, err := h.Service.GetRequirement(r.Context(), handle, chi.URLParam(r, "requirementID"))
	if errors.Is(err, recruiting.ErrRequirementNotFound) {
		api.Fail(w, http.StatusNotFound, "requirement_not_found", "requirement not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requirement_get_failed", "failed to load requirement", requestID)
		return
	}
	api.Success(w, requirement, requestID)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	requirementID := chi.URLParam(r, "requirementID")

	var payload struct {
		Status    string `json:"status"`
		Published bool   `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Status == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "status is required", requestID)
		return
	}

	if err := h.Service.SetRequirementStatus(r.Context(), handle, requirementID, payload.Status, payload.Published); err != nil {
		if errors.Is(err, recruiting.ErrRequirementNotFound) {
			api.Fail(w, http.StatusNotFound, "requirement_not_found", "requirement not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "requirement_status_failed", "failed to update requirement status", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "recruiting.requirement.status", "requirement", requirementID, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit recruiting.requirement.status failed", "err", err)
	}
	api.Success(w, map[string]any{"id": requirementID, "status": payload.Status, "published": payload.Published}, requestID)
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	var payload struct {
		Name   string   `json:"name"`
		Stages []string `json:"stages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "template name is required")
	if len(payload.Stages) == 0 {
		v.Add("stages", "at least one stage name is required")
	}
	if v.Reject(w, requestID) {
		return
	}

	template, err := h.Service.CreateTemplate(r.Context(), handle, payload.Name, payload.Stages)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "template_create_failed", "failed to create template", requestID)
		return
	}
	api.Created(w, template, requestID)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	templates, err := h.Service.ListTemplates(r.Context(), handle)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "templates_list_failed", "failed to list templates", requestID)
		return
	}
	api.Success(w, templates, requestID)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	templateID := chi.URLParam(r, "templateID")
	if err := h.Service.DeleteTemplate(r.Context(), handle, templateID); err != nil {
		if errors.Is(err, recruiting.ErrTemplateNotFound) {
			api.Fail(w, http.StatusNotFound, "template_not_found", "pipeline template not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "template_delete_failed", "failed to delete template", requestID)
		return
	}
	api.Success(w, map[string]string{"id": templateID}, requestID)
}

// handlePipeline returns the requirement's pipeline, initializing it on
// first access. Pass templateId to clone stages from a template instead
// of the default set.
func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	var templateID *string
	if raw := r.URL.Query().Get("templateId"); raw != "" {
		templateID = &raw
	}
	pipeline, err := h.Service.PipelineFor(r.Context(), handle, chi.URLParam(r, "requirementID"), templateID)
	if err != nil {
		switch {
		case errors.Is(err, recruiting.ErrRequirementNotFound):
			api.Fail(w, http.StatusNotFound, "requirement_not_found", "requirement not found", requestID)
		case errors.Is(err, recruiting.ErrTemplateNotFound):
			api.Fail(w, http.StatusNotFound, "template_not_found", "pipeline template not found", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "pipeline_failed", "failed to load pipeline", requestID)
		}
		return
	}
	api.Success(w, pipeline, requestID)
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	requirementID := chi.URLParam(r, "requirementID")

	var payload struct {
		StageIDs []string `json:"stageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.StageIDs) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "stageIds are required", requestID)
		return
	}

	pipeline, err := h.Service.Reorder(r.Context(), handle, requirementID, payload.StageIDs)
	if err != nil {
		switch {
		case errors.Is(err, recruiting.ErrStageSetMismatch):
			api.Fail(w, http.StatusBadRequest, "stage_set_mismatch", "reorder must be a permutation of the existing stages", requestID)
		case errors.Is(err, recruiting.ErrPipelineNotFound):
			api.Fail(w, http.StatusNotFound, "pipeline_not_found", "job pipeline not found", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "reorder_failed", "failed to reorder pipeline", requestID)
		}
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "recruiting.pipeline.reorder", "job_pipeline", pipeline.ID, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit recruiting.pipeline.reorder failed", "err", err)
	}
	api.Success(w, pipeline, requestID)
}

func (h *Handler) handleCreateApplicant(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	var payload struct {
		RequirementID string `json:"requirementId"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		Phone         string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("requirementId", payload.RequirementID, "requirement id is required")
	v.Required("name", payload.Name, "name is required")
	v.Required("email", payload.Email, "email is required")
	if v.Reject(w, requestID) {
		return
	}

	applicant, err := h.Service.CreateApplicant(r.Context(), handle, payload.RequirementID, payload.Name, payload.Email, payload.Phone)
	if err != nil {
		if errors.Is(err, recruiting.ErrRequirementNotFound) {
			api.Fail(w, http.StatusNotFound, "requirement_not_found", "requirement not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "applicant_create_failed", "failed to create applicant", requestID)
		return
	}
	api.Created(w, applicant, requestID)
}

func (h *Handler) handleListApplicants(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	applicants, err := h.Service.ListApplicants(r.Context(), handle, r.URL.Query().Get("requirementId"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "applicants_list_failed", "failed to list applicants", requestID)
		return
	}
	api.Success(w, applicants, requestID)
}

func (h *Handler) handleGetApplicant(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	applicant, err := h.Service.GetApplicant(r.Context(), handle, chi.URLParam(r, "applicantID"))
	if errors.Is(err, recruiting.ErrApplicantNotFound) {
		api.Fail(w, http.StatusNotFound, "applicant_not_found", "applicant not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "applicant_get_failed", "failed to load applicant", requestID)
		return
	}
	api.Success(w, applicant, requestID)
}

func (h *Handler) handleMoveApplicant(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	applicantID := chi.URLParam(r, "applicantID")

	var payload struct {
		StageID string `json:"stageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.StageID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "stageId is required", requestID)
		return
	}

	applicant, err := h.Service.MoveApplicant(r.Context(), handle, applicantID, payload.StageID, user.UserID)
	if err != nil {
		switch {
		case errors.Is(err, recruiting.ErrApplicantNotFound):
			api.Fail(w, http.StatusNotFound, "applicant_not_found", "applicant not found", requestID)
		case errors.Is(err, recruiting.ErrStageNotInPipeline):
			api.Fail(w, http.StatusBadRequest, "stage_not_in_pipeline", "stage does not belong to this pipeline", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "applicant_move_failed", "failed to move applicant", requestID)
		}
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "recruiting.applicant.move", "applicant", applicantID, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit recruiting.applicant.move failed", "err", err)
	}
	api.Success(w, applicant, requestID)
}

func (h *Handler) handleRecordFeedback(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	var payload recruiting.StageFeedback
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	payload.ApplicantID = chi.URLParam(r, "applicantID")
	v := shared.NewValidator()
	v.Required("stageId", payload.StageID, "stage id is required")
	if payload.Rating < 0 || payload.Rating > 5 {
		v.Add("rating", "rating must be between 0 and 5")
	}
	if v.Reject(w, requestID) {
		return
	}

	feedback, err := h.Service.RecordFeedback(r.Context(), handle, payload)
	if err != nil {
		switch {
		case errors.Is(err, recruiting.ErrApplicantNotFound):
			api.Fail(w, http.StatusNotFound, "applicant_not_found", "applicant not found", requestID)
		case errors.Is(err, recruiting.ErrStageNotInPipeline):
			api.Fail(w, http.StatusBadRequest, "stage_not_in_pipeline", "stage does not belong to this pipeline", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "feedback_failed", "failed to record feedback", requestID)
		}
		return
	}
	api.Created(w, feedback, requestID)
}

func (h *Handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	feedback, err := h.Service.ListFeedback(r.Context(), handle, chi.URLParam(r, "applicantID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "feedback_list_failed", "failed to list feedback", requestID)
		return
	}
	api.Success(w, feedback, requestID)
}

func (h *Handler) handleHire(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	applicantID := chi.URLParam(r, "applicantID")

	var payload struct {
		Role        string `json:"role"`
		JoiningDate string `json:"joiningDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("role", payload.Role, "role is required")
	joiningDate, _ := v.Date("joiningDate", payload.JoiningDate)
	if v.Reject(w, requestID) {
		return
	}

	employeeID, err := h.Service.Hire(r.Context(), handle, applicantID, payload.Role, joiningDate)
	if err != nil {
		switch {
		case errors.Is(err, recruiting.ErrApplicantNotFound):
			api.Fail(w, http.StatusNotFound, "applicant_not_found", "applicant not found", requestID)
		case errors.Is(err, recruiting.ErrAlreadyHired):
			api.Fail(w, http.StatusConflict, "already_hired", "applicant already hired", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "hire_failed", "failed to hire applicant", requestID)
		}
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "recruiting.applicant.hire", "applicant", applicantID, requestID, shared.ClientIP(r), nil, map[string]string{"employeeId": employeeID, "role": payload.Role}); err != nil {
		slog.Warn("audit recruiting.applicant.hire failed", "err", err)
	}
	api.Created(w, map[string]string{"employeeId": employeeID}, requestID)
}
