// Package careerhandler exposes the unauthenticated careers surface.
// Tenants are resolved from the URL, not from a token, and only
// published requirements are visible.
package careerhandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/recruiting"
	"peopleops/internal/tenant"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

type Handler struct {
	Service  *recruiting.Service
	Resolver *tenant.Resolver
}

func NewHandler(service *recruiting.Service, resolver *tenant.Resolver) *Handler {
	return &Handler{Service: service, Resolver: resolver}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/careers/{tenantCode}", func(r chi.Router) {
		r.Use(middleware.ResolveTenantCode(h.Resolver))
		r.Get("/jobs", h.handleListJobs)
		r.Post("/jobs/{requirementID}/apply", h.handleApply)
	})
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	jobs, err := h.Service.ListRequirements(r.Context(), handle, true)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "jobs_list_failed", "failed to list open positions", requestID)
		return
	}
	api.Success(w, jobs, requestID)
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	requirementID := chi.URLParam(r, "requirementID")

	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("email", payload.Email, "email is required")
	if v.Reject(w, requestID) {
		return
	}

	// Unpublished requirements stay invisible to the public surface.
	requirement, err := h.Service.GetRequirement(r.Context(), handle, requirementID)
	if errors.Is(err, recruiting.ErrRequirementNotFound) || (err == nil && !requirement.Published) {
		api.Fail(w, http.StatusNotFound, "requirement_not_found", "position not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "apply_failed", "failed to submit application", requestID)
		return
	}

	applicant, err := h.Service.CreateApplicant(r.Context(), handle, requirementID, payload.Name, payload.Email, payload.Phone)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "apply_failed", "failed to submit application", requestID)
		return
	}
	api.Created(w, map[string]string{"id": applicant.ID, "stageId": applicant.StageID}, requestID)
}
