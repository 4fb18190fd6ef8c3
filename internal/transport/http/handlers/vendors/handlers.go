package vendorshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/vendors"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

type Handler struct {
	Service *vendors.Service
	Audit   *audit.Service
}

func NewHandler(service *vendors.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermVendorsWrite)).Post("/vendors/registrations", h.handleSubmit)
	r.With(middleware.RequirePermission(auth.PermVendorsRead)).Get("/vendors/registrations", h.handleList)
	r.With(middleware.RequirePermission(auth.PermVendorsRead)).Get("/vendors/registrations/{registrationID}", h.handleGet)
	r.With(middleware.RequirePermission(auth.PermVendorsWrite)).Post("/vendors/registrations/{registrationID}/review", h.handleReview)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	var payload vendors.Registration
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("companyName", payload.CompanyName, "company name is required")
	v.Required("contactEmail", payload.ContactEmail, "contact email is required")
	if v.Reject(w, requestID) {
		return
	}

	registration, err := h.Service.Submit(r.Context(), handle, payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "registration_submit_failed", "failed to submit vendor registration", requestID)
		return
	}
	api.Created(w, registration, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	registrations, err := h.Service.List(r.Context(), handle, r.URL.Query().Get("status"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "registrations_list_failed", "failed to list vendor registrations", requestID)
		return
	}
	api.Success(w, registrations, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	registration, err := h.Service.Get(r.Context(), handle, chi.URLParam(r, "registrationID"))
	if errors.Is(err, vendors.ErrRegistrationNotFound) {
		api.Fail(w, http.StatusNotFound, "registration_not_found", "vendor registration not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "registration_get_failed", "failed to load vendor registration", requestID)
		return
	}
	api.Success(w, registration, requestID)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	registrationID := chi.URLParam(r, "registrationID")

	var payload struct {
		Decision string `json:"decision"`
		Note     string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	registration, err := h.Service.Review(r.Context(), handle, registrationID, payload.Decision, user.UserID, payload.Note)
	if err != nil {
		switch {
		case errors.Is(err, vendors.ErrInvalidDecision):
			api.Fail(w, http.StatusBadRequest, "invalid_decision", "decision must be approved or rejected", requestID)
		case errors.Is(err, vendors.ErrAlreadyReviewed):
			api.Fail(w, http.StatusConflict, "already_reviewed", "registration has already been reviewed", requestID)
		case errors.Is(err, vendors.ErrRegistrationNotFound):
			api.Fail(w, http.StatusNotFound, "registration_not_found", "vendor registration not found", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "review_failed", "failed to review vendor registration", requestID)
		}
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "vendors.registration.review", "vendor_registration", registrationID, requestID, shared.ClientIP(r), nil, registration); err != nil {
		slog.Warn("audit vendors.registration.review failed", "err", err)
	}
	api.Success(w, registration, requestID)
}
