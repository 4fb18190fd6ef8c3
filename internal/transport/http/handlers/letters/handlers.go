package lettershandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/letters"
	"peopleops/internal/domain/payroll"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

type Handler struct {
	Service *letters.Service
	Audit   *audit.Service
}

func NewHandler(service *letters.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermLettersGenerate)).Post("/letters/generate", h.handleGenerate)
	r.With(middleware.RequirePermission(auth.PermLettersGenerate)).Get("/letters", h.handleList)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		TargetType string `json:"targetType"`
		TargetID   string `json:"targetId"`
		Kind       string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("targetId", payload.TargetID, "target id is required")
	v.Enum("targetType", payload.TargetType, []string{payroll.TargetEmployee, payroll.TargetApplicant}, "target type must be employee or applicant")
	v.Enum("kind", payload.Kind, []string{letters.KindJoining, letters.KindSalary}, "kind must be joining or salary")
	if v.Reject(w, requestID) {
		return
	}

	pdf, letter, err := h.Service.Generate(r.Context(), handle, payload.TargetType, payload.TargetID, payload.Kind)
	if err != nil {
		switch {
		case errors.Is(err, letters.ErrRenderingFailed):
			api.Fail(w, http.StatusBadGateway, "rendering_failed", "the rendering service did not produce a document", requestID)
		case errors.Is(err, letters.ErrTargetNotFound):
			api.Fail(w, http.StatusNotFound, "target_not_found", "letter target not found", requestID)
		case errors.Is(err, payroll.ErrSnapshotNotFound):
			api.Fail(w, http.StatusConflict, "snapshot_not_found", "no salary data available for target", requestID)
		case errors.Is(err, letters.ErrUnknownKind):
			api.Fail(w, http.StatusBadRequest, "unknown_kind", "unknown letter kind", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "letter_generate_failed", "failed to generate letter", requestID)
		}
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "letters.generate", "generated_letter", letter.ID, requestID, shared.ClientIP(r), nil, letter); err != nil {
		slog.Warn("audit letters.generate failed", "err", err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+payload.Kind+"-letter-"+payload.TargetID+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("X-Letter-Checksum", letter.SHA256)
	w.WriteHeader(http.StatusCreated)
	w.Write(pdf)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	list, err := h.Service.List(r.Context(), handle, r.URL.Query().Get("targetType"), r.URL.Query().Get("targetId"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "letters_list_failed", "failed to list letters", requestID)
		return
	}
	api.Success(w, list, requestID)
}
