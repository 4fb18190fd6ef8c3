package audithandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
)

type Handler struct {
	Service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAuditRead)).Get("/audit/events", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := h.Service.List(r.Context(), handle.TenantID, r.URL.Query().Get("action"), r.URL.Query().Get("entityType"), limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestID)
		return
	}
	api.Success(w, events, requestID)
}
