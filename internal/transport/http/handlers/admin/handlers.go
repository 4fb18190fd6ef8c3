package adminhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/leave"
	"peopleops/internal/platform/metrics"
	"peopleops/internal/tenant"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

// Handler owns the operator surface: tenant signup, the tenant registry,
// process metrics, and repair endpoints.
type Handler struct {
	Provisioner *tenant.Provisioner
	Registry    *tenant.Store
	Users       *auth.Store
	Metrics     *metrics.Collector
	Leave       *leave.Service
	Audit       *audit.Service
}

// RegisterPublicRoutes mounts signup outside the authenticated group.
// A new tenant has no users yet, so signup cannot require a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAdminMetrics)).Get("/admin/tenants", h.handleListTenants)
	r.With(middleware.RequirePermission(auth.PermAdminMetrics)).Get("/admin/metrics", h.handleMetrics)
	r.With(middleware.RequirePermission(auth.PermAdminRepair)).Post("/admin/repair/leave-balances", h.handleRepairLeaveBalances)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload struct {
		Code          string `json:"code"`
		Name          string `json:"name"`
		AdminEmail    string `json:"adminEmail"`
		AdminPassword string `json:"adminPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("code", payload.Code, "tenant code is required")
	v.Required("name", payload.Name, "company name is required")
	v.Required("adminEmail", payload.AdminEmail, "admin email is required")
	if len(payload.AdminPassword) < 8 {
		v.Add("adminPassword", "password must be at least 8 characters")
	}
	if v.Reject(w, requestID) {
		return
	}

	t, err := h.Provisioner.Provision(r.Context(), payload.Code, payload.Name)
	if err != nil {
		if errors.Is(err, tenant.ErrCodeTaken) {
			api.Fail(w, http.StatusConflict, "code_taken", "tenant code is already in use", requestID)
			return
		}
		if strings.Contains(err.Error(), "invalid tenant code") {
			api.Fail(w, http.StatusBadRequest, "invalid_code", "tenant code must be lowercase letters, digits and hyphens", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "signup_failed", "failed to provision tenant", requestID)
		return
	}

	hash, err := auth.HashPassword(payload.AdminPassword)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "signup_failed", "failed to provision admin user", requestID)
		return
	}
	email := strings.ToLower(strings.TrimSpace(payload.AdminEmail))
	userID, err := h.Users.CreateUser(r.Context(), t.ID, nil, email, hash, auth.RoleAdmin)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "signup_failed", "failed to provision admin user", requestID)
		return
	}

	if err := h.Audit.Record(r.Context(), t.ID, userID, "admin.tenant.signup", "tenant", t.ID, requestID, shared.ClientIP(r), nil, map[string]string{"code": t.Code, "name": t.Name}); err != nil {
		slog.Warn("audit admin.tenant.signup failed", "err", err)
	}
	api.Created(w, map[string]any{"tenant": t, "adminUserId": userID}, requestID)
}

func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	tenants, err := h.Registry.List(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "tenants_list_failed", "failed to list tenants", requestID)
		return
	}
	api.Success(w, tenants, requestID)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	api.Success(w, h.Metrics.Snapshot(), requestID)
}

func (h *Handler) handleRepairLeaveBalances(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	summary, err := h.Leave.RepairBalances(r.Context(), handle, time.Now().UTC())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "repair_failed", "failed to repair leave balances", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "admin.repair.leave_balances", "tenant", handle.TenantID, requestID, shared.ClientIP(r), nil, summary); err != nil {
		slog.Warn("audit admin.repair.leave_balances failed", "err", err)
	}
	api.Success(w, summary, requestID)
}
