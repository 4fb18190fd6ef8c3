package leavehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/leave"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Audit   *audit.Service
}

func NewHandler(service *leave.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Post("/leave/policies", h.handleCreatePolicy)
	r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Put("/leave/policies/{policyID}/rules", h.handleUpdateRules)
	r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/leave/policies", h.handleListPolicies)
	r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/leave/policies/{policyID}", h.handleGetPolicy)
	r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/leave/balances/{employeeID}", h.handleBalances)
	r.With(middleware.RequirePermission(auth.PermLeaveWrite)).Post("/leave/requests", h.handleCreateRequest)
	r.With(middleware.RequirePermission(auth.PermLeaveRead)).Get("/leave/requests", h.handleListRequests)
	r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Post("/leave/requests/{requestID}/approve", h.handleApprove)
	r.With(middleware.RequirePermission(auth.PermLeaveApprove)).Post("/leave/requests/{requestID}/reject", h.handleReject)
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload leave.Policy
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "policy name is required")
	if len(payload.Rules) == 0 {
		v.Add("rules", "at least one rule is required")
	}
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Service.CreatePolicy(r.Context(), handle, payload)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_create_failed", "failed to create leave policy", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "leave.policy.create", "leave_policy", id, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit leave.policy.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleUpdateRules(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	policyID := chi.URLParam(r, "policyID")

	var payload struct {
		Rules []leave.PolicyRule `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Rules) == 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "rules are required", requestID)
		return
	}

	if err := h.Service.UpdatePolicyRules(r.Context(), handle, policyID, payload.Rules); err != nil {
		if errors.Is(err, leave.ErrPolicyNotFound) {
			api.Fail(w, http.StatusNotFound, "policy_not_found", "leave policy not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "policy_update_failed", "failed to update policy rules", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "leave.policy.update_rules", "leave_policy", policyID, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit leave.policy.update_rules failed", "err", err)
	}
	api.Success(w, map[string]string{"id": policyID}, requestID)
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	policies, err := h.Service.ListPolicies(r.Context(), handle)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policies_list_failed", "failed to list leave policies", requestID)
		return
	}
	api.Success(w, policies, requestID)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	policy, err := h.Service.GetPolicy(r.Context(), handle, chi.URLParam(r, "policyID"))
	if errors.Is(err, leave.ErrPolicyNotFound) {
		api.Fail(w, http.StatusNotFound, "policy_not_found", "leave policy not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_get_failed", "failed to load leave policy", requestID)
		return
	}
	api.Success(w, policy, requestID)
}

// handleBalances lazily materializes the employee's balances for the
// current cycle year before returning them.
func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	result, err := h.Service.Balances(r.Context(), handle, chi.URLParam(r, "employeeID"), time.Now().UTC())
	if err != nil {
		if errors.Is(err, leave.ErrPolicyNotAssigned) {
			api.Fail(w, http.StatusConflict, "policy_not_assigned", "employee has no leave policy assigned", requestID)
			return
		}
		if errors.Is(err, leave.ErrPolicyRulesEmpty) {
			api.Fail(w, http.StatusConflict, "policy_rules_empty", "leave policy has no rules", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "balances_failed", "failed to load leave balances", requestID)
		return
	}
	api.Success(w, result, requestID)
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		EmployeeID string `json:"employeeId"`
		LeaveType  string `json:"leaveType"`
		Reason     string `json:"reason"`
		StartDate  string `json:"startDate"`
		EndDate    string `json:"endDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	v.Required("leaveType", payload.LeaveType, "leave type is required")
	start, startOK := v.Date("startDate", payload.StartDate)
	end, endOK := v.Date("endDate", payload.EndDate)
	if startOK && endOK {
		v.DateOrder("startDate", start, "endDate", end)
	}
	if v.Reject(w, requestID) {
		return
	}

	req, err := h.Service.CreateRequest(r.Context(), handle, payload.EmployeeID, payload.LeaveType, payload.Reason, start, end)
	if err != nil {
		switch {
		case errors.Is(err, leave.ErrInsufficientBalance):
			api.Fail(w, http.StatusConflict, "insufficient_balance", "not enough leave balance for the requested range", requestID)
		case errors.Is(err, leave.ErrPolicyNotAssigned):
			api.Fail(w, http.StatusConflict, "policy_not_assigned", "employee has no leave policy assigned", requestID)
		case errors.Is(err, leave.ErrBalanceNotFound):
			api.Fail(w, http.StatusConflict, "balance_not_found", "no balance exists for the requested leave type", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "request_create_failed", "failed to create leave request", requestID)
		}
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "leave.request.create", "leave_request", req.ID, requestID, shared.ClientIP(r), nil, req); err != nil {
		slog.Warn("audit leave.request.create failed", "err", err)
	}
	api.Created(w, req, requestID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	requests, err := h.Service.ListRequests(r.Context(), handle, r.URL.Query().Get("employeeId"), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "requests_list_failed", "failed to list leave requests", requestID)
		return
	}
	api.Success(w, requests, requestID)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, leave.RequestApproved)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, leave.RequestRejected)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, decision string) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	leaveRequestID := chi.URLParam(r, "requestID")

	req, err := h.Service.Resolve(r.Context(), handle, leaveRequestID, decision)
	if err != nil {
		if errors.Is(err, leave.ErrInvalidTransition) {
			api.Fail(w, http.StatusConflict, "invalid_transition", "leave request is not pending", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "request_resolve_failed", "failed to resolve leave request", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "leave.request."+decision, "leave_request", req.ID, requestID, shared.ClientIP(r), nil, req); err != nil {
		slog.Warn("audit leave.request.resolve failed", "err", err)
	}
	api.Success(w, req, requestID)
}
