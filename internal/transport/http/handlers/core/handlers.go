package corehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/core"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

type Handler struct {
	Service *core.Service
	Audit   *audit.Service
}

func NewHandler(service *core.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/employees", h.handleListEmployees)
	r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/employees/{employeeID}", h.handleGetEmployee)
	r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/employees", h.handleCreateEmployee)
	r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Put("/employees/{employeeID}", h.handleUpdateEmployee)
	r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/employees/{employeeID}/leave-policy", h.handleAssignPolicy)
	r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/employees/{employeeID}/terminate", h.handleTerminate)
	r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/departments", h.handleListDepartments)
	r.With(middleware.RequirePermission(auth.PermEmployeesWrite)).Post("/departments", h.handleCreateDepartment)
	r.With(middleware.RequirePermission(auth.PermEmployeesRead)).Get("/settings/attendance", h.handleGetSettings)
	r.With(middleware.RequirePermission(auth.PermSettingsWrite)).Put("/settings/attendance", h.handleUpdateSettings)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	employees, err := h.Service.ListEmployees(r.Context(), handle, status, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employees_list_failed", "failed to list employees", requestID)
		return
	}
	api.Success(w, employees, requestID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	employee, err := h.Service.GetEmployee(r.Context(), handle, chi.URLParam(r, "employeeID"))
	if errors.Is(err, core.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", requestID)
		return
	}
	api.Success(w, employee, requestID)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload core.Employee
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "first name is required")
	v.Required("lastName", payload.LastName, "last name is required")
	v.Required("email", payload.Email, "email is required")
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Service.CreateEmployee(r.Context(), handle, payload)
	if errors.Is(err, core.ErrEmailTaken) {
		api.Fail(w, http.StatusConflict, "email_taken", "an employee with this email already exists", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "core.employee.create", "employee", id, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit core.employee.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var payload core.Employee
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	before, err := h.Service.GetEmployee(r.Context(), handle, employeeID)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", requestID)
		return
	}

	if err := h.Service.UpdateEmployee(r.Context(), handle, employeeID, payload); err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "core.employee.update", "employee", employeeID, requestID, shared.ClientIP(r), before, payload); err != nil {
		slog.Warn("audit core.employee.update failed", "err", err)
	}
	api.Success(w, map[string]string{"id": employeeID}, requestID)
}

func (h *Handler) handleAssignPolicy(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var payload struct {
		PolicyID string `json:"policyId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.PolicyID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "policyId is required", requestID)
		return
	}

	if err := h.Service.AssignLeavePolicy(r.Context(), handle, employeeID, payload.PolicyID); err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "policy_assign_failed", "failed to assign leave policy", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "core.employee.assign_policy", "employee", employeeID, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit core.employee.assign_policy failed", "err", err)
	}
	api.Success(w, map[string]string{"id": employeeID, "policyId": payload.PolicyID}, requestID)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	if err := h.Service.Terminate(r.Context(), handle, employeeID); err != nil {
		if errors.Is(err, core.ErrEmployeeNotFound) {
			api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "employee_terminate_failed", "failed to terminate employee", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "core.employee.terminate", "employee", employeeID, requestID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit core.employee.terminate failed", "err", err)
	}
	api.Success(w, map[string]string{"id": employeeID, "status": core.StatusTerminated}, requestID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	departments, err := h.Service.ListDepartments(r.Context(), handle)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "departments_list_failed", "failed to list departments", requestID)
		return
	}
	api.Success(w, departments, requestID)
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Name) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "name is required", requestID)
		return
	}

	id, err := h.Service.CreateDepartment(r.Context(), handle, strings.TrimSpace(payload.Name))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_create_failed", "failed to create department", requestID)
		return
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	settings, err := h.Service.Settings(r.Context(), handle)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_get_failed", "failed to load settings", requestID)
		return
	}
	api.Success(w, settings, requestID)
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload core.AttendanceSettings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	if err := h.Service.UpdateSettings(r.Context(), handle, payload); err != nil {
		if errors.Is(err, core.ErrInvalidSettings) {
			api.Fail(w, http.StatusBadRequest, "invalid_settings", err.Error(), requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "settings_update_failed", "failed to update settings", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "core.settings.update", "attendance_settings", handle.TenantID, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit core.settings.update failed", "err", err)
	}
	api.Success(w, payload, requestID)
}
