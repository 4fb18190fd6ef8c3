package payrollhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"peopleops/internal/domain/audit"
	"peopleops/internal/domain/auth"
	"peopleops/internal/domain/payroll"
	"peopleops/internal/transport/http/api"
	"peopleops/internal/transport/http/middleware"
	"peopleops/internal/transport/http/shared"
)

type Handler struct {
	Service *payroll.Service
	Audit   *audit.Service
}

func NewHandler(service *payroll.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/payroll/snapshots", h.handleCreateSnapshot)
	r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/payroll/snapshots/{targetType}/{targetID}", h.handleLatestSnapshot)
	r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Put("/payroll/snapshots/{snapshotID}", h.handleReviseSnapshot)
	r.With(middleware.RequirePermission(auth.PermPayrollWrite)).Post("/payroll/snapshots/{snapshotID}/lock", h.handleLockSnapshot)
	r.With(middleware.RequirePermission(auth.PermPayrollRun)).Post("/payroll/runs", h.handleExecuteRun)
	r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/payroll/runs", h.handleListRuns)
	r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/payroll/runs/{runID}", h.handleGetRun)
	r.With(middleware.RequirePermission(auth.PermPayrollRead)).Get("/payroll/runs/{runID}/payslips/{employeeID}", h.handlePayslip)
}

func (h *Handler) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		TargetType string  `json:"targetType"`
		TargetID   string  `json:"targetId"`
		AnnualCTC  float64 `json:"annualCtc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("targetId", payload.TargetID, "target id is required")
	v.Enum("targetType", payload.TargetType, []string{payroll.TargetEmployee, payroll.TargetApplicant}, "target type must be employee or applicant")
	if v.Reject(w, requestID) {
		return
	}

	snapshot, err := h.Service.CreateSnapshot(r.Context(), handle, payload.TargetType, payload.TargetID, payload.AnnualCTC)
	if err != nil {
		if errors.Is(err, payroll.ErrInvalidCTC) {
			api.Fail(w, http.StatusBadRequest, "invalid_ctc", "annual CTC must be positive", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "snapshot_create_failed", "failed to create salary snapshot", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "payroll.snapshot.create", "salary_snapshot", snapshot.ID, requestID, shared.ClientIP(r), nil, snapshot); err != nil {
		slog.Warn("audit payroll.snapshot.create failed", "err", err)
	}
	api.Created(w, snapshot, requestID)
}

func (h *Handler) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}

	snapshot, err := h.Service.LatestSnapshot(r.Context(), handle, chi.URLParam(r, "targetType"), chi.URLParam(r, "targetID"))
	if errors.Is(err, payroll.ErrSnapshotNotFound) {
		api.Fail(w, http.StatusNotFound, "snapshot_not_found", "no salary snapshot for target", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "snapshot_get_failed", "failed to load salary snapshot", requestID)
		return
	}
	api.Success(w, snapshot, requestID)
}

func (h *Handler) handleReviseSnapshot(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	snapshotID := chi.URLParam(r, "snapshotID")

	var payload struct {
		AnnualCTC float64 `json:"annualCtc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	if err := h.Service.ReviseSnapshot(r.Context(), handle, snapshotID, payload.AnnualCTC); err != nil {
		switch {
		case errors.Is(err, payroll.ErrSnapshotLocked):
			api.Fail(w, http.StatusConflict, "snapshot_locked", "locked snapshots cannot be revised", requestID)
		case errors.Is(err, payroll.ErrSnapshotNotFound):
			api.Fail(w, http.StatusNotFound, "snapshot_not_found", "salary snapshot not found", requestID)
		case errors.Is(err, payroll.ErrInvalidCTC):
			api.Fail(w, http.StatusBadRequest, "invalid_ctc", "annual CTC must be positive", requestID)
		default:
			api.Fail(w, http.StatusInternalServerError, "snapshot_revise_failed", "failed to revise salary snapshot", requestID)
		}
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "payroll.snapshot.revise", "salary_snapshot", snapshotID, requestID, shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit payroll.snapshot.revise failed", "err", err)
	}
	api.Success(w, map[string]string{"id": snapshotID}, requestID)
}

func (h *Handler) handleLockSnapshot(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())
	snapshotID := chi.URLParam(r, "snapshotID")

	lockedAt, err := h.Service.LockSnapshot(r.Context(), handle, snapshotID)
	if errors.Is(err, payroll.ErrSnapshotNotFound) {
		api.Fail(w, http.StatusNotFound, "snapshot_not_found", "salary snapshot not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "snapshot_lock_failed", "failed to lock salary snapshot", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "payroll.snapshot.lock", "salary_snapshot", snapshotID, requestID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit payroll.snapshot.lock failed", "err", err)
	}
	api.Success(w, map[string]any{"id": snapshotID, "lockedAt": lockedAt}, requestID)
}

func (h *Handler) handleExecuteRun(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		Month int `json:"month"`
		Year  int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	if payload.Month < 1 || payload.Month > 12 || payload.Year < 2000 {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "month must be 1-12 and year must be valid", requestID)
		return
	}

	run, items, err := h.Service.Execute(r.Context(), handle, payload.Month, payload.Year)
	if err != nil {
		if errors.Is(err, payroll.ErrRunExists) {
			api.Fail(w, http.StatusConflict, "run_exists", "a payroll run already exists for this period", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "run_failed", "failed to execute payroll run", requestID)
		return
	}
	if err := h.Audit.Record(r.Context(), handle.TenantID, user.UserID, "payroll.run.execute", "payroll_run", run.ID, requestID, shared.ClientIP(r), nil, run); err != nil {
		slog.Warn("audit payroll.run.execute failed", "err", err)
	}
	api.Created(w, map[string]any{"run": run, "items": items}, requestID)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	runs, err := h.Service.ListRuns(r.Context(), handle)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "runs_list_failed", "failed to list payroll runs", requestID)
		return
	}
	api.Success(w, runs, requestID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	run, items, err := h.Service.Run(r.Context(), handle, chi.URLParam(r, "runID"))
	if errors.Is(err, payroll.ErrRunNotFound) {
		api.Fail(w, http.StatusNotFound, "run_not_found", "payroll run not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "run_get_failed", "failed to load payroll run", requestID)
		return
	}
	api.Success(w, map[string]any{"run": run, "items": items}, requestID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	handle, ok := middleware.GetHandle(r.Context())
	if !ok {
		api.Fail(w, http.StatusInternalServerError, "tenant_missing", "tenant not resolved", requestID)
		return
	}
	runID := chi.URLParam(r, "runID")
	employeeID := chi.URLParam(r, "employeeID")

	path, err := h.Service.GeneratePayslipPDF(r.Context(), handle, runID, employeeID)
	if err != nil {
		if errors.Is(err, payroll.ErrRunNotFound) {
			api.Fail(w, http.StatusNotFound, "run_not_found", "payroll run not found", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "payslip_failed", "failed to generate payslip", requestID)
		return
	}

	pdf, err := h.Service.PayslipBytes(path)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "payslip_failed", "failed to read payslip", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=payslip-"+runID+"-"+employeeID+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
