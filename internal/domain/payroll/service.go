package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	cryptoutil "peopleops/internal/platform/crypto"
	"peopleops/internal/tenant"
)

// RunStore is the persistence surface a payroll run needs.
type RunStore interface {
	EligibleEmployees(ctx context.Context) ([]EligibleEmployee, error)
	LatestSnapshot(ctx context.Context, targetType, targetID string) (Snapshot, error)
	LockSnapshot(ctx context.Context, id string) (time.Time, error)
	AttendanceRecords(ctx context.Context, employeeID string, year int, month time.Month) ([]AttendanceRecord, error)
	CreateRun(ctx context.Context, month, year, eligible int) (Run, error)
	InsertRunItem(ctx context.Context, item RunItem) error
	FinalizeRun(ctx context.Context, runID string, processed, failed int) error
}

type fallbackCounter interface {
	RecordFallbackNoRecords()
	RecordFallbackZeroPresent()
}

type Service struct {
	crypto  *cryptoutil.Service
	metrics fallbackCounter
	logger  *slog.Logger
}

func NewService(crypto *cryptoutil.Service, metrics fallbackCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{crypto: crypto, metrics: metrics, logger: logger}
}

// Execute runs payroll for one month. Each eligible employee is processed
// independently: a missing salary snapshot is a recorded per-employee
// failure, never a defaulted salary. processed + failed never exceeds the
// eligible count.
func (s *Service) Execute(ctx context.Context, h *tenant.Handle, month, year int) (Run, []RunItem, error) {
	return s.execute(ctx, NewStore(h), h.Code, month, year)
}

func (s *Service) execute(ctx context.Context, store RunStore, tenantCode string, month, year int) (Run, []RunItem, error) {
	if month < 1 || month > 12 {
		return Run{}, nil, fmt.Errorf("month out of range: %d", month)
	}

	employees, err := store.EligibleEmployees(ctx)
	if err != nil {
		return Run{}, nil, err
	}

	run, err := store.CreateRun(ctx, month, year, len(employees))
	if err != nil {
		return Run{}, nil, err
	}

	var items []RunItem
	var processed, failed int
	for _, emp := range employees {
		item, err := s.processEmployee(ctx, store, tenantCode, run.ID, emp, month, year)
		if err != nil {
			failed++
			item = RunItem{RunID: run.ID, EmployeeID: emp.ID, Error: err.Error()}
		} else {
			processed++
		}
		if err := store.InsertRunItem(ctx, item); err != nil {
			return Run{}, nil, err
		}
		items = append(items, item)
	}

	if err := store.FinalizeRun(ctx, run.ID, processed, failed); err != nil {
		return Run{}, nil, err
	}
	run.Processed = processed
	run.Failed = failed
	return run, items, nil
}

func (s *Service) processEmployee(ctx context.Context, store RunStore, tenantCode, runID string, emp EligibleEmployee, month, year int) (RunItem, error) {
	snap, err := store.LatestSnapshot(ctx, TargetEmployee, emp.ID)
	if errors.Is(err, ErrSnapshotNotFound) {
		return RunItem{}, ErrSalaryStructureMissing
	}
	if err != nil {
		return RunItem{}, err
	}

	records, err := store.AttendanceRecords(ctx, emp.ID, year, time.Month(month))
	if err != nil {
		return RunItem{}, err
	}
	att := ComputeAttendance(records, year, time.Month(month))
	if att.Fallback != "" {
		s.logger.Warn("attendance fallback applied",
			"tenant", tenantCode,
			"employee_id", emp.ID,
			"month", month,
			"year", year,
			"reason", att.Fallback)
		if s.metrics != nil {
			switch att.Fallback {
			case FallbackNoRecords:
				s.metrics.RecordFallbackNoRecords()
			case FallbackZeroPresent:
				s.metrics.RecordFallbackZeroPresent()
			}
		}
	}

	if !snap.Locked {
		if _, err := store.LockSnapshot(ctx, snap.ID); err != nil {
			return RunItem{}, err
		}
	}

	factor := att.PresentDays / float64(att.TotalDays)
	gross := round2(snap.Breakdown.GrossMonthly * factor)
	deductions := round2(snap.Breakdown.DeductionsTotal * factor)
	return RunItem{
		RunID:       runID,
		EmployeeID:  emp.ID,
		SnapshotID:  snap.ID,
		Gross:       gross,
		Deductions:  deductions,
		Net:         round2(gross - deductions),
		PresentDays: att.PresentDays,
		TotalDays:   att.TotalDays,
	}, nil
}

// Snapshots

func (s *Service) CreateSnapshot(ctx context.Context, h *tenant.Handle, targetType, targetID string, annualCTC float64) (Snapshot, error) {
	if targetType != TargetEmployee && targetType != TargetApplicant {
		return Snapshot{}, fmt.Errorf("unknown snapshot target: %s", targetType)
	}
	breakdown, err := ComputeBreakdown(annualCTC)
	if err != nil {
		return Snapshot{}, err
	}
	return NewStore(h).CreateSnapshot(ctx, targetType, targetID, breakdown)
}

func (s *Service) LatestSnapshot(ctx context.Context, h *tenant.Handle, targetType, targetID string) (Snapshot, error) {
	return NewStore(h).LatestSnapshot(ctx, targetType, targetID)
}

func (s *Service) ReviseSnapshot(ctx context.Context, h *tenant.Handle, snapshotID string, annualCTC float64) error {
	breakdown, err := ComputeBreakdown(annualCTC)
	if err != nil {
		return err
	}
	return NewStore(h).UpdateSnapshot(ctx, snapshotID, breakdown)
}

func (s *Service) LockSnapshot(ctx context.Context, h *tenant.Handle, snapshotID string) (time.Time, error) {
	return NewStore(h).LockSnapshot(ctx, snapshotID)
}

func (s *Service) Run(ctx context.Context, h *tenant.Handle, runID string) (Run, []RunItem, error) {
	store := NewStore(h)
	run, err := store.RunByID(ctx, runID)
	if err != nil {
		return Run{}, nil, err
	}
	items, err := store.RunItems(ctx, runID)
	if err != nil {
		return Run{}, nil, err
	}
	return run, items, nil
}

func (s *Service) ListRuns(ctx context.Context, h *tenant.Handle) ([]Run, error) {
	return NewStore(h).ListRuns(ctx)
}

// GeneratePayslipPDF renders a payslip for one run item. It reads only the
// stored run outcome and the snapshot the run consumed; a revision created
// after the run never appears on the document.
func (s *Service) GeneratePayslipPDF(ctx context.Context, h *tenant.Handle, runID, employeeID string) (string, error) {
	store := NewStore(h)
	run, err := store.RunByID(ctx, runID)
	if err != nil {
		return "", err
	}

	var item RunItem
	var emp EligibleEmployee
	found := false
	items, err := store.RunItems(ctx, runID)
	if err != nil {
		return "", err
	}
	for _, it := range items {
		if it.EmployeeID == employeeID {
			item = it
			found = true
			break
		}
	}
	if !found || item.Error != "" {
		return "", ErrRunNotFound
	}

	err = h.DB.QueryRow(ctx,
		"SELECT id, first_name, last_name, email FROM employees WHERE id = $1",
		employeeID).Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email)
	if err != nil {
		return "", err
	}

	snap, err := store.SnapshotByID(ctx, item.SnapshotID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll("storage/payslips", 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join("storage/payslips", fmt.Sprintf("%s-%s.pdf", runID, employeeID))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s", emp.FirstName, emp.LastName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", emp.Email))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %02d/%d", run.Month, run.Year))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Days paid: %.1f of %d", item.PresentDays, item.TotalDays))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Earnings")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range snap.Breakdown.Earnings {
		pdf.Cell(120, 7, row.Name)
		pdf.CellFormat(40, 7, fmt.Sprintf("%.2f", row.Monthly), "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range snap.Breakdown.Deductions {
		pdf.Cell(120, 7, row.Name)
		pdf.CellFormat(40, 7, fmt.Sprintf("%.2f", row.Monthly), "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %.2f", item.Gross))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Deductions: %.2f", item.Deductions))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Net pay: %.2f", item.Net))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}

	if s.crypto != nil && s.crypto.Configured() {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		encrypted, err := s.crypto.Encrypt(data)
		if err != nil {
			return "", err
		}
		encryptedPath := filePath + ".enc"
		if err := os.WriteFile(encryptedPath, encrypted, 0o600); err != nil {
			return "", err
		}
		if err := os.Remove(filePath); err != nil {
			return "", err
		}
		return encryptedPath, nil
	}

	return filePath, nil
}

// PayslipBytes reads a generated payslip from disk, decrypting it when
// encryption at rest is enabled.
func (s *Service) PayslipBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".enc") && s.crypto != nil && s.crypto.Configured() {
		return s.crypto.Decrypt(data)
	}
	return data, nil
}
