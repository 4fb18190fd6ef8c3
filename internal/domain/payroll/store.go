package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"peopleops/internal/tenant"
)

// Store runs all payroll SQL against a resolved tenant partition.
type Store struct {
	H *tenant.Handle
}

func NewStore(h *tenant.Handle) *Store {
	return &Store{H: h}
}

func (s *Store) CreateSnapshot(ctx context.Context, targetType, targetID string, b Breakdown) (Snapshot, error) {
	earnings, deductions, benefits, err := marshalRows(b)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{TargetType: targetType, TargetID: targetID, Breakdown: b}
	err = s.H.DB.QueryRow(ctx, `
    INSERT INTO salary_snapshots
      (target_type, target_id, annual_ctc, monthly_ctc,
       earnings, deductions, benefits,
       gross_monthly, deductions_total, net_monthly)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id, created_at
  `, targetType, targetID, b.AnnualCTC, b.MonthlyCTC,
		earnings, deductions, benefits,
		b.GrossMonthly, b.DeductionsTotal, b.NetMonthly).Scan(&snap.ID, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, err
	}
	// An applicant carries a reference to its authoritative snapshot so
	// hiring can retarget the record to the new employee.
	if targetType == TargetApplicant {
		if _, err := s.H.DB.Exec(ctx,
			"UPDATE applicants SET snapshot_id = $2 WHERE id = $1",
			targetID, snap.ID); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

// LatestSnapshot returns the most recent snapshot for the target. It is
// the single authoritative read; callers never consult denormalized
// copies when this succeeds.
func (s *Store) LatestSnapshot(ctx context.Context, targetType, targetID string) (Snapshot, error) {
	return s.scanSnapshot(ctx, `
    SELECT id, target_type, target_id, annual_ctc, monthly_ctc,
           earnings, deductions, benefits,
           gross_monthly, deductions_total, net_monthly,
           locked, locked_at, created_at
    FROM salary_snapshots
    WHERE target_type = $1 AND target_id = $2
    ORDER BY created_at DESC
    LIMIT 1
  `, targetType, targetID)
}

// SnapshotByID reads one snapshot row by primary key. Payslip generation
// uses it so a revision created after a run can never leak into the run's
// documents.
func (s *Store) SnapshotByID(ctx context.Context, id string) (Snapshot, error) {
	return s.scanSnapshot(ctx, `
    SELECT id, target_type, target_id, annual_ctc, monthly_ctc,
           earnings, deductions, benefits,
           gross_monthly, deductions_total, net_monthly,
           locked, locked_at, created_at
    FROM salary_snapshots
    WHERE id = $1
  `, id)
}

func (s *Store) scanSnapshot(ctx context.Context, query string, args ...any) (Snapshot, error) {
	var snap Snapshot
	var earnings, deductions, benefits []byte
	err := s.H.DB.QueryRow(ctx, query, args...).Scan(
		&snap.ID, &snap.TargetType, &snap.TargetID,
		&snap.Breakdown.AnnualCTC, &snap.Breakdown.MonthlyCTC,
		&earnings, &deductions, &benefits,
		&snap.Breakdown.GrossMonthly, &snap.Breakdown.DeductionsTotal, &snap.Breakdown.NetMonthly,
		&snap.Locked, &snap.LockedAt, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	if err := unmarshalRows(earnings, deductions, benefits, &snap.Breakdown); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// UpdateSnapshot rewrites the monetary fields of an unlocked snapshot.
// The locked guard lives in the WHERE clause so a concurrent lock can
// never be overwritten.
func (s *Store) UpdateSnapshot(ctx context.Context, id string, b Breakdown) error {
	earnings, deductions, benefits, err := marshalRows(b)
	if err != nil {
		return err
	}
	tag, err := s.H.DB.Exec(ctx, `
    UPDATE salary_snapshots
    SET annual_ctc = $2, monthly_ctc = $3,
        earnings = $4, deductions = $5, benefits = $6,
        gross_monthly = $7, deductions_total = $8, net_monthly = $9
    WHERE id = $1 AND locked = false
  `, id, b.AnnualCTC, b.MonthlyCTC, earnings, deductions, benefits,
		b.GrossMonthly, b.DeductionsTotal, b.NetMonthly)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var locked bool
		err := s.H.DB.QueryRow(ctx,
			"SELECT locked FROM salary_snapshots WHERE id = $1", id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return err
		}
		return ErrSnapshotLocked
	}
	return nil
}

func (s *Store) LockSnapshot(ctx context.Context, id string) (time.Time, error) {
	var lockedAt time.Time
	err := s.H.DB.QueryRow(ctx, `
    UPDATE salary_snapshots
    SET locked = true, locked_at = COALESCE(locked_at, now())
    WHERE id = $1
    RETURNING locked_at
  `, id).Scan(&lockedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrSnapshotNotFound
	}
	return lockedAt, err
}

func (s *Store) EligibleEmployees(ctx context.Context) ([]EligibleEmployee, error) {
	rows, err := s.H.DB.Query(ctx, `
    SELECT id, first_name, last_name, email
    FROM employees
    WHERE status != 'terminated'
    ORDER BY last_name, first_name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []EligibleEmployee
	for rows.Next() {
		var e EligibleEmployee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Store) AttendanceRecords(ctx context.Context, employeeID string, year int, month time.Month) ([]AttendanceRecord, error) {
	rows, err := s.H.DB.Query(ctx, `
    SELECT employee_id, day, status
    FROM attendance_records
    WHERE employee_id = $1
      AND date_part('year', day) = $2
      AND date_part('month', day) = $3
  `, employeeID, year, int(month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AttendanceRecord
	for rows.Next() {
		var r AttendanceRecord
		if err := rows.Scan(&r.EmployeeID, &r.Date, &r.Status); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) CreateRun(ctx context.Context, month, year, eligible int) (Run, error) {
	run := Run{Month: month, Year: year, Eligible: eligible, Status: RunStatusCompleted}
	err := s.H.DB.QueryRow(ctx, `
    INSERT INTO payroll_runs (month, year, status, eligible)
    VALUES ($1,$2,$3,$4)
    RETURNING id, created_at
  `, month, year, RunStatusCompleted, eligible).Scan(&run.ID, &run.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Run{}, ErrRunExists
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) InsertRunItem(ctx context.Context, item RunItem) error {
	var snapshotID *string
	if item.SnapshotID != "" {
		snapshotID = &item.SnapshotID
	}
	_, err := s.H.DB.Exec(ctx, `
    INSERT INTO payroll_run_items
      (run_id, employee_id, snapshot_id, gross, deductions, net, present_days, total_days, error)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, item.RunID, item.EmployeeID, snapshotID, item.Gross, item.Deductions, item.Net,
		item.PresentDays, item.TotalDays, item.Error)
	return err
}

func (s *Store) FinalizeRun(ctx context.Context, runID string, processed, failed int) error {
	_, err := s.H.DB.Exec(ctx, `
    UPDATE payroll_runs SET processed = $2, failed = $3 WHERE id = $1
  `, runID, processed, failed)
	return err
}

func (s *Store) RunByID(ctx context.Context, runID string) (Run, error) {
	var run Run
	err := s.H.DB.QueryRow(ctx, `
    SELECT id, month, year, status, eligible, processed, failed, created_at
    FROM payroll_runs
    WHERE id = $1
  `, runID).Scan(&run.ID, &run.Month, &run.Year, &run.Status,
		&run.Eligible, &run.Processed, &run.Failed, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.H.DB.Query(ctx, `
    SELECT id, month, year, status, eligible, processed, failed, created_at
    FROM payroll_runs
    ORDER BY year DESC, month DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Month, &run.Year, &run.Status,
			&run.Eligible, &run.Processed, &run.Failed, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) RunItems(ctx context.Context, runID string) ([]RunItem, error) {
	rows, err := s.H.DB.Query(ctx, `
    SELECT id, run_id, employee_id, snapshot_id, gross, deductions, net,
           present_days, total_days, error
    FROM payroll_run_items
    WHERE run_id = $1
  `, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RunItem
	for rows.Next() {
		var item RunItem
		var snapshotID *string
		if err := rows.Scan(&item.ID, &item.RunID, &item.EmployeeID, &snapshotID,
			&item.Gross, &item.Deductions, &item.Net,
			&item.PresentDays, &item.TotalDays, &item.Error); err != nil {
			return nil, err
		}
		if snapshotID != nil {
			item.SnapshotID = *snapshotID
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func marshalRows(b Breakdown) (earnings, deductions, benefits []byte, err error) {
	if earnings, err = json.Marshal(b.Earnings); err != nil {
		return nil, nil, nil, err
	}
	if deductions, err = json.Marshal(b.Deductions); err != nil {
		return nil, nil, nil, err
	}
	if benefits, err = json.Marshal(b.Benefits); err != nil {
		return nil, nil, nil, err
	}
	return earnings, deductions, benefits, nil
}

func unmarshalRows(earnings, deductions, benefits []byte, b *Breakdown) error {
	if len(earnings) > 0 {
		if err := json.Unmarshal(earnings, &b.Earnings); err != nil {
			return err
		}
	}
	if len(deductions) > 0 {
		if err := json.Unmarshal(deductions, &b.Deductions); err != nil {
			return err
		}
	}
	if len(benefits) > 0 {
		if err := json.Unmarshal(benefits, &b.Benefits); err != nil {
			return err
		}
	}
	return nil
}
