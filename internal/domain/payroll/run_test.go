package payroll

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeRunStore struct {
	employees  []EligibleEmployee
	snapshots  map[string]Snapshot
	attendance map[string][]AttendanceRecord
	locked     map[string]bool

	runs  []Run
	items []RunItem
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{
		snapshots:  make(map[string]Snapshot),
		attendance: make(map[string][]AttendanceRecord),
		locked:     make(map[string]bool),
	}
}

func (f *fakeRunStore) EligibleEmployees(ctx context.Context) ([]EligibleEmployee, error) {
	return f.employees, nil
}

func (f *fakeRunStore) LatestSnapshot(ctx context.Context, targetType, targetID string) (Snapshot, error) {
	snap, ok := f.snapshots[targetID]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	snap.Locked = f.locked[snap.ID]
	return snap, nil
}

func (f *fakeRunStore) LockSnapshot(ctx context.Context, id string) (time.Time, error) {
	f.locked[id] = true
	return time.Now(), nil
}

func (f *fakeRunStore) AttendanceRecords(ctx context.Context, employeeID string, year int, month time.Month) ([]AttendanceRecord, error) {
	return f.attendance[employeeID], nil
}

func (f *fakeRunStore) CreateRun(ctx context.Context, month, year, eligible int) (Run, error) {
	run := Run{ID: "run-1", Month: month, Year: year, Eligible: eligible, Status: RunStatusCompleted}
	f.runs = append(f.runs, run)
	return run, nil
}

func (f *fakeRunStore) InsertRunItem(ctx context.Context, item RunItem) error {
	f.items = append(f.items, item)
	return nil
}

func (f *fakeRunStore) FinalizeRun(ctx context.Context, runID string, processed, failed int) error {
	for i := range f.runs {
		if f.runs[i].ID == runID {
			f.runs[i].Processed = processed
			f.runs[i].Failed = failed
		}
	}
	return nil
}

type fakeFallbackCounter struct {
	noRecords   int
	zeroPresent int
}

func (c *fakeFallbackCounter) RecordFallbackNoRecords()   { c.noRecords++ }
func (c *fakeFallbackCounter) RecordFallbackZeroPresent() { c.zeroPresent++ }

func testService(metrics fallbackCounter) *Service {
	return NewService(nil, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func snapshotFor(t *testing.T, employeeID string, annualCTC float64) Snapshot {
	t.Helper()
	b, err := ComputeBreakdown(annualCTC)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	return Snapshot{ID: "snap-" + employeeID, TargetType: TargetEmployee, TargetID: employeeID, Breakdown: b}
}

func TestExecuteCountsNeverExceedEligible(t *testing.T) {
	store := newFakeRunStore()
	store.employees = []EligibleEmployee{
		{ID: "e1", FirstName: "Asha", LastName: "Rao"},
		{ID: "e2", FirstName: "Ben", LastName: "Silva"},
		{ID: "e3", FirstName: "Cara", LastName: "Mendis"},
	}
	store.snapshots["e1"] = snapshotFor(t, "e1", 600000)
	store.snapshots["e3"] = snapshotFor(t, "e3", 900000)
	// e2 has no snapshot on purpose.

	svc := testService(nil)
	run, items, err := svc.execute(context.Background(), store, "acme", 6, 2026)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if run.Processed+run.Failed > run.Eligible {
		t.Fatalf("processed %d + failed %d exceeds eligible %d",
			run.Processed, run.Failed, run.Eligible)
	}
	if run.Processed != 2 || run.Failed != 1 {
		t.Fatalf("processed=%d failed=%d, want 2/1", run.Processed, run.Failed)
	}
	if len(items) != 3 {
		t.Fatalf("expected an item per employee, got %d", len(items))
	}

	var failedItem *RunItem
	for i := range items {
		if items[i].EmployeeID == "e2" {
			failedItem = &items[i]
		}
	}
	if failedItem == nil || failedItem.Error != ErrSalaryStructureMissing.Error() {
		t.Fatalf("e2 must carry the missing-structure error, got %+v", failedItem)
	}
	if failedItem.Gross != 0 || failedItem.Net != 0 {
		t.Fatal("failed item must not carry monetary figures")
	}
}

func TestExecuteProratesByPresentDays(t *testing.T) {
	store := newFakeRunStore()
	store.employees = []EligibleEmployee{{ID: "e1", FirstName: "Asha", LastName: "Rao"}}
	store.snapshots["e1"] = snapshotFor(t, "e1", 600000)
	for day := 1; day <= 15; day++ {
		store.attendance["e1"] = append(store.attendance["e1"],
			AttendanceRecord{EmployeeID: "e1", Date: time.Date(2026, time.June, day, 0, 0, 0, 0, time.UTC), Status: AttendancePresent})
	}

	svc := testService(nil)
	_, items, err := svc.execute(context.Background(), store, "acme", 6, 2026)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	full := store.snapshots["e1"].Breakdown.GrossMonthly
	want := round2(full * 15 / 30)
	if items[0].Gross != want {
		t.Fatalf("gross = %v, want half month %v", items[0].Gross, want)
	}
	if items[0].PresentDays != 15 || items[0].TotalDays != 30 {
		t.Fatalf("attendance %v/%d, want 15/30", items[0].PresentDays, items[0].TotalDays)
	}
}

func TestExecuteRecordsFallbackMetrics(t *testing.T) {
	store := newFakeRunStore()
	store.employees = []EligibleEmployee{
		{ID: "e1", FirstName: "Asha", LastName: "Rao"},
		{ID: "e2", FirstName: "Ben", LastName: "Silva"},
	}
	store.snapshots["e1"] = snapshotFor(t, "e1", 600000)
	store.snapshots["e2"] = snapshotFor(t, "e2", 600000)
	store.attendance["e2"] = []AttendanceRecord{
		{EmployeeID: "e2", Date: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), Status: AttendanceAbsent},
	}

	metrics := &fakeFallbackCounter{}
	svc := testService(metrics)
	run, items, err := svc.execute(context.Background(), store, "acme", 6, 2026)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if metrics.noRecords != 1 || metrics.zeroPresent != 1 {
		t.Fatalf("fallback counters = %+v, want one of each", metrics)
	}
	// Both fall back to a fully present month and are paid in full.
	if run.Failed != 0 {
		t.Fatalf("fallback is not a failure, failed=%d", run.Failed)
	}
	for _, item := range items {
		if item.PresentDays != 30 {
			t.Fatalf("employee %s paid %v days, want 30", item.EmployeeID, item.PresentDays)
		}
	}
}

func TestExecuteLocksSnapshotOnFirstUse(t *testing.T) {
	store := newFakeRunStore()
	store.employees = []EligibleEmployee{{ID: "e1", FirstName: "Asha", LastName: "Rao"}}
	store.snapshots["e1"] = snapshotFor(t, "e1", 600000)

	svc := testService(nil)
	if _, _, err := svc.execute(context.Background(), store, "acme", 6, 2026); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !store.locked["snap-e1"] {
		t.Fatal("snapshot must be locked once payroll consumes it")
	}
	if len(store.items) != 1 || store.items[0].SnapshotID != "snap-e1" {
		t.Fatalf("run item must record the consumed snapshot, got %+v", store.items)
	}
}
