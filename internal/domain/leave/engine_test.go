package leave

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeBalanceStore struct {
	policy      Policy
	policyErr   error
	startMonth  int
	balances    map[string]Balance
	insertRaces map[string]bool
	inserted    []Balance
}

func newFakeStore(policy Policy) *fakeBalanceStore {
	return &fakeBalanceStore{
		policy:      policy,
		balances:    make(map[string]Balance),
		insertRaces: make(map[string]bool),
	}
}

func balanceKey(employeeID, leaveType string, year int) string {
	return fmt.Sprintf("%s/%s/%d", employeeID, leaveType, year)
}

func (f *fakeBalanceStore) EmployeePolicy(ctx context.Context, employeeID string) (Policy, error) {
	if f.policyErr != nil {
		return Policy{}, f.policyErr
	}
	return f.policy, nil
}

func (f *fakeBalanceStore) CycleStartMonth(ctx context.Context) (int, error) {
	return f.startMonth, nil
}

func (f *fakeBalanceStore) BalancesForYear(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	var out []Balance
	for _, b := range f.balances {
		if b.EmployeeID == employeeID && b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBalanceStore) BalanceFor(ctx context.Context, employeeID, leaveType string, year int) (Balance, error) {
	b, ok := f.balances[balanceKey(employeeID, leaveType, year)]
	if !ok {
		return Balance{}, ErrBalanceNotFound
	}
	return b, nil
}

func (f *fakeBalanceStore) InsertBalance(ctx context.Context, b Balance) (Balance, error) {
	key := balanceKey(b.EmployeeID, b.LeaveType, b.Year)
	if f.insertRaces[key] {
		// Simulate another request winning the unique-index race after
		// our existence check.
		f.insertRaces[key] = false
		f.balances[key] = b
		return Balance{}, ErrDuplicateBalance
	}
	if _, exists := f.balances[key]; exists {
		return Balance{}, ErrDuplicateBalance
	}
	b.ID = key
	f.balances[key] = b
	f.inserted = append(f.inserted, b)
	return b, nil
}

type countingMetrics struct {
	conflicts int
}

func (c *countingMetrics) RecordBalanceCreateConflict() {
	c.conflicts++
}

func twoRulePolicy() Policy {
	return Policy{
		ID:   "p1",
		Name: "Standard",
		Rules: []PolicyRule{
			{LeaveType: "CL", TotalPerYear: 15, RequiresApproval: true},
			{LeaveType: "SL", TotalPerYear: 10},
		},
	}
}

func TestEnsureBalancesCreatesOnePerRule(t *testing.T) {
	store := newFakeStore(twoRulePolicy())
	engine := NewEngine(store, nil)

	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.EnsureBalances(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if result.Created != 2 || len(result.Balances) != 2 {
		t.Fatalf("expected two created balances, got %+v", result)
	}
	for _, b := range result.Balances {
		want := 15.0
		if b.LeaveType == "SL" {
			want = 10.0
		}
		if b.Available != want || b.Total != want {
			t.Fatalf("balance %s: available=%v total=%v, want %v", b.LeaveType, b.Available, b.Total, want)
		}
		if b.Year != 2026 {
			t.Fatalf("balance %s in year %d, want 2026", b.LeaveType, b.Year)
		}
	}
}

func TestEnsureBalancesIdempotent(t *testing.T) {
	store := newFakeStore(twoRulePolicy())
	engine := NewEngine(store, nil)
	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)

	if _, err := engine.EnsureBalances(context.Background(), "e1", now); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := engine.EnsureBalances(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if second.Created != 0 {
		t.Fatalf("second ensure must not create rows, created %d", second.Created)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("expected exactly two inserts total, got %d", len(store.inserted))
	}
}

func TestEnsureBalancesDuplicateRaceResolvedByReRead(t *testing.T) {
	store := newFakeStore(twoRulePolicy())
	store.insertRaces[balanceKey("e1", "CL", 2026)] = true
	metrics := &countingMetrics{}
	engine := NewEngine(store, metrics)

	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.EnsureBalances(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(result.Balances) != 2 {
		t.Fatalf("expected both balances despite race, got %d", len(result.Balances))
	}
	if metrics.conflicts != 1 {
		t.Fatalf("expected one recorded conflict, got %d", metrics.conflicts)
	}
	if result.Created != 1 {
		t.Fatalf("raced insert must not count as created, got %d", result.Created)
	}
}

func TestEnsureBalancesPolicyNotAssigned(t *testing.T) {
	store := newFakeStore(Policy{})
	store.policyErr = ErrPolicyNotAssigned
	engine := NewEngine(store, nil)

	_, err := engine.EnsureBalances(context.Background(), "e1", time.Now())
	if !errors.Is(err, ErrPolicyNotAssigned) {
		t.Fatalf("expected ErrPolicyNotAssigned, got %v", err)
	}
}

func TestEnsureBalancesEmptyRulesSurfaced(t *testing.T) {
	store := newFakeStore(Policy{ID: "p-broken", Name: "Broken"})
	engine := NewEngine(store, nil)

	_, err := engine.EnsureBalances(context.Background(), "e1", time.Now())
	if !errors.Is(err, ErrPolicyRulesEmpty) {
		t.Fatalf("expected ErrPolicyRulesEmpty, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatal("broken policy must not create balances")
	}
}

func TestEnsureBalancesCycleYearFromSettings(t *testing.T) {
	store := newFakeStore(twoRulePolicy())
	store.startMonth = 4
	engine := NewEngine(store, nil)

	march := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	result, err := engine.EnsureBalances(context.Background(), "e1", march)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if result.Year != 2025 {
		t.Fatalf("March with May cycle must land in 2025, got %d", result.Year)
	}
}

func TestEnsureBalancesCarryForwardCapped(t *testing.T) {
	policy := Policy{
		ID:   "p2",
		Name: "Carry",
		Rules: []PolicyRule{
			{LeaveType: "PL", TotalPerYear: 12, CarryForwardAllowed: true, MaxCarryForward: 5},
		},
	}
	store := newFakeStore(policy)
	store.balances[balanceKey("e1", "PL", 2025)] = Balance{
		EmployeeID: "e1",
		LeaveType:  "PL",
		Year:       2025,
		Total:      12,
		Available:  9,
	}
	engine := NewEngine(store, nil)

	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.EnsureBalances(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(result.Balances) != 1 {
		t.Fatalf("expected one balance, got %d", len(result.Balances))
	}
	b := result.Balances[0]
	if b.Total != 17 || b.Available != 17 {
		t.Fatalf("carry-forward must cap at 5: total=%v available=%v", b.Total, b.Available)
	}
}

func TestEnsureBalancesNoCarryForwardWithoutPriorYear(t *testing.T) {
	policy := Policy{
		ID:   "p2",
		Name: "Carry",
		Rules: []PolicyRule{
			{LeaveType: "PL", TotalPerYear: 12, CarryForwardAllowed: true, MaxCarryForward: 5},
		},
	}
	store := newFakeStore(policy)
	engine := NewEngine(store, nil)

	now := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.EnsureBalances(context.Background(), "e1", now)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if result.Balances[0].Total != 12 {
		t.Fatalf("no prior year row must mean no carry-forward, total=%v", result.Balances[0].Total)
	}
}
