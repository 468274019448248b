package services

import (
	"context"
	"errors"
	"testing"

	"budgetbee/internal/core"
)

// Creating "Sep" closes "Aug" at August 31 and leaves
// "Sep" open.
func TestPeriodManager_CreateDerivesEndDates(t *testing.T) {
	store := newTestStore(t)
	mgr := NewPeriodManager(store)
	ctx := context.Background()

	aug := mustPeriod(t, store, "Aug", date(2024, 8, 1))
	sep := mustPeriod(t, store, "Sep", date(2024, 9, 1))

	aug, err := mgr.Get(ctx, aug.ID)
	if err != nil {
		t.Fatalf("get Aug: %v", err)
	}
	if aug.Open() || aug.EndDate.ISO() != "2024-08-31" {
		t.Errorf("Aug end = %v, want 2024-08-31", aug.EndDate)
	}
	sep, err = mgr.Get(ctx, sep.ID)
	if err != nil {
		t.Fatalf("get Sep: %v", err)
	}
	if !sep.Open() {
		t.Errorf("Sep end = %v, want open", sep.EndDate)
	}
}

// Inserting a period between two existing ones re-splits the timeline; no
// sequence of creates and deletes may leave an overlap or a gap between the
// first start and the open end.
func TestPeriodManager_NonOverlapUnderChurn(t *testing.T) {
	store := newTestStore(t)
	mgr := NewPeriodManager(store)
	ctx := context.Background()

	mustPeriod(t, store, "Q1", date(2024, 1, 1))
	mustPeriod(t, store, "Q3", date(2024, 7, 1))
	mid := mustPeriod(t, store, "Q2", date(2024, 4, 1))
	mustPeriod(t, store, "Q4", date(2024, 10, 1))
	if err := mgr.Delete(ctx, mid.ID); err != nil {
		t.Fatalf("delete Q2: %v", err)
	}

	periods, err := mgr.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(periods) != 3 {
		t.Fatalf("period count = %d, want 3", len(periods))
	}
	for i, p := range periods {
		if i < len(periods)-1 {
			next := periods[i+1]
			if p.Open() {
				t.Errorf("%s is open but not last", p.Name)
				continue
			}
			if want := next.StartDate.AddDays(-1); !p.EndDate.Equal(want.Time) {
				t.Errorf("%s end = %s, want %s", p.Name, p.EndDate.ISO(), want.ISO())
			}
		} else if !p.Open() {
			t.Errorf("last period %s end = %s, want open", p.Name, p.EndDate.ISO())
		}
	}
}

func TestPeriodManager_DuplicateStartDate(t *testing.T) {
	store := newTestStore(t)
	mustPeriod(t, store, "Aug", date(2024, 8, 1))

	_, err := NewPeriodManager(store).Create(context.Background(), "Aug again", date(2024, 8, 1))
	if !errors.Is(err, core.ErrDuplicateStartDate) {
		t.Errorf("duplicate start error = %v, want ErrDuplicateStartDate", err)
	}
}

func TestPeriodManager_PeriodContaining(t *testing.T) {
	store := newTestStore(t)
	aug := mustPeriod(t, store, "Aug", date(2024, 8, 1))
	sep := mustPeriod(t, store, "Sep", date(2024, 9, 1))
	mgr := NewPeriodManager(store)
	ctx := context.Background()

	tests := []struct {
		name   string
		when   core.Date
		wantID int64
	}{
		{"start boundary", date(2024, 8, 1), aug.ID},
		{"end boundary", date(2024, 8, 31), aug.ID},
		{"next period start", date(2024, 9, 1), sep.ID},
		{"open period far future", date(2030, 1, 1), sep.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := mgr.PeriodContaining(ctx, tt.when)
			if err != nil {
				t.Fatalf("PeriodContaining(%s): %v", tt.when.ISO(), err)
			}
			if p.ID != tt.wantID {
				t.Errorf("PeriodContaining(%s) = %q, want period %d", tt.when.ISO(), p.Name, tt.wantID)
			}
		})
	}

	if _, err := mgr.PeriodContaining(ctx, date(2024, 7, 31)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("date before all periods error = %v, want ErrNotFound", err)
	}
}

// Boundary changes move transactions between periods in the same unit.
func TestPeriodManager_RelinksOnBoundaryChange(t *testing.T) {
	store := newTestStore(t)
	exp := mustCategory(t, store, "Rent", core.Expense)
	acct := mustAccount(t, store, "Checking", 100000)
	aug := mustPeriod(t, store, "Aug", date(2024, 8, 1))
	ctx := context.Background()

	tx := mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: exp.ID, Amount: cents(-5000), Date: date(2024, 8, 20),
	})
	link, err := store.GetLinkByTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("link after record: %v", err)
	}
	if link.PeriodID != aug.ID {
		t.Fatalf("linked to period %d, want Aug %d", link.PeriodID, aug.ID)
	}

	// A mid-month period claims the transaction's date.
	late := mustPeriod(t, store, "Late Aug", date(2024, 8, 15))
	link, err = store.GetLinkByTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("link after split: %v", err)
	}
	if link.PeriodID != late.ID {
		t.Errorf("linked to period %d after split, want Late Aug %d", link.PeriodID, late.ID)
	}

	// Deleting it hands the transaction back.
	if err := NewPeriodManager(store).Delete(ctx, late.ID); err != nil {
		t.Fatalf("delete Late Aug: %v", err)
	}
	link, err = store.GetLinkByTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("link after delete: %v", err)
	}
	if link.PeriodID != aug.ID {
		t.Errorf("linked to period %d after delete, want Aug %d", link.PeriodID, aug.ID)
	}
}

func TestPeriodManager_DeleteRemovesAllocations(t *testing.T) {
	store := newTestStore(t)
	mustCategory(t, store, "Rent", core.Expense)
	p := mustPeriod(t, store, "Aug", date(2024, 8, 1))
	ctx := context.Background()

	if _, err := NewAllocationEngine(store).Allocate(ctx, p.ID, cents(10000), nil); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := NewPeriodManager(store).Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	allocs, err := store.ListAllocations(ctx)
	if err != nil {
		t.Fatalf("list allocations: %v", err)
	}
	if len(allocs) != 0 {
		t.Errorf("allocations left after period delete: %d", len(allocs))
	}
}
