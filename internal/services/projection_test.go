package services

import (
	"context"
	"errors"
	"testing"

	"budgetbee/internal/core"
)

func TestProjectionProcessor_Complete(t *testing.T) {
	store := newTestStore(t)
	rent := mustCategory(t, store, "Rent", core.Expense)
	acct := mustAccount(t, store, "Checking", 100000)
	p := mustPeriod(t, store, "Aug", date(2024, 8, 1))
	proc := NewProjectionProcessor(store)
	calc := NewSummaryCalculator(store)
	ctx := context.Background()

	proj := mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID, Amount: cents(-60000),
		Date: date(2024, 8, 5), Description: "rent", Projected: true,
	})

	before, err := calc.Summarize(ctx, p.ID)
	if err != nil {
		t.Fatalf("summarize before: %v", err)
	}
	if before.Projected != cents(60000) || !before.Spent.IsZero() {
		t.Fatalf("before completion: projected %s spent %s", before.Projected, before.Spent)
	}

	real, err := proc.Complete(ctx, proj.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if real.ID == proj.ID || real.Projected {
		t.Errorf("real transaction = %+v, want a new realized row", real)
	}
	if real.Amount != cents(-60000) || real.Date.ISO() != "2024-08-05" {
		t.Errorf("real transaction carries %s on %s, want the projected values", real.Amount, real.Date.ISO())
	}

	// The projection flips to completed and stops counting; the real row
	// takes over as spend. No double counting.
	got, err := store.GetTransaction(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get projection: %v", err)
	}
	if got.Status != core.StatusCompleted {
		t.Errorf("projection status = %q, want completed", got.Status)
	}
	after, err := calc.Summarize(ctx, p.ID)
	if err != nil {
		t.Fatalf("summarize after: %v", err)
	}
	if after.Spent != cents(60000) {
		t.Errorf("Spent after completion = %s, want 600.00", after.Spent)
	}
	if !after.Projected.IsZero() {
		t.Errorf("Projected after completion = %s, want zero", after.Projected)
	}

	// The real row moves the balance; the projection never did.
	a, err := store.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a.CurrentBalance != cents(40000) {
		t.Errorf("balance after completion = %s, want 400.00", a.CurrentBalance)
	}
}

func TestProjectionProcessor_TerminalStates(t *testing.T) {
	store := newTestStore(t)
	rent := mustCategory(t, store, "Rent", core.Expense)
	acct := mustAccount(t, store, "Checking", 100000)
	proc := NewProjectionProcessor(store)
	ctx := context.Background()

	completed := mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID, Amount: cents(-1000), Date: date(2024, 8, 1), Projected: true,
	})
	if _, err := proc.Complete(ctx, completed.ID); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	skipped := mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID, Amount: cents(-2000), Date: date(2024, 8, 2), Projected: true,
	})
	if err := proc.Skip(ctx, skipped.ID); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	realized := mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID, Amount: cents(-3000), Date: date(2024, 8, 3),
	})

	tests := []struct {
		name    string
		op      func() error
		wantErr error
	}{
		{"complete completed", func() error { _, err := proc.Complete(ctx, completed.ID); return err }, core.ErrProjectionSettled},
		{"skip completed", func() error { return proc.Skip(ctx, completed.ID) }, core.ErrProjectionSettled},
		{"complete skipped", func() error { _, err := proc.Complete(ctx, skipped.ID); return err }, core.ErrProjectionSettled},
		{"skip skipped", func() error { return proc.Skip(ctx, skipped.ID) }, core.ErrProjectionSettled},
		{"complete realized row", func() error { _, err := proc.Complete(ctx, realized.ID); return err }, core.ErrInvalidStatus},
		{"complete missing", func() error { _, err := proc.Complete(ctx, 9999); return err }, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// A skipped projection leaves no ledger trace: one real row from the
	// completion, one recorded directly.
	txns, err := store.ListTransactionsByAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	realCount := 0
	for _, tx := range txns {
		if !tx.Projected {
			realCount++
		}
	}
	if realCount != 2 {
		t.Errorf("realized rows = %d, want 2", realCount)
	}
}

func TestProjectionProcessor_Process(t *testing.T) {
	store := newTestStore(t)
	rent := mustCategory(t, store, "Rent", core.Expense)
	acct := mustAccount(t, store, "Checking", 100000)
	proc := NewProjectionProcessor(store)
	ctx := context.Background()

	mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID, Amount: cents(-1000), Date: date(2024, 8, 1), Projected: true,
	})
	mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID, Amount: cents(-2000), Date: date(2024, 8, 15), Projected: true,
	})
	future := mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID, Amount: cents(-3000), Date: date(2024, 9, 1), Projected: true,
	})

	n, err := proc.Process(ctx, date(2024, 8, 20))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n != 2 {
		t.Errorf("completed = %d, want 2", n)
	}

	// The future projection stays pending.
	got, err := store.GetTransaction(ctx, future.ID)
	if err != nil {
		t.Fatalf("get future projection: %v", err)
	}
	if got.Status != core.StatusPending {
		t.Errorf("future projection status = %q, want pending", got.Status)
	}
	due, err := proc.ListDue(ctx, date(2024, 8, 20))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due after Process = %d, want 0", len(due))
	}
}
