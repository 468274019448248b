package services

import (
	"context"
	"errors"
	"testing"

	"budgetbee/internal/core"
)

// Starting balance $500.00, a $50 expense on day 2 and a
// $20 income on day 1 recorded afterwards. Replay orders by (date, id), so
// the day-1 snapshot is $520.00 and the day-2 snapshot $470.00.
func TestLedger_ReplaySnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	groceries := mustCategory(t, store, "Groceries", core.Expense)
	salary := mustCategory(t, store, "Salary", core.Income)
	acct := mustAccount(t, store, "Checking", 50000)

	expense := mustRecord(t, store, core.Transaction{
		AccountID:   acct.ID,
		CategoryID:  groceries.ID,
		Amount:      cents(-5000),
		Date:        date(2024, 8, 2),
		Description: "groceries",
	})
	income := mustRecord(t, store, core.Transaction{
		AccountID:   acct.ID,
		CategoryID:  salary.ID,
		Amount:      cents(2000),
		Date:        date(2024, 8, 1),
		Description: "refund",
	})

	income, err := NewLedger(store).Get(ctx, income.ID)
	if err != nil {
		t.Fatalf("get income: %v", err)
	}
	expense, err = NewLedger(store).Get(ctx, expense.ID)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if income.Balance != cents(52000) {
		t.Errorf("day-1 snapshot = %s, want 520.00", income.Balance)
	}
	if expense.Balance != cents(47000) {
		t.Errorf("day-2 snapshot = %s, want 470.00", expense.Balance)
	}

	a, err := store.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a.CurrentBalance != cents(47000) {
		t.Errorf("current balance = %s, want 470.00", a.CurrentBalance)
	}
}

// Replay is a pure function of the stored rows: recording the same
// transactions in a different order converges to identical balances.
func TestLedger_ReplayInsertionOrderIndependence(t *testing.T) {
	run := func(t *testing.T, reversed bool) (core.Money, []core.Money) {
		store := newTestStore(t)
		cat := mustCategory(t, store, "Misc", core.Expense)
		sal := mustCategory(t, store, "Salary", core.Income)
		acct := mustAccount(t, store, "Checking", 10000)

		txns := []core.Transaction{
			{AccountID: acct.ID, CategoryID: sal.ID, Amount: cents(30000), Date: date(2024, 1, 5)},
			{AccountID: acct.ID, CategoryID: cat.ID, Amount: cents(-2500), Date: date(2024, 1, 10)},
			{AccountID: acct.ID, CategoryID: cat.ID, Amount: cents(-1500), Date: date(2024, 1, 20)},
		}
		if reversed {
			for i, j := 0, len(txns)-1; i < j; i, j = i+1, j-1 {
				txns[i], txns[j] = txns[j], txns[i]
			}
		}
		for _, tx := range txns {
			mustRecord(t, store, tx)
		}

		a, err := store.GetAccount(context.Background(), acct.ID)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		ledger, err := store.ListTransactionsByAccount(context.Background(), acct.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var snaps []core.Money
		for _, tx := range ledger {
			snaps = append(snaps, tx.Balance)
		}
		return a.CurrentBalance, snaps
	}

	fwdBalance, fwdSnaps := run(t, false)
	revBalance, revSnaps := run(t, true)
	if fwdBalance != revBalance {
		t.Errorf("final balances differ: %s vs %s", fwdBalance, revBalance)
	}
	if len(fwdSnaps) != len(revSnaps) {
		t.Fatalf("snapshot counts differ: %d vs %d", len(fwdSnaps), len(revSnaps))
	}
	for i := range fwdSnaps {
		if fwdSnaps[i] != revSnaps[i] {
			t.Errorf("snapshot %d differs: %s vs %s", i, fwdSnaps[i], revSnaps[i])
		}
	}
}

func TestLedger_SignEnforcement(t *testing.T) {
	store := newTestStore(t)
	exp := mustCategory(t, store, "Rent", core.Expense)
	inc := mustCategory(t, store, "Salary", core.Income)
	acct := mustAccount(t, store, "Checking", 0)
	ledger := NewLedger(store)
	ctx := context.Background()

	tests := []struct {
		name       string
		categoryID int64
		amount     int64
		projected  bool
		wantErr    error
	}{
		{"expense must be negative", exp.ID, 5000, false, core.ErrInvalidCategoryType},
		{"income must be positive", inc.ID, -5000, false, core.ErrInvalidCategoryType},
		{"projected estimates exempt", exp.ID, -5000, true, nil},
		{"valid expense", exp.ID, -5000, false, nil},
		{"valid income", inc.ID, 5000, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Record(ctx, core.Transaction{
				AccountID:  acct.ID,
				CategoryID: tt.categoryID,
				Amount:     cents(tt.amount),
				Date:       date(2024, 3, 1),
				Projected:  tt.projected,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Record error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLedger_ProjectedRowsDoNotMoveBalance(t *testing.T) {
	store := newTestStore(t)
	exp := mustCategory(t, store, "Rent", core.Expense)
	acct := mustAccount(t, store, "Checking", 10000)

	mustRecord(t, store, core.Transaction{
		AccountID:  acct.ID,
		CategoryID: exp.ID,
		Amount:     cents(-8000),
		Date:       date(2024, 4, 1),
		Projected:  true,
	})

	a, err := store.GetAccount(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a.CurrentBalance != cents(10000) {
		t.Errorf("balance moved by projected row: %s", a.CurrentBalance)
	}
}

func TestLedger_AdjustBalance(t *testing.T) {
	store := newTestStore(t)
	exp := mustCategory(t, store, "Misc", core.Expense)
	acct := mustAccount(t, store, "Checking", 10000)
	ledger := NewLedger(store)
	ctx := context.Background()

	mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: exp.ID, Amount: cents(-3000), Date: date(2024, 5, 2),
	})

	// Real-world balance says 65.00; replay says 70.00.
	correction, err := ledger.AdjustBalance(ctx, acct.ID, cents(6500), date(2024, 5, 3), "")
	if err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	if correction.Amount != cents(-500) {
		t.Errorf("correction amount = %s, want -5.00", correction.Amount)
	}
	cat, err := store.GetCategory(ctx, correction.CategoryID)
	if err != nil {
		t.Fatalf("get correction category: %v", err)
	}
	if !cat.IsSystem() {
		t.Errorf("correction category = %q, want System", cat.Name)
	}

	a, err := store.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a.CurrentBalance != cents(6500) {
		t.Errorf("balance after adjustment = %s, want 65.00", a.CurrentBalance)
	}

	// A second adjustment to the same figure has nothing to correct.
	if _, err := ledger.AdjustBalance(ctx, acct.ID, cents(6500), date(2024, 5, 4), ""); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("no-op adjustment error = %v, want ErrInvalidAmount", err)
	}
}

func TestLedger_DeleteReplaysAndUnlinks(t *testing.T) {
	store := newTestStore(t)
	exp := mustCategory(t, store, "Rent", core.Expense)
	acct := mustAccount(t, store, "Checking", 10000)
	mustPeriod(t, store, "May", date(2024, 5, 1))
	ctx := context.Background()

	tx := mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: exp.ID, Amount: cents(-4000), Date: date(2024, 5, 10),
	})
	if _, err := store.GetLinkByTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("transaction not linked after record: %v", err)
	}

	if err := NewLedger(store).Delete(ctx, tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("transaction still present after delete: %v", err)
	}
	if _, err := store.GetLinkByTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("link still present after delete: %v", err)
	}
	a, err := store.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a.CurrentBalance != cents(10000) {
		t.Errorf("balance after delete = %s, want 100.00", a.CurrentBalance)
	}
}

func TestLedger_UpdateMovesBetweenAccounts(t *testing.T) {
	store := newTestStore(t)
	exp := mustCategory(t, store, "Rent", core.Expense)
	a1 := mustAccount(t, store, "Checking", 10000)
	a2 := mustAccount(t, store, "Savings", 20000)
	ctx := context.Background()

	tx := mustRecord(t, store, core.Transaction{
		AccountID: a1.ID, CategoryID: exp.ID, Amount: cents(-4000), Date: date(2024, 6, 1),
	})

	tx.AccountID = a2.ID
	if _, err := NewLedger(store).Update(ctx, tx); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got1, _ := store.GetAccount(ctx, a1.ID)
	got2, _ := store.GetAccount(ctx, a2.ID)
	if got1.CurrentBalance != cents(10000) {
		t.Errorf("old account balance = %s, want 100.00", got1.CurrentBalance)
	}
	if got2.CurrentBalance != cents(16000) {
		t.Errorf("new account balance = %s, want 160.00", got2.CurrentBalance)
	}
}

func TestLedger_CloseAccount(t *testing.T) {
	store := newTestStore(t)
	exp := mustCategory(t, store, "Rent", core.Expense)
	acct := mustAccount(t, store, "Old", 10000)
	ledger := NewLedger(store)
	ctx := context.Background()

	mustRecord(t, store, core.Transaction{
		AccountID: acct.ID, CategoryID: exp.ID, Amount: cents(-2500), Date: date(2024, 7, 1),
	})

	if err := ledger.CloseAccount(ctx, acct.ID, date(2024, 7, 31)); err != nil {
		t.Fatalf("CloseAccount: %v", err)
	}
	a, err := store.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if a.Active {
		t.Error("account still active after close")
	}
	if !a.CurrentBalance.IsZero() {
		t.Errorf("balance after close = %s, want zero", a.CurrentBalance)
	}

	// Closed accounts refuse new transactions and a second close.
	_, err = ledger.Record(ctx, core.Transaction{
		AccountID: acct.ID, CategoryID: exp.ID, Amount: cents(-100), Date: date(2024, 8, 1),
	})
	if !errors.Is(err, core.ErrAccountClosed) {
		t.Errorf("record on closed account error = %v, want ErrAccountClosed", err)
	}
	if err := ledger.CloseAccount(ctx, acct.ID, date(2024, 8, 1)); !errors.Is(err, core.ErrAccountClosed) {
		t.Errorf("double close error = %v, want ErrAccountClosed", err)
	}
}

func TestLedger_OpenAccountDuplicateName(t *testing.T) {
	store := newTestStore(t)
	mustAccount(t, store, "Checking", 0)
	_, err := NewLedger(store).OpenAccount(context.Background(), core.Account{
		Name: "Checking", Owner: "test", Kind: core.Checking,
	})
	if !errors.Is(err, core.ErrDuplicateName) {
		t.Errorf("duplicate account error = %v, want ErrDuplicateName", err)
	}
}
