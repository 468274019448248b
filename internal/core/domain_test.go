package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2024, 9, 1).AddDays(-1)
	if d.ISO() != "2024-08-31" {
		t.Fatalf("expected 2024-08-31, got %s", d.ISO())
	}
	d = NewDate(2024, 2, 28).AddDays(1)
	if d.ISO() != "2024-02-29" {
		t.Fatalf("expected leap day, got %s", d.ISO())
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-08-01")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.ISO() != "2024-08-01" {
		t.Fatalf("round trip mismatch: %s", d.ISO())
	}
	if _, err := ParseDate("01/08/2024"); err == nil {
		t.Fatalf("expected error for bad format")
	}
}

func TestPeriodContains(t *testing.T) {
	closed := BudgetPeriod{Name: "Aug", StartDate: NewDate(2024, 8, 1), EndDate: NewDate(2024, 8, 31)}
	open := BudgetPeriod{Name: "Sep", StartDate: NewDate(2024, 9, 1)}

	cases := []struct {
		p    BudgetPeriod
		d    Date
		want bool
	}{
		{closed, NewDate(2024, 8, 1), true},
		{closed, NewDate(2024, 8, 31), true},
		{closed, NewDate(2024, 7, 31), false},
		{closed, NewDate(2024, 9, 1), false},
		{open, NewDate(2024, 9, 1), true},
		{open, NewDate(2030, 1, 1), true},
		{open, NewDate(2024, 8, 31), false},
	}
	for i, tc := range cases {
		if got := tc.p.Contains(tc.d); got != tc.want {
			t.Fatalf("case %d: Contains(%s) = %v, want %v", i, tc.d.ISO(), got, tc.want)
		}
	}
}

func TestCategoryReserved(t *testing.T) {
	if !UnallocatedCategory().IsUnallocated() {
		t.Fatalf("Unallocated sentinel not recognized")
	}
	if !SystemCategory().IsSystem() {
		t.Fatalf("System sentinel not recognized")
	}
	groceries := Category{Name: "Groceries", Type: Expense, Active: true}
	if groceries.IsReserved() {
		t.Fatalf("user category flagged reserved")
	}
	// An income category named Unallocated is not the reserved sink.
	odd := Category{Name: UnallocatedName, Type: Income}
	if odd.IsUnallocated() {
		t.Fatalf("income category must not match the expense sink")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		AccountID:   1,
		CategoryID:  2,
		Amount:      Money{Cents: -5000},
		Date:        NewDate(2025, 1, 2),
		Description: "groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: 100}},                                          // zero date
		{AccountID: 1, CategoryID: 2, Amount: Money{}, Date: NewDate(2025, 1, 1)},                         // zero amount
		{AccountID: 1, Amount: Money{Cents: 100}, Date: NewDate(2025, 1, 1)},                              // no category
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: 100}, Date: NewDate(2025, 1, 1), Projected: true}, // projected without status
	}
	for i, txn := range bads {
		if err := txn.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestProjectionStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusSkipped.Terminal() {
		t.Fatalf("completed and skipped are terminal")
	}
}
