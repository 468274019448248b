package services

import (
	"context"
	"testing"

	"budgetbee/internal/core"
	"budgetbee/internal/storage/memory"
)

// newTestStore returns a memory store with the reserved categories seeded,
// matching what migrations give the sqlite backend.
func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	if err := NewRegistry(store).EnsureReserved(context.Background()); err != nil {
		t.Fatalf("seed reserved categories: %v", err)
	}
	return store
}

func mustCategory(t *testing.T, store *memory.Store, name string, typ core.CategoryType) core.Category {
	t.Helper()
	c, err := NewRegistry(store).Create(context.Background(), name, typ)
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}

func mustAccount(t *testing.T, store *memory.Store, name string, starting int64) core.Account {
	t.Helper()
	a, err := NewLedger(store).OpenAccount(context.Background(), core.Account{
		Name:            name,
		Owner:           "test",
		Kind:            core.Checking,
		StartingBalance: cents(starting),
	})
	if err != nil {
		t.Fatalf("open account %q: %v", name, err)
	}
	return a
}

func mustPeriod(t *testing.T, store *memory.Store, name string, start core.Date) core.BudgetPeriod {
	t.Helper()
	p, err := NewPeriodManager(store).Create(context.Background(), name, start)
	if err != nil {
		t.Fatalf("create period %q: %v", name, err)
	}
	return p
}

func mustRecord(t *testing.T, store *memory.Store, tx core.Transaction) core.Transaction {
	t.Helper()
	out, err := NewLedger(store).Record(context.Background(), tx)
	if err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	return out
}

func date(y, m, d int) core.Date {
	return core.NewDate(y, m, d)
}

func cents(n int64) core.Money {
	return core.Money{Cents: n}
}
