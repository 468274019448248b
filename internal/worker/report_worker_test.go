package worker

import (
	"context"
	"testing"

	"budgetbee/internal/amqp"
	"budgetbee/internal/core"
	applog "budgetbee/internal/log"
	"budgetbee/internal/services"
	"budgetbee/internal/storage/memory"
)

type fakeAppender struct {
	rows []core.PeriodSummary
}

func (f *fakeAppender) AppendSummary(_ context.Context, _ core.BudgetPeriod, sum core.PeriodSummary) error {
	f.rows = append(f.rows, sum)
	return nil
}

func newWorkerFixture(t *testing.T) (*memory.Store, *fakeAppender, *ReportWorker) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	if err := services.NewRegistry(store).EnsureReserved(ctx); err != nil {
		t.Fatalf("seed reserved categories: %v", err)
	}
	appender := &fakeAppender{}
	w := NewReportWorker(store, appender, 10, applog.New(applog.DefaultConfig()))
	return store, appender, w
}

func TestReportWorker_HandleLedgerEvent(t *testing.T) {
	store, appender, w := newWorkerFixture(t)
	ctx := context.Background()

	rent, err := services.NewRegistry(store).Create(ctx, "Rent", core.Expense)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	acct, err := services.NewLedger(store).OpenAccount(ctx, core.Account{
		Name: "Checking", Owner: "test", Kind: core.Checking,
		StartingBalance: core.Money{Cents: 100000},
	})
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	period, err := services.NewPeriodManager(store).Create(ctx, "Aug", core.NewDate(2024, 8, 1))
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	tx, err := services.NewLedger(store).Record(ctx, core.Transaction{
		AccountID: acct.ID, CategoryID: rent.ID,
		Amount: core.Money{Cents: -30000}, Date: core.NewDate(2024, 8, 5),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	// Period resolved through the budget link when the message omits it.
	msg := amqp.NewLedgerEventMessage(amqp.EventRecorded, tx.ID, acct.ID, 0)
	if err := w.HandleLedgerEvent(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if len(appender.rows) != 1 {
		t.Fatalf("exported rows = %d, want 1", len(appender.rows))
	}
	if got := appender.rows[0]; got.PeriodID != period.ID || got.Spent.Cents != 30000 {
		t.Errorf("exported summary = %+v, want period %d with spent 30000", got, period.ID)
	}
}

func TestReportWorker_UnlinkedEventSkipped(t *testing.T) {
	_, appender, w := newWorkerFixture(t)

	msg := amqp.NewLedgerEventMessage(amqp.EventDeleted, 12345, 0, 0)
	if err := w.HandleLedgerEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerEvent for unlinked transaction: %v", err)
	}
	if len(appender.rows) != 0 {
		t.Errorf("exported rows = %d, want 0", len(appender.rows))
	}
}

func TestReportWorker_ExportAllRespectsBatchSize(t *testing.T) {
	store, _, _ := newWorkerFixture(t)
	ctx := context.Background()

	mgr := services.NewPeriodManager(store)
	for m := 1; m <= 5; m++ {
		if _, err := mgr.Create(ctx, "P", core.NewDate(2024, m, 1)); err != nil {
			t.Fatalf("create period %d: %v", m, err)
		}
	}

	appender := &fakeAppender{}
	w := NewReportWorker(store, appender, 3, applog.New(applog.DefaultConfig()))
	if err := w.ExportAll(ctx); err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(appender.rows) != 3 {
		t.Errorf("exported rows = %d, want batch size 3", len(appender.rows))
	}
}
