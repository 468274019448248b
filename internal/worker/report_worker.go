// Package worker runs the asynchronous report pipeline: ledger events in,
// period summary rows out.
package worker

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"budgetbee/internal/amqp"
	"budgetbee/internal/core"
	applog "budgetbee/internal/log"
	"budgetbee/internal/services"
	"budgetbee/internal/storage"
)

// SummaryAppender is the narrow slice of the exporter the worker needs.
type SummaryAppender interface {
	AppendSummary(ctx context.Context, period core.BudgetPeriod, sum core.PeriodSummary) error
}

// ReportWorker recomputes and exports the summary of whichever period a
// ledger event touched. Summaries are recomputed from the store on every
// event, so a reordered or replayed message can only ever export the
// current truth.
type ReportWorker struct {
	store     storage.Store
	appender  SummaryAppender
	calc      *services.SummaryCalculator
	batchSize int
	logger    *applog.Logger
}

func NewReportWorker(store storage.Store, appender SummaryAppender, batchSize int, logger *applog.Logger) *ReportWorker {
	return &ReportWorker{
		store:     store,
		appender:  appender,
		calc:      services.NewSummaryCalculator(store),
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleLedgerEvent exports the summary of the period the event's
// transaction belongs to. Events for unlinked or already-deleted
// transactions are dropped; there is nothing to report.
func (w *ReportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	periodID := msg.PeriodID
	if periodID == 0 {
		link, err := w.store.GetLinkByTransaction(ctx, msg.TransactionID)
		if errors.Is(err, core.ErrNotFound) {
			w.logger.InfoContext(ctx, "Ledger event outside any period, skipping",
				"transaction_id", msg.TransactionID, "kind", msg.Kind)
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve period for transaction %d: %w", msg.TransactionID, err)
		}
		periodID = link.PeriodID
	}

	return w.exportPeriod(ctx, periodID)
}

// ExportAll writes a summary row for up to batchSize periods, newest first.
// Run once at startup so the sheet catches up on anything missed while the
// worker was down.
func (w *ReportWorker) ExportAll(ctx context.Context) error {
	periods, err := w.store.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("list periods: %w", err)
	}
	exported := 0
	for i := len(periods) - 1; i >= 0 && exported < w.batchSize; i-- {
		if err := w.exportPeriod(ctx, periods[i].ID); err != nil {
			return err
		}
		exported++
	}
	w.logger.InfoContext(ctx, "Startup export finished", "periods", exported)
	return nil
}

func (w *ReportWorker) exportPeriod(ctx context.Context, periodID int64) error {
	period, err := w.store.GetPeriod(ctx, periodID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.InfoContext(ctx, "Period gone before export, skipping", "period_id", periodID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get period %d: %w", periodID, err)
	}
	sum, err := w.calc.Summarize(ctx, periodID)
	if err != nil {
		return fmt.Errorf("summarize period %d: %w", periodID, err)
	}
	if err := w.appender.AppendSummary(ctx, period, sum); err != nil {
		return fmt.Errorf("append summary for period %d: %w", periodID, err)
	}
	w.logger.InfoContext(ctx, "Period summary exported",
		"period_id", periodID,
		"allocated", sum.Allocated.String(),
		"spent", sum.Spent.String(),
		"remaining", sum.Remaining.String())
	return nil
}

// Run performs the startup export and then consumes ledger events until ctx
// is cancelled.
func (w *ReportWorker) Run(ctx context.Context, amqpURL, exchange, queue string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.ExportAll(ctx)
	})
	g.Go(func() error {
		return amqp.ConsumeWithReconnect(ctx, amqpURL, exchange, queue, func(msg *amqp.LedgerEventMessage) error {
			return w.HandleLedgerEvent(ctx, msg)
		})
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
