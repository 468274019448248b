package services

import (
	"context"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"
)

// Linker maintains the transaction-to-period mapping. Periods never overlap,
// so a transaction's date selects at most one period; linking is idempotent
// and a relink after period changes converges to the same mapping.
type Linker struct {
	store storage.Store
}

func NewLinker(store storage.Store) *Linker {
	return &Linker{store: store}
}

// Link attaches one transaction to the period covering its date. The second
// return reports whether any period covers it; false leaves it unlinked,
// which is not an error.
func (l *Linker) Link(ctx context.Context, transactionID int64) (core.BudgetLink, bool, error) {
	var link core.BudgetLink
	var linked bool
	err := l.store.RunInTransaction(ctx, func(s storage.Store) error {
		t, err := s.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		link, linked, err = linkTransaction(ctx, s, t)
		return err
	})
	if err != nil {
		return core.BudgetLink{}, false, err
	}
	return link, linked, nil
}

// RelinkAll rebuilds every link from scratch. Called after any period
// boundary change.
func (l *Linker) RelinkAll(ctx context.Context) error {
	return l.store.RunInTransaction(ctx, func(s storage.Store) error {
		return relinkAll(ctx, s)
	})
}

func linkTransaction(ctx context.Context, s storage.Store, t core.Transaction) (core.BudgetLink, bool, error) {
	periods, err := s.ListPeriods(ctx)
	if err != nil {
		return core.BudgetLink{}, false, err
	}
	p, ok := periodFor(periods, t.Date)
	if !ok {
		// Date precedes every period; drop any stale link.
		if err := s.DeleteLinkByTransaction(ctx, t.ID); err != nil {
			return core.BudgetLink{}, false, err
		}
		return core.BudgetLink{}, false, nil
	}
	link := core.BudgetLink{PeriodID: p.ID, TransactionID: t.ID}
	if err := s.CreateLink(ctx, link); err != nil {
		return core.BudgetLink{}, false, err
	}
	return link, true, nil
}

func relinkAll(ctx context.Context, s storage.Store) error {
	txns, err := s.ListTransactions(ctx)
	if err != nil {
		return err
	}
	for _, t := range txns {
		if _, _, err := linkTransaction(ctx, s, t); err != nil {
			return err
		}
	}
	return nil
}

// periodFor picks the period containing d. Periods are sorted by start date
// and non-overlapping, so the match is unique.
func periodFor(periods []core.BudgetPeriod, d core.Date) (core.BudgetPeriod, bool) {
	for _, p := range periods {
		if p.Contains(d) {
			return p, true
		}
	}
	return core.BudgetPeriod{}, false
}
