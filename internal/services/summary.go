package services

import (
	"context"
	"fmt"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"
)

// SummaryCalculator derives budget figures from the rows on every call.
// Nothing here is cached: a summary is always a pure function of the
// current allocations, links and transactions.
type SummaryCalculator struct {
	store storage.Store
}

func NewSummaryCalculator(store storage.Store) *SummaryCalculator {
	return &SummaryCalculator{store: store}
}

// Summarize computes one period's figures.
//
//	Allocated = sum of the period's allocation rows
//	Spent     = sum of |amount| over realized, non-transfer expense rows
//	            linked to the period
//	Projected = sum of |amount| over pending projected expense rows linked
//	            to the period
//	Remaining = Allocated − Spent − Projected
//
// System and transfer transactions never count; completed or skipped
// projections never count (the completed one's real row already does).
func (c *SummaryCalculator) Summarize(ctx context.Context, periodID int64) (core.PeriodSummary, error) {
	var sum core.PeriodSummary
	err := c.store.RunInTransaction(ctx, func(s storage.Store) error {
		if _, err := s.GetPeriod(ctx, periodID); err != nil {
			return err
		}
		sum = core.PeriodSummary{PeriodID: periodID}

		allocs, err := s.ListAllocationsByPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		for _, a := range allocs {
			sum.Allocated = sum.Allocated.Add(a.Amount)
		}

		links, err := s.ListLinksByPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		types := map[int64]core.Category{}
		for _, l := range links {
			t, err := s.GetTransaction(ctx, l.TransactionID)
			if err != nil {
				return err
			}
			if t.Transfer {
				continue
			}
			cat, ok := types[t.CategoryID]
			if !ok {
				cat, err = s.GetCategory(ctx, t.CategoryID)
				if err != nil {
					return err
				}
				types[t.CategoryID] = cat
			}
			if cat.Type != core.Expense {
				continue
			}
			switch {
			case !t.Projected:
				sum.Spent = sum.Spent.Add(t.Amount.Abs())
			case t.Status == core.StatusPending:
				sum.Projected = sum.Projected.Add(t.Amount.Abs())
			}
		}

		sum.Remaining = sum.Allocated.Sub(sum.Spent).Sub(sum.Projected)
		return nil
	})
	if err != nil {
		return core.PeriodSummary{}, err
	}
	return sum, nil
}

// SpentByCategory breaks the period's realized spend down per category.
func (c *SummaryCalculator) SpentByCategory(ctx context.Context, periodID int64) ([]core.CategoryAmount, error) {
	var out []core.CategoryAmount
	err := c.store.RunInTransaction(ctx, func(s storage.Store) error {
		if _, err := s.GetPeriod(ctx, periodID); err != nil {
			return err
		}
		links, err := s.ListLinksByPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		byCategory := map[int64]core.Money{}
		names := map[int64]string{}
		var order []int64
		for _, l := range links {
			t, err := s.GetTransaction(ctx, l.TransactionID)
			if err != nil {
				return err
			}
			if t.Transfer || t.Projected {
				continue
			}
			cat, err := s.GetCategory(ctx, t.CategoryID)
			if err != nil {
				return err
			}
			if cat.Type != core.Expense {
				continue
			}
			if _, seen := byCategory[cat.ID]; !seen {
				order = append(order, cat.ID)
				names[cat.ID] = cat.Name
			}
			byCategory[cat.ID] = byCategory[cat.ID].Add(t.Amount.Abs())
		}
		out = make([]core.CategoryAmount, 0, len(order))
		for _, id := range order {
			out = append(out, core.CategoryAmount{
				CategoryID: id,
				Name:       names[id],
				Amount:     byCategory[id],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SpendingSeries produces one point per day over [from, to]: cumulative
// realized spend against cumulative allocated budget. Allocations are
// attributed to their period's start date, so the budget line steps up as
// each period opens. Both lines start from zero at the window's first day.
func (c *SummaryCalculator) SpendingSeries(ctx context.Context, from, to core.Date) ([]core.SeriesPoint, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from.Time) {
		return nil, fmt.Errorf("series range %s..%s: %w", from.ISO(), to.ISO(), core.ErrInvalidDate)
	}

	var points []core.SeriesPoint
	err := c.store.RunInTransaction(ctx, func(s storage.Store) error {
		spentDelta := map[string]core.Money{}
		budgetDelta := map[string]core.Money{}

		txns, err := s.ListTransactions(ctx)
		if err != nil {
			return err
		}
		types := map[int64]core.Category{}
		for _, t := range txns {
			if t.Projected || t.Transfer {
				continue
			}
			if t.Date.Before(from.Time) || t.Date.After(to.Time) {
				continue
			}
			cat, ok := types[t.CategoryID]
			if !ok {
				cat, err = s.GetCategory(ctx, t.CategoryID)
				if err != nil {
					return err
				}
				types[t.CategoryID] = cat
			}
			if cat.Type != core.Expense {
				continue
			}
			key := t.Date.ISO()
			spentDelta[key] = spentDelta[key].Add(t.Amount.Abs())
		}

		allocs, err := s.ListAllocations(ctx)
		if err != nil {
			return err
		}
		starts := map[int64]core.Date{}
		for _, a := range allocs {
			start, ok := starts[a.PeriodID]
			if !ok {
				p, err := s.GetPeriod(ctx, a.PeriodID)
				if err != nil {
					return err
				}
				start = p.StartDate
				starts[a.PeriodID] = start
			}
			if start.Before(from.Time) || start.After(to.Time) {
				continue
			}
			key := start.ISO()
			budgetDelta[key] = budgetDelta[key].Add(a.Amount)
		}

		var spent, budget core.Money
		for d := from; !d.After(to.Time); d = d.AddDays(1) {
			key := d.ISO()
			spent = spent.Add(spentDelta[key])
			budget = budget.Add(budgetDelta[key])
			points = append(points, core.SeriesPoint{Date: d, Spent: spent, Budget: budget})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}
