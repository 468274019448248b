package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"
)

// PeriodManager owns the budget timeline. Periods are defined by their start
// dates alone; end dates are derived so the timeline is always contiguous
// and non-overlapping, with the latest period open-ended. Every boundary
// change relinks all transactions in the same unit.
type PeriodManager struct {
	store storage.Store
}

func NewPeriodManager(store storage.Store) *PeriodManager {
	return &PeriodManager{store: store}
}

// Create adds a period starting at start and recomputes every end date.
// A second period with the same start date is refused.
func (m *PeriodManager) Create(ctx context.Context, name string, start core.Date) (core.BudgetPeriod, error) {
	p := core.BudgetPeriod{Name: strings.TrimSpace(name), StartDate: start}
	if err := p.Validate(); err != nil {
		return core.BudgetPeriod{}, err
	}

	err := m.store.RunInTransaction(ctx, func(s storage.Store) error {
		existing, err := s.ListPeriods(ctx)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.StartDate.Equal(start.Time) {
				return fmt.Errorf("period starting %s: %w", start.ISO(), core.ErrDuplicateStartDate)
			}
		}
		id, err := s.CreatePeriod(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		if err := recalcRanges(ctx, s); err != nil {
			return err
		}
		if err := relinkAll(ctx, s); err != nil {
			return err
		}
		p, err = s.GetPeriod(ctx, id)
		return err
	})
	if err != nil {
		return core.BudgetPeriod{}, err
	}

	slog.InfoContext(ctx, "Budget period created",
		"id", p.ID, "name", p.Name, "start_date", p.StartDate.ISO())
	return p, nil
}

// Delete removes a period together with its allocations, recomputes the
// remaining end dates and relinks; the deleted period's transactions fall
// into the neighbour that absorbs its range.
func (m *PeriodManager) Delete(ctx context.Context, id int64) error {
	err := m.store.RunInTransaction(ctx, func(s storage.Store) error {
		if _, err := s.GetPeriod(ctx, id); err != nil {
			return err
		}
		if err := s.DeleteAllocationsByPeriod(ctx, id); err != nil {
			return err
		}
		if err := s.DeletePeriod(ctx, id); err != nil {
			return err
		}
		if err := recalcRanges(ctx, s); err != nil {
			return err
		}
		return relinkAll(ctx, s)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget period deleted", "id", id)
	return nil
}

func (m *PeriodManager) Get(ctx context.Context, id int64) (core.BudgetPeriod, error) {
	return m.store.GetPeriod(ctx, id)
}

func (m *PeriodManager) List(ctx context.Context) ([]core.BudgetPeriod, error) {
	return m.store.ListPeriods(ctx)
}

// PeriodContaining resolves the period covering a date, or ErrNotFound when
// the date precedes every period.
func (m *PeriodManager) PeriodContaining(ctx context.Context, d core.Date) (core.BudgetPeriod, error) {
	periods, err := m.store.ListPeriods(ctx)
	if err != nil {
		return core.BudgetPeriod{}, err
	}
	p, ok := periodFor(periods, d)
	if !ok {
		return core.BudgetPeriod{}, fmt.Errorf("no period contains %s: %w", d.ISO(), core.ErrNotFound)
	}
	return p, nil
}

// recalcRanges derives every end date from the sorted start dates: each
// period ends the day before the next one starts, and the last stays open.
func recalcRanges(ctx context.Context, s storage.Store) error {
	periods, err := s.ListPeriods(ctx)
	if err != nil {
		return err
	}
	for i, p := range periods {
		var end core.Date
		if i < len(periods)-1 {
			end = periods[i+1].StartDate.AddDays(-1)
		}
		if p.EndDate.Equal(end.Time) {
			continue
		}
		p.EndDate = end
		if err := s.UpdatePeriod(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
