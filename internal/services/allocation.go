package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"
)

// AllocationEngine distributes an income event across expense categories
// within one budget period. Every cent of the event lands somewhere: the
// explicit choices first, the strictly positive remainder in Unallocated.
type AllocationEngine struct {
	store storage.Store
}

// AllocationChoice is one ordered slice of an income event.
type AllocationChoice struct {
	CategoryID  int64
	Amount      core.Money
	Description string
}

func NewAllocationEngine(store storage.Store) *AllocationEngine {
	return &AllocationEngine{store: store}
}

// Allocate applies the ordered choices against an income amount for one
// period. Each choice must leave the running remainder non-negative;
// amounts accumulate into the period's existing allocation rows. Returns the
// rows touched, including the Unallocated remainder row if one was written.
func (e *AllocationEngine) Allocate(ctx context.Context, periodID int64, income core.Money, choices []AllocationChoice) ([]core.Allocation, error) {
	if income.Cents <= 0 {
		return nil, fmt.Errorf("income must be positive: %w", core.ErrInvalidAmount)
	}

	var out []core.Allocation
	err := e.store.RunInTransaction(ctx, func(s storage.Store) error {
		out = out[:0]
		if _, err := s.GetPeriod(ctx, periodID); err != nil {
			return err
		}

		// With no budgetable categories (or no choices) the loop is empty
		// and the whole event lands in Unallocated below.
		budgetable, err := budgetableCategories(ctx, s)
		if err != nil {
			return err
		}
		allowed := make(map[int64]bool, len(budgetable))
		for _, c := range budgetable {
			allowed[c.ID] = true
		}

		remaining := income
		for _, choice := range choices {
			if choice.Amount.Cents <= 0 {
				return fmt.Errorf("allocation amount must be positive: %w", core.ErrInvalidAmount)
			}
			if choice.Amount.Cents > remaining.Cents {
				return fmt.Errorf("allocating %s with %s remaining: %w",
					choice.Amount.String(), remaining.String(), core.ErrOverAllocation)
			}
			if !allowed[choice.CategoryID] {
				cat, err := s.GetCategory(ctx, choice.CategoryID)
				if err != nil {
					return err
				}
				return fmt.Errorf("category %q is not budgetable: %w", cat.Name, core.ErrInvalidCategoryType)
			}
			row, err := accumulate(ctx, s, core.Allocation{
				PeriodID:    periodID,
				CategoryID:  choice.CategoryID,
				Amount:      choice.Amount,
				Description: choice.Description,
			})
			if err != nil {
				return err
			}
			out = append(out, row)
			remaining = remaining.Sub(choice.Amount)
		}

		if remaining.Cents > 0 {
			row, err := accumulateUnallocated(ctx, s, periodID, remaining)
			if err != nil {
				return err
			}
			out = append(out, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Income allocated",
		"period_id", periodID, "income", income.String(), "choices", len(choices))
	return out, nil
}

// ListByPeriod returns the period's allocation rows.
func (e *AllocationEngine) ListByPeriod(ctx context.Context, periodID int64) ([]core.Allocation, error) {
	return e.store.ListAllocationsByPeriod(ctx, periodID)
}

// accumulate adds the amount into the period's existing row for the
// category, creating the row on first allocation.
func accumulate(ctx context.Context, s storage.Store, a core.Allocation) (core.Allocation, error) {
	existing, err := s.GetAllocationFor(ctx, a.PeriodID, a.CategoryID)
	if err == nil {
		existing.Amount = existing.Amount.Add(a.Amount)
		if a.Description != "" {
			existing.Description = a.Description
		}
		if err := s.UpdateAllocation(ctx, existing); err != nil {
			return core.Allocation{}, err
		}
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Allocation{}, err
	}
	id, err := s.CreateAllocation(ctx, a)
	if err != nil {
		return core.Allocation{}, err
	}
	a.ID = id
	return a, nil
}

func accumulateUnallocated(ctx context.Context, s storage.Store, periodID int64, amount core.Money) (core.Allocation, error) {
	sink, err := s.GetCategoryByName(ctx, core.UnallocatedName)
	if err != nil {
		return core.Allocation{}, err
	}
	return accumulate(ctx, s, core.Allocation{
		PeriodID:   periodID,
		CategoryID: sink.ID,
		Amount:     amount,
	})
}
