// Package services holds the budget core: category registry, ledger,
// period manager, linker, allocation engine, summary calculator and
// projection processor. Every multi-step operation runs inside a single
// store transaction; the unexported helpers take the transactional store
// view so services compose within one unit.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"
)

// Registry manages the category catalogue, including the two reserved
// categories the rest of the core depends on.
type Registry struct {
	store storage.Store
}

func NewRegistry(store storage.Store) *Registry {
	return &Registry{store: store}
}

// EnsureReserved creates the Unallocated and System categories if they are
// missing. Called once at startup; the sqlite backend also seeds them via
// migration, so this is a no-op there.
func (r *Registry) EnsureReserved(ctx context.Context) error {
	return r.store.RunInTransaction(ctx, func(s storage.Store) error {
		for _, c := range []core.Category{core.UnallocatedCategory(), core.SystemCategory()} {
			_, err := s.GetCategoryByName(ctx, c.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, core.ErrNotFound) {
				return err
			}
			if _, err := s.CreateCategory(ctx, c); err != nil {
				return err
			}
			slog.InfoContext(ctx, "Created reserved category", "name", c.Name)
		}
		return nil
	})
}

// Create registers a new user category. Reserved names and the system type
// are refused; names are unique.
func (r *Registry) Create(ctx context.Context, name string, typ core.CategoryType) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), Type: typ, Active: true}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if typ == core.SystemType {
		return core.Category{}, fmt.Errorf("create category %q: %w", c.Name, core.ErrInvalidCategoryType)
	}
	if c.Name == core.UnallocatedName || c.Name == core.SystemName {
		return core.Category{}, fmt.Errorf("create category %q: %w", c.Name, core.ErrReservedCategory)
	}

	err := r.store.RunInTransaction(ctx, func(s storage.Store) error {
		_, err := s.GetCategoryByName(ctx, c.Name)
		if err == nil {
			return fmt.Errorf("create category %q: %w", c.Name, core.ErrDuplicateName)
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		id, err := s.CreateCategory(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name, "type", string(c.Type))
	return c, nil
}

// Deactivate soft-deletes a category. Past transactions keep pointing at it;
// it just stops being offered for new budgeting. Reserved categories cannot
// be deactivated.
func (r *Registry) Deactivate(ctx context.Context, id int64) error {
	return r.store.RunInTransaction(ctx, func(s storage.Store) error {
		c, err := s.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if c.IsReserved() {
			return fmt.Errorf("deactivate category %q: %w", c.Name, core.ErrReservedCategory)
		}
		if !c.Active {
			return nil
		}
		c.Active = false
		return s.UpdateCategory(ctx, c)
	})
}

func (r *Registry) Get(ctx context.Context, id int64) (core.Category, error) {
	return r.store.GetCategory(ctx, id)
}

func (r *Registry) List(ctx context.Context) ([]core.Category, error) {
	return r.store.ListCategories(ctx)
}

// TypeOf resolves a category name to its type.
func (r *Registry) TypeOf(ctx context.Context, name string) (core.CategoryType, error) {
	c, err := r.store.GetCategoryByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return "", err
	}
	return c.Type, nil
}

// ListBudgetable returns the active expense categories allocations may
// target. The Unallocated sink is excluded; it only receives remainders.
func (r *Registry) ListBudgetable(ctx context.Context) ([]core.Category, error) {
	return budgetableCategories(ctx, r.store)
}

func budgetableCategories(ctx context.Context, s storage.Store) ([]core.Category, error) {
	all, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Category
	for _, c := range all {
		if c.Active && c.Type == core.Expense && !c.IsUnallocated() {
			out = append(out, c)
		}
	}
	return out, nil
}
