// Package storage defines the persistence boundary of the budget core.
// The sqlite and memory subpackages implement it.
package storage

import (
	"context"

	"budgetbee/internal/core"
)

// Store is the narrow persistence contract the core services run against.
//
// Reads that the reconciliation logic depends on come back in a fixed order:
// ListTransactionsByAccount and ListTransactions by (date, id) ascending,
// ListPeriods by start date ascending. Missing rows are reported as
// core.ErrNotFound; any other failure wraps core.ErrStorage.
type Store interface {
	// Accounts.
	CreateAccount(ctx context.Context, a core.Account) (int64, error)
	GetAccount(ctx context.Context, id int64) (core.Account, error)
	GetAccountByName(ctx context.Context, name string) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)
	UpdateAccount(ctx context.Context, a core.Account) error

	// Categories.
	CreateCategory(ctx context.Context, c core.Category) (int64, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	GetCategoryByName(ctx context.Context, name string) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error

	// Transactions.
	CreateTransaction(ctx context.Context, t core.Transaction) (int64, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)

	// Budget periods.
	CreatePeriod(ctx context.Context, p core.BudgetPeriod) (int64, error)
	GetPeriod(ctx context.Context, id int64) (core.BudgetPeriod, error)
	ListPeriods(ctx context.Context) ([]core.BudgetPeriod, error)
	UpdatePeriod(ctx context.Context, p core.BudgetPeriod) error
	DeletePeriod(ctx context.Context, id int64) error

	// Allocations.
	CreateAllocation(ctx context.Context, a core.Allocation) (int64, error)
	GetAllocationFor(ctx context.Context, periodID, categoryID int64) (core.Allocation, error)
	UpdateAllocation(ctx context.Context, a core.Allocation) error
	ListAllocationsByPeriod(ctx context.Context, periodID int64) ([]core.Allocation, error)
	ListAllocations(ctx context.Context) ([]core.Allocation, error)
	DeleteAllocationsByPeriod(ctx context.Context, periodID int64) error

	// Budget links (transaction -> at most one period).
	CreateLink(ctx context.Context, l core.BudgetLink) error
	GetLinkByTransaction(ctx context.Context, transactionID int64) (core.BudgetLink, error)
	DeleteLinkByTransaction(ctx context.Context, transactionID int64) error
	ListLinksByPeriod(ctx context.Context, periodID int64) ([]core.BudgetLink, error)
	ListLinks(ctx context.Context) ([]core.BudgetLink, error)

	// RunInTransaction executes fn against a store view whose writes either
	// all commit or all roll back. Nested calls join the enclosing unit.
	RunInTransaction(ctx context.Context, fn func(Store) error) error

	Close() error
}
