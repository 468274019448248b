// Package memory provides an in-process Store used as the default backend
// and as the fixture for service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"
)

type Store struct {
	mu sync.Mutex

	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	periods      map[int64]core.BudgetPeriod
	allocations  map[int64]core.Allocation
	links        map[int64]core.BudgetLink // keyed by transaction ID

	nextID int64
	inTx   bool
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:     make(map[int64]core.Account),
		categories:   make(map[int64]core.Category),
		transactions: make(map[int64]core.Transaction),
		periods:      make(map[int64]core.BudgetPeriod),
		allocations:  make(map[int64]core.Allocation),
		links:        make(map[int64]core.BudgetLink),
	}
}

func (s *Store) next() int64 {
	s.nextID++
	return s.nextID
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
}

// Accounts.

func (s *Store) CreateAccount(_ context.Context, a core.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.next()
	s.accounts[a.ID] = a
	return a.ID, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, notFound("account", id)
	}
	return a, nil
}

func (s *Store) GetAccountByName(_ context.Context, name string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return core.Account{}, fmt.Errorf("account %q: %w", name, core.ErrNotFound)
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return notFound("account", a.ID)
	}
	s.accounts[a.ID] = a
	return nil
}

// Categories.

func (s *Store) CreateCategory(_ context.Context, c core.Category) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.next()
	s.categories[c.ID] = c
	return c.ID, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, notFound("category", id)
	}
	return c, nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return notFound("category", c.ID)
	}
	s.categories[c.ID] = c
	return nil
}

// Transactions.

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.next()
	s.transactions[t.ID] = t
	return t.ID, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, notFound("transaction", id)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[t.ID]; !ok {
		return notFound("transaction", t.ID)
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return notFound("transaction", id)
	}
	delete(s.transactions, id)
	delete(s.links, id)
	return nil
}

func sortLedger(ts []core.Transaction) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].Date.Equal(ts[j].Date.Time) {
			return ts[i].Date.Before(ts[j].Date.Time)
		}
		return ts[i].ID < ts[j].ID
	})
}

func (s *Store) ListTransactionsByAccount(_ context.Context, accountID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sortLedger(out)
	return out, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, t)
	}
	sortLedger(out)
	return out, nil
}

// Budget periods.

func (s *Store) CreatePeriod(_ context.Context, p core.BudgetPeriod) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.next()
	s.periods[p.ID] = p
	return p.ID, nil
}

func (s *Store) GetPeriod(_ context.Context, id int64) (core.BudgetPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[id]
	if !ok {
		return core.BudgetPeriod{}, notFound("period", id)
	}
	return p, nil
}

func (s *Store) ListPeriods(_ context.Context) ([]core.BudgetPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BudgetPeriod, 0, len(s.periods))
	for _, p := range s.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate.Time) })
	return out, nil
}

func (s *Store) UpdatePeriod(_ context.Context, p core.BudgetPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periods[p.ID]; !ok {
		return notFound("period", p.ID)
	}
	s.periods[p.ID] = p
	return nil
}

func (s *Store) DeletePeriod(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periods[id]; !ok {
		return notFound("period", id)
	}
	delete(s.periods, id)
	return nil
}

// Allocations.

func (s *Store) CreateAllocation(_ context.Context, a core.Allocation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.next()
	s.allocations[a.ID] = a
	return a.ID, nil
}

func (s *Store) GetAllocationFor(_ context.Context, periodID, categoryID int64) (core.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.allocations {
		if a.PeriodID == periodID && a.CategoryID == categoryID {
			return a, nil
		}
	}
	return core.Allocation{}, fmt.Errorf("allocation for period %d category %d: %w", periodID, categoryID, core.ErrNotFound)
}

func (s *Store) UpdateAllocation(_ context.Context, a core.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allocations[a.ID]; !ok {
		return notFound("allocation", a.ID)
	}
	s.allocations[a.ID] = a
	return nil
}

func (s *Store) ListAllocationsByPeriod(_ context.Context, periodID int64) ([]core.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Allocation
	for _, a := range s.allocations {
		if a.PeriodID == periodID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteAllocationsByPeriod(_ context.Context, periodID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.allocations {
		if a.PeriodID == periodID {
			delete(s.allocations, id)
		}
	}
	return nil
}

func (s *Store) ListAllocations(_ context.Context) ([]core.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Allocation, 0, len(s.allocations))
	for _, a := range s.allocations {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Budget links.

func (s *Store) CreateLink(_ context.Context, l core.BudgetLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[l.TransactionID] = l
	return nil
}

func (s *Store) GetLinkByTransaction(_ context.Context, transactionID int64) (core.BudgetLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[transactionID]
	if !ok {
		return core.BudgetLink{}, notFound("budget link for transaction", transactionID)
	}
	return l, nil
}

func (s *Store) DeleteLinkByTransaction(_ context.Context, transactionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, transactionID)
	return nil
}

func (s *Store) ListLinksByPeriod(_ context.Context, periodID int64) ([]core.BudgetLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetLink
	for _, l := range s.links {
		if l.PeriodID == periodID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

func (s *Store) ListLinks(_ context.Context) ([]core.BudgetLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BudgetLink, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}

// RunInTransaction snapshots the maps and restores them if fn fails, so a
// half-applied multi-step unit never becomes visible. Nested calls join the
// outer unit; only the outermost failure rolls back.
func (s *Store) RunInTransaction(_ context.Context, fn func(storage.Store) error) error {
	s.mu.Lock()
	if s.inTx {
		s.mu.Unlock()
		return fn(s)
	}
	s.inTx = true
	snap := s.snapshot()
	s.mu.Unlock()

	err := fn(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inTx = false
	if err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

type snapshot struct {
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	periods      map[int64]core.BudgetPeriod
	allocations  map[int64]core.Allocation
	links        map[int64]core.BudgetLink
	nextID       int64
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		accounts:     copyMap(s.accounts),
		categories:   copyMap(s.categories),
		transactions: copyMap(s.transactions),
		periods:      copyMap(s.periods),
		allocations:  copyMap(s.allocations),
		links:        copyMap(s.links),
		nextID:       s.nextID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.categories = snap.categories
	s.transactions = snap.transactions
	s.periods = snap.periods
	s.allocations = snap.allocations
	s.links = snap.links
	s.nextID = snap.nextID
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
