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

// Ledger owns accounts and transactions. Balances are never adjusted
// incrementally: every mutation replays the affected account's full
// transaction history from its starting balance, so the cached figures are
// always reproducible from the rows alone.
type Ledger struct {
	store storage.Store
}

func NewLedger(store storage.Store) *Ledger {
	return &Ledger{store: store}
}

// OpenAccount registers a new account. The current balance starts equal to
// the starting balance; replay maintains it from then on.
func (l *Ledger) OpenAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.Owner = strings.TrimSpace(a.Owner)
	a.Active = true
	a.CurrentBalance = a.StartingBalance
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	err := l.store.RunInTransaction(ctx, func(s storage.Store) error {
		_, err := s.GetAccountByName(ctx, a.Name)
		if err == nil {
			return fmt.Errorf("open account %q: %w", a.Name, core.ErrDuplicateName)
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}
		id, err := s.CreateAccount(ctx, a)
		if err != nil {
			return err
		}
		a.ID = id
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account opened",
		"id", a.ID, "name", a.Name, "kind", string(a.Kind),
		"starting_balance", a.StartingBalance.String())
	return a, nil
}

func (l *Ledger) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return l.store.GetAccount(ctx, id)
}

func (l *Ledger) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return l.store.ListAccounts(ctx)
}

// CloseAccount soft-deletes an account. If the account still carries a
// balance, a System transaction bringing it to zero is written first, so
// the ledger records where the money went.
func (l *Ledger) CloseAccount(ctx context.Context, id int64, date core.Date) error {
	if err := date.Validate(); err != nil {
		return err
	}
	return l.store.RunInTransaction(ctx, func(s storage.Store) error {
		a, err := s.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if !a.Active {
			return fmt.Errorf("close account %q: %w", a.Name, core.ErrAccountClosed)
		}
		if err := recalculateAccount(ctx, s, id); err != nil {
			return err
		}
		a, err = s.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if !a.CurrentBalance.IsZero() {
			sys, err := s.GetCategoryByName(ctx, core.SystemName)
			if err != nil {
				return err
			}
			closing := core.Transaction{
				AccountID:   id,
				CategoryID:  sys.ID,
				Amount:      a.CurrentBalance.Neg(),
				Date:        date,
				Description: "Closing balance",
			}
			if _, err := recordIn(ctx, s, closing); err != nil {
				return err
			}
			a, err = s.GetAccount(ctx, id)
			if err != nil {
				return err
			}
		}
		a.Active = false
		if err := s.UpdateAccount(ctx, a); err != nil {
			return err
		}
		slog.InfoContext(ctx, "Account closed", "id", id, "name", a.Name)
		return nil
	})
}

// Record validates and stores a transaction, replays the account balance and
// links the transaction to the budget period covering its date, all in one
// unit. The returned transaction carries its assigned ID and balance
// snapshot.
func (l *Ledger) Record(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	err := l.store.RunInTransaction(ctx, func(s storage.Store) error {
		var err error
		out, err = recordIn(ctx, s, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction recorded",
		"id", out.ID, "account_id", out.AccountID, "category_id", out.CategoryID,
		"amount", out.Amount.String(), "date", out.Date.ISO(), "projected", out.Projected)
	return out, nil
}

// recordIn is the transactional body of Record, shared with the projection
// processor so completing a projection creates the real transaction inside
// the caller's unit.
func recordIn(ctx context.Context, s storage.Store, t core.Transaction) (core.Transaction, error) {
	if t.Projected && t.Status == "" {
		t.Status = core.StatusPending
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	cat, err := s.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return core.Transaction{}, err
	}
	// Projected entries are estimates; the sign rule binds only realized rows.
	if !t.Projected {
		switch cat.Type {
		case core.Income:
			if t.Amount.Cents <= 0 {
				return core.Transaction{}, fmt.Errorf("income amount must be positive: %w", core.ErrInvalidCategoryType)
			}
		case core.Expense:
			if t.Amount.Cents >= 0 {
				return core.Transaction{}, fmt.Errorf("expense amount must be negative: %w", core.ErrInvalidCategoryType)
			}
		}
	}

	if t.AccountID != 0 {
		a, err := s.GetAccount(ctx, t.AccountID)
		if err != nil {
			return core.Transaction{}, err
		}
		if !a.Active {
			return core.Transaction{}, fmt.Errorf("account %q: %w", a.Name, core.ErrAccountClosed)
		}
	}

	id, err := s.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id

	if t.AccountID != 0 {
		if err := recalculateAccount(ctx, s, t.AccountID); err != nil {
			return core.Transaction{}, err
		}
	}
	if _, _, err := linkTransaction(ctx, s, t); err != nil {
		return core.Transaction{}, err
	}
	return s.GetTransaction(ctx, id)
}

func (l *Ledger) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return l.store.GetTransaction(ctx, id)
}

func (l *Ledger) List(ctx context.Context) ([]core.Transaction, error) {
	return l.store.ListTransactions(ctx)
}

func (l *Ledger) ListByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return l.store.ListTransactionsByAccount(ctx, accountID)
}

// Update rewrites a transaction and replays every account it touched, before
// and after the edit. The budget link is redone against the new date.
func (l *Ledger) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Projected && t.Status == "" {
		t.Status = core.StatusPending
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var out core.Transaction
	err := l.store.RunInTransaction(ctx, func(s storage.Store) error {
		old, err := s.GetTransaction(ctx, t.ID)
		if err != nil {
			return err
		}
		cat, err := s.GetCategory(ctx, t.CategoryID)
		if err != nil {
			return err
		}
		if !t.Projected {
			switch cat.Type {
			case core.Income:
				if t.Amount.Cents <= 0 {
					return fmt.Errorf("income amount must be positive: %w", core.ErrInvalidCategoryType)
				}
			case core.Expense:
				if t.Amount.Cents >= 0 {
					return fmt.Errorf("expense amount must be negative: %w", core.ErrInvalidCategoryType)
				}
			}
		}
		if err := s.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		if old.AccountID != 0 {
			if err := recalculateAccount(ctx, s, old.AccountID); err != nil {
				return err
			}
		}
		if t.AccountID != 0 && t.AccountID != old.AccountID {
			if err := recalculateAccount(ctx, s, t.AccountID); err != nil {
				return err
			}
		}
		if _, _, err := linkTransaction(ctx, s, t); err != nil {
			return err
		}
		out, err = s.GetTransaction(ctx, t.ID)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return out, nil
}

// Delete removes a transaction along with its budget link and replays the
// account it belonged to.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	return l.store.RunInTransaction(ctx, func(s storage.Store) error {
		t, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := s.DeleteLinkByTransaction(ctx, id); err != nil {
			return err
		}
		if err := s.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		if t.AccountID != 0 {
			return recalculateAccount(ctx, s, t.AccountID)
		}
		return nil
	})
}

// RecalculateBalances replays one account from scratch.
func (l *Ledger) RecalculateBalances(ctx context.Context, accountID int64) error {
	return l.store.RunInTransaction(ctx, func(s storage.Store) error {
		return recalculateAccount(ctx, s, accountID)
	})
}

// AdjustBalance records a System transaction carrying the difference between
// the stated real-world balance and the replayed one, then replays again.
// Returns the correction transaction.
func (l *Ledger) AdjustBalance(ctx context.Context, accountID int64, actual core.Money, date core.Date, note string) (core.Transaction, error) {
	if err := date.Validate(); err != nil {
		return core.Transaction{}, err
	}
	var out core.Transaction
	err := l.store.RunInTransaction(ctx, func(s storage.Store) error {
		if err := recalculateAccount(ctx, s, accountID); err != nil {
			return err
		}
		a, err := s.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		delta := actual.Sub(a.CurrentBalance)
		if delta.IsZero() {
			return fmt.Errorf("balance already matches: %w", core.ErrInvalidAmount)
		}
		sys, err := s.GetCategoryByName(ctx, core.SystemName)
		if err != nil {
			return err
		}
		if note == "" {
			note = "Balance adjustment"
		}
		out, err = recordIn(ctx, s, core.Transaction{
			AccountID:   accountID,
			CategoryID:  sys.ID,
			Amount:      delta,
			Date:        date,
			Description: note,
		})
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Balance adjusted",
		"account_id", accountID, "delta", out.Amount.String(), "actual", actual.String())
	return out, nil
}

// recalculateAccount replays the account's transactions in (date, id) order
// from the starting balance, rewriting each row's balance snapshot and the
// account's cached current balance. Projected rows never move the running
// balance; their snapshot records the balance at their slot.
func recalculateAccount(ctx context.Context, s storage.Store, accountID int64) error {
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	txns, err := s.ListTransactionsByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	running := a.StartingBalance
	for _, t := range txns {
		if !t.Projected {
			running = running.Add(t.Amount)
		}
		if t.Balance != running {
			t.Balance = running
			if err := s.UpdateTransaction(ctx, t); err != nil {
				return err
			}
		}
	}
	if a.CurrentBalance != running {
		a.CurrentBalance = running
		if err := s.UpdateAccount(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
