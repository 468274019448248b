// Package sqlite implements the storage boundary on an embedded SQLite
// database with schema migrations applied at startup.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"

	_ "modernc.org/sqlite"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same query methods serve both plain calls and transactional units.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
	q  DBTX
}

var _ storage.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath)
	return &Repository{db: db, q: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// wrap maps driver errors onto the core error kinds: a missing row becomes
// core.ErrNotFound, everything else core.ErrStorage.
func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, core.ErrStorage, err)
}

// RunInTransaction runs fn against a repository view bound to one SQLite
// transaction. A nested call joins the enclosing transaction.
func (r *Repository) RunInTransaction(ctx context.Context, fn func(storage.Store) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin transaction", err)
	}
	txRepo := &Repository{db: r.db, q: tx}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}

// Accounts.

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (name, owner, kind, starting_balance_cents, current_balance_cents, active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, a.Owner, string(a.Kind), a.StartingBalance.Cents, a.CurrentBalance.Cents, boolToInt(a.Active))
	if err != nil {
		return 0, wrap("create account", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("create account id", err)
	}
	return id, nil
}

const accountCols = `id, name, owner, kind, starting_balance_cents, current_balance_cents, active`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var kind string
	var active int
	err := row.Scan(&a.ID, &a.Name, &a.Owner, &kind, &a.StartingBalance.Cents, &a.CurrentBalance.Cents, &active)
	if err != nil {
		return core.Account{}, err
	}
	a.Kind = core.AccountKind(kind)
	a.Active = active != 0
	return a, nil
}

func (r *Repository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(r.q.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return core.Account{}, wrap("get account", err)
	}
	return a, nil
}

func (r *Repository) GetAccountByName(ctx context.Context, name string) (core.Account, error) {
	a, err := scanAccount(r.q.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE name = ?`, name))
	if err != nil {
		return core.Account{}, wrap("get account by name", err)
	}
	return a, nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, wrap("list accounts", err)
	}
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, wrap("scan account", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list accounts", err)
	}
	return out, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, owner = ?, kind = ?, starting_balance_cents = ?, current_balance_cents = ?, active = ?
		WHERE id = ?`,
		a.Name, a.Owner, string(a.Kind), a.StartingBalance.Cents, a.CurrentBalance.Cents, boolToInt(a.Active), a.ID)
	if err != nil {
		return wrap("update account", err)
	}
	return requireRow(res, "update account")
}

// Categories.

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (name, type, active) VALUES (?, ?, ?)`,
		c.Name, string(c.Type), boolToInt(c.Active))
	if err != nil {
		return 0, wrap("create category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("create category id", err)
	}
	return id, nil
}

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var typ string
	var active int
	if err := row.Scan(&c.ID, &c.Name, &typ, &active); err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(typ)
	c.Active = active != 0
	return c, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.q.QueryRowContext(ctx, `SELECT id, name, type, active FROM categories WHERE id = ?`, id))
	if err != nil {
		return core.Category{}, wrap("get category", err)
	}
	return c, nil
}

func (r *Repository) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	c, err := scanCategory(r.q.QueryRowContext(ctx, `SELECT id, name, type, active FROM categories WHERE name = ?`, name))
	if err != nil {
		return core.Category{}, wrap("get category by name", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, type, active FROM categories ORDER BY id`)
	if err != nil {
		return nil, wrap("list categories", err)
	}
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrap("scan category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list categories", err)
	}
	return out, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, type = ?, active = ? WHERE id = ?`,
		c.Name, string(c.Type), boolToInt(c.Active), c.ID)
	if err != nil {
		return wrap("update category", err)
	}
	return requireRow(res, "update category")
}

// Transactions.

const transactionCols = `id, account_id, category_id, amount_cents, date, description, balance_cents, projected, status, transfer`

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (account_id, category_id, amount_cents, date, description, balance_cents, projected, status, transfer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableID(t.AccountID), t.CategoryID, t.Amount.Cents, t.Date.ISO(), t.Description,
		t.Balance.Cents, boolToInt(t.Projected), string(t.Status), boolToInt(t.Transfer))
	if err != nil {
		return 0, wrap("create transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("create transaction id", err)
	}
	return id, nil
}

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var accountID sql.NullInt64
	var date, status string
	var projected, transfer int
	err := row.Scan(&t.ID, &accountID, &t.CategoryID, &t.Amount.Cents, &date, &t.Description,
		&t.Balance.Cents, &projected, &status, &transfer)
	if err != nil {
		return core.Transaction{}, err
	}
	if accountID.Valid {
		t.AccountID = accountID.Int64
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	t.Date = d
	t.Projected = projected != 0
	t.Status = core.ProjectionStatus(status)
	t.Transfer = transfer != 0
	return t, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRowContext(ctx, `SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, wrap("get transaction", err)
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, amount_cents = ?, date = ?, description = ?,
		    balance_cents = ?, projected = ?, status = ?, transfer = ?
		WHERE id = ?`,
		nullableID(t.AccountID), t.CategoryID, t.Amount.Cents, t.Date.ISO(), t.Description,
		t.Balance.Cents, boolToInt(t.Projected), string(t.Status), boolToInt(t.Transfer), t.ID)
	if err != nil {
		return wrap("update transaction", err)
	}
	return requireRow(res, "update transaction")
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return wrap("delete transaction", err)
	}
	return requireRow(res, "delete transaction")
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list transactions", err)
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, wrap("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list transactions", err)
	}
	return out, nil
}

func (r *Repository) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE account_id = ? ORDER BY date, id`, accountID)
}

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx, `SELECT `+transactionCols+` FROM transactions ORDER BY date, id`)
}

// Budget periods.

func (r *Repository) CreatePeriod(ctx context.Context, p core.BudgetPeriod) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO budget_periods (name, start_date, end_date) VALUES (?, ?, ?)`,
		p.Name, p.StartDate.ISO(), nullableDate(p.EndDate))
	if err != nil {
		return 0, wrap("create period", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("create period id", err)
	}
	return id, nil
}

func scanPeriod(row interface{ Scan(...any) error }) (core.BudgetPeriod, error) {
	var p core.BudgetPeriod
	var start string
	var end sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &start, &end); err != nil {
		return core.BudgetPeriod{}, err
	}
	d, err := core.ParseDate(start)
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("stored start date %q: %w", start, err)
	}
	p.StartDate = d
	if end.Valid {
		e, err := core.ParseDate(end.String)
		if err != nil {
			return core.BudgetPeriod{}, fmt.Errorf("stored end date %q: %w", end.String, err)
		}
		p.EndDate = e
	}
	return p, nil
}

func (r *Repository) GetPeriod(ctx context.Context, id int64) (core.BudgetPeriod, error) {
	p, err := scanPeriod(r.q.QueryRowContext(ctx,
		`SELECT id, name, start_date, end_date FROM budget_periods WHERE id = ?`, id))
	if err != nil {
		return core.BudgetPeriod{}, wrap("get period", err)
	}
	return p, nil
}

func (r *Repository) ListPeriods(ctx context.Context) ([]core.BudgetPeriod, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, start_date, end_date FROM budget_periods ORDER BY start_date`)
	if err != nil {
		return nil, wrap("list periods", err)
	}
	defer rows.Close()
	var out []core.BudgetPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, wrap("scan period", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list periods", err)
	}
	return out, nil
}

func (r *Repository) UpdatePeriod(ctx context.Context, p core.BudgetPeriod) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budget_periods SET name = ?, start_date = ?, end_date = ? WHERE id = ?`,
		p.Name, p.StartDate.ISO(), nullableDate(p.EndDate), p.ID)
	if err != nil {
		return wrap("update period", err)
	}
	return requireRow(res, "update period")
}

func (r *Repository) DeletePeriod(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM budget_periods WHERE id = ?`, id)
	if err != nil {
		return wrap("delete period", err)
	}
	return requireRow(res, "delete period")
}

// Allocations.

func (r *Repository) CreateAllocation(ctx context.Context, a core.Allocation) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO allocations (period_id, category_id, amount_cents, description) VALUES (?, ?, ?, ?)`,
		a.PeriodID, a.CategoryID, a.Amount.Cents, a.Description)
	if err != nil {
		return 0, wrap("create allocation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrap("create allocation id", err)
	}
	return id, nil
}

func scanAllocation(row interface{ Scan(...any) error }) (core.Allocation, error) {
	var a core.Allocation
	if err := row.Scan(&a.ID, &a.PeriodID, &a.CategoryID, &a.Amount.Cents, &a.Description); err != nil {
		return core.Allocation{}, err
	}
	return a, nil
}

func (r *Repository) GetAllocationFor(ctx context.Context, periodID, categoryID int64) (core.Allocation, error) {
	a, err := scanAllocation(r.q.QueryRowContext(ctx, `
		SELECT id, period_id, category_id, amount_cents, description
		FROM allocations WHERE period_id = ? AND category_id = ?
		ORDER BY id LIMIT 1`, periodID, categoryID))
	if err != nil {
		return core.Allocation{}, wrap("get allocation", err)
	}
	return a, nil
}

func (r *Repository) UpdateAllocation(ctx context.Context, a core.Allocation) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE allocations SET period_id = ?, category_id = ?, amount_cents = ?, description = ? WHERE id = ?`,
		a.PeriodID, a.CategoryID, a.Amount.Cents, a.Description, a.ID)
	if err != nil {
		return wrap("update allocation", err)
	}
	return requireRow(res, "update allocation")
}

func (r *Repository) queryAllocations(ctx context.Context, query string, args ...any) ([]core.Allocation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list allocations", err)
	}
	defer rows.Close()
	var out []core.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, wrap("scan allocation", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list allocations", err)
	}
	return out, nil
}

func (r *Repository) ListAllocationsByPeriod(ctx context.Context, periodID int64) ([]core.Allocation, error) {
	return r.queryAllocations(ctx, `
		SELECT id, period_id, category_id, amount_cents, description
		FROM allocations WHERE period_id = ? ORDER BY id`, periodID)
}

func (r *Repository) ListAllocations(ctx context.Context) ([]core.Allocation, error) {
	return r.queryAllocations(ctx, `
		SELECT id, period_id, category_id, amount_cents, description
		FROM allocations ORDER BY id`)
}

func (r *Repository) DeleteAllocationsByPeriod(ctx context.Context, periodID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM allocations WHERE period_id = ?`, periodID)
	if err != nil {
		return wrap("delete allocations", err)
	}
	return nil
}

// Budget links.

func (r *Repository) CreateLink(ctx context.Context, l core.BudgetLink) error {
	// Primary key on transaction_id enforces the at-most-one-period rule.
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO budget_links (transaction_id, period_id) VALUES (?, ?)
		ON CONFLICT (transaction_id) DO UPDATE SET period_id = excluded.period_id`,
		l.TransactionID, l.PeriodID)
	if err != nil {
		return wrap("create link", err)
	}
	return nil
}

func (r *Repository) GetLinkByTransaction(ctx context.Context, transactionID int64) (core.BudgetLink, error) {
	var l core.BudgetLink
	err := r.q.QueryRowContext(ctx,
		`SELECT transaction_id, period_id FROM budget_links WHERE transaction_id = ?`, transactionID).
		Scan(&l.TransactionID, &l.PeriodID)
	if err != nil {
		return core.BudgetLink{}, wrap("get link", err)
	}
	return l, nil
}

func (r *Repository) DeleteLinkByTransaction(ctx context.Context, transactionID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM budget_links WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return wrap("delete link", err)
	}
	return nil
}

func (r *Repository) queryLinks(ctx context.Context, query string, args ...any) ([]core.BudgetLink, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("list links", err)
	}
	defer rows.Close()
	var out []core.BudgetLink
	for rows.Next() {
		var l core.BudgetLink
		if err := rows.Scan(&l.TransactionID, &l.PeriodID); err != nil {
			return nil, wrap("scan link", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list links", err)
	}
	return out, nil
}

func (r *Repository) ListLinksByPeriod(ctx context.Context, periodID int64) ([]core.BudgetLink, error) {
	return r.queryLinks(ctx,
		`SELECT transaction_id, period_id FROM budget_links WHERE period_id = ? ORDER BY transaction_id`, periodID)
}

func (r *Repository) ListLinks(ctx context.Context) ([]core.BudgetLink, error) {
	return r.queryLinks(ctx,
		`SELECT transaction_id, period_id FROM budget_links ORDER BY transaction_id`)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullableDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.ISO(), Valid: true}
}

func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
