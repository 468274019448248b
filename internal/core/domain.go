package core

import (
	"strings"
	"time"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
	// SystemType tags balance corrections and account lifecycle entries.
	// System transactions never show up in budgets or summaries.
	SystemType CategoryType = "system"
)

const (
	Checking AccountKind = "checking"
	Savings  AccountKind = "savings"
	Benefits AccountKind = "benefits"
)

const (
	StatusPending   ProjectionStatus = "pending"
	StatusCompleted ProjectionStatus = "completed"
	StatusSkipped   ProjectionStatus = "skipped"
)

// Reserved category names. Call sites should go through Category.IsUnallocated
// and Category.IsSystem instead of comparing these directly.
const (
	UnallocatedName = "Unallocated"
	SystemName      = "System"
)

type (
	CategoryType     string
	AccountKind      string
	ProjectionStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID     int64
		Name   string // unique
		Type   CategoryType
		Active bool
	}

	Account struct {
		ID              int64
		Name            string // unique
		Owner           string
		Kind            AccountKind
		StartingBalance Money
		CurrentBalance  Money // derived by ledger replay, cached
		Active          bool
	}

	Transaction struct {
		ID          int64
		AccountID   int64 // 0 means unattached (projected entries may float)
		CategoryID  int64
		Amount      Money // signed cents: income > 0, expense < 0, system as stored
		Date        Date
		Description string
		Balance     Money // running balance snapshot written by the last replay
		Projected   bool
		Status      ProjectionStatus // meaningful only when Projected
		Transfer    bool             // excluded from budget spend totals
	}

	BudgetPeriod struct {
		ID        int64
		Name      string
		StartDate Date // unique across periods
		EndDate   Date // zero means open-ended (the current period)
	}

	Allocation struct {
		ID          int64
		PeriodID    int64
		CategoryID  int64
		Amount      Money
		Description string
	}

	BudgetLink struct {
		PeriodID      int64
		TransactionID int64
	}
)

// UnallocatedCategory returns the reserved expense category that absorbs
// income not explicitly assigned to any budget.
func UnallocatedCategory() Category {
	return Category{Name: UnallocatedName, Type: Expense, Active: true}
}

// SystemCategory returns the reserved category for lifecycle and
// balance-correction transactions.
func SystemCategory() Category {
	return Category{Name: SystemName, Type: SystemType, Active: true}
}

func (c Category) IsUnallocated() bool {
	return c.Type == Expense && c.Name == UnallocatedName
}

func (c Category) IsSystem() bool {
	return c.Type == SystemType
}

// IsReserved reports whether the category is one of the two built-ins the
// registry refuses to create, rename or deactivate on user request.
func (c Category) IsReserved() bool {
	return c.IsUnallocated() || c.IsSystem()
}

func (t CategoryType) IsValid() bool {
	switch t {
	case Income, Expense, SystemType:
		return true
	}
	return false
}

func (k AccountKind) IsValid() bool {
	switch k {
	case Checking, Savings, Benefits:
		return true
	}
	return false
}

func (s ProjectionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether the projection status admits no further
// transition. Pending is the only non-terminal state.
func (s ProjectionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// NewDate creates a day-precision UTC date.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to day precision in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// ISO renders the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Time.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.IsValid() {
		return ErrInvalidCategoryType
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(a.Owner) == "" {
		return ErrEmptyOwner
	}
	if !a.Kind.IsValid() {
		return ErrInvalidAccountKind
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if t.CategoryID == 0 {
		return ErrEmptyCategory
	}
	if t.Projected && !t.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func (p BudgetPeriod) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return p.StartDate.Validate()
}

// Open reports whether the period has no end date yet.
func (p BudgetPeriod) Open() bool {
	return p.EndDate.IsZero()
}

// Contains reports whether date falls inside [StartDate, EndDate], where a
// zero EndDate means the period extends indefinitely.
func (p BudgetPeriod) Contains(d Date) bool {
	if d.Before(p.StartDate.Time) {
		return false
	}
	return p.Open() || !d.After(p.EndDate.Time)
}

func (a Allocation) Validate() error {
	if a.PeriodID == 0 || a.CategoryID == 0 {
		return ErrEmptyCategory
	}
	if a.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
