package core

import "errors"

// Error kinds surfaced across the package boundary. Services wrap these with
// fmt.Errorf("...: %w", err) so callers can branch with errors.Is.
var (
	// ErrNotFound reports a missing account, category, period, transaction
	// or allocation.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCategoryType reports an amount whose sign contradicts its
	// category's type, or budgeting against a non-expense category.
	ErrInvalidCategoryType = errors.New("invalid category type")

	// ErrDuplicateStartDate reports a second budget period sharing a start
	// date with an existing one.
	ErrDuplicateStartDate = errors.New("duplicate period start date")

	// ErrOverAllocation reports an allocation request exceeding the income
	// still unassigned for this event.
	ErrOverAllocation = errors.New("allocation exceeds remaining income")

	// ErrStorage wraps backing-store failures.
	ErrStorage = errors.New("storage error")
)

// Validation errors.
var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidAccountKind = errors.New("invalid account kind")
	ErrInvalidStatus      = errors.New("invalid projection status")
	ErrEmptyName          = errors.New("empty name")
	ErrDuplicateName      = errors.New("name already in use")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrEmptyCategory      = errors.New("empty category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrReservedCategory   = errors.New("reserved category name")
	ErrAccountClosed      = errors.New("account is closed")
	ErrProjectionSettled  = errors.New("projection already completed or skipped")
)
