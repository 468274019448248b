package http

import (
	"budgetbee/internal/core"
	"budgetbee/internal/services"
)

// Wire representations. Amounts travel as integer cents, dates as
// YYYY-MM-DD strings.

type accountPayload struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Owner                string `json:"owner"`
	Kind                 string `json:"kind"`
	StartingBalanceCents int64  `json:"starting_balance_cents"`
	CurrentBalanceCents  int64  `json:"current_balance_cents"`
	Active               bool   `json:"active"`
}

func toAccountPayload(a core.Account) accountPayload {
	return accountPayload{
		ID:                   a.ID,
		Name:                 a.Name,
		Owner:                a.Owner,
		Kind:                 string(a.Kind),
		StartingBalanceCents: a.StartingBalance.Cents,
		CurrentBalanceCents:  a.CurrentBalance.Cents,
		Active:               a.Active,
	}
}

type categoryPayload struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func toCategoryPayload(c core.Category) categoryPayload {
	return categoryPayload{ID: c.ID, Name: c.Name, Type: string(c.Type), Active: c.Active}
}

type transactionPayload struct {
	ID           int64  `json:"id"`
	AccountID    int64  `json:"account_id,omitempty"`
	CategoryID   int64  `json:"category_id"`
	AmountCents  int64  `json:"amount_cents"`
	Date         string `json:"date"`
	Description  string `json:"description,omitempty"`
	BalanceCents int64  `json:"balance_cents"`
	Projected    bool   `json:"projected"`
	Status       string `json:"status,omitempty"`
	Transfer     bool   `json:"transfer,omitempty"`
}

func toTransactionPayload(t core.Transaction) transactionPayload {
	p := transactionPayload{
		ID:           t.ID,
		AccountID:    t.AccountID,
		CategoryID:   t.CategoryID,
		AmountCents:  t.Amount.Cents,
		Date:         t.Date.ISO(),
		Description:  t.Description,
		BalanceCents: t.Balance.Cents,
		Projected:    t.Projected,
		Transfer:     t.Transfer,
	}
	if t.Projected {
		p.Status = string(t.Status)
	}
	return p
}

func toTransactionPayloads(ts []core.Transaction) []transactionPayload {
	out := make([]transactionPayload, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTransactionPayload(t))
	}
	return out
}

type periodPayload struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
}

func toPeriodPayload(p core.BudgetPeriod) periodPayload {
	out := periodPayload{ID: p.ID, Name: p.Name, StartDate: p.StartDate.ISO()}
	if !p.Open() {
		out.EndDate = p.EndDate.ISO()
	}
	return out
}

type allocationPayload struct {
	ID          int64  `json:"id"`
	PeriodID    int64  `json:"period_id"`
	CategoryID  int64  `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description,omitempty"`
}

func toAllocationPayload(a core.Allocation) allocationPayload {
	return allocationPayload{
		ID:          a.ID,
		PeriodID:    a.PeriodID,
		CategoryID:  a.CategoryID,
		AmountCents: a.Amount.Cents,
		Description: a.Description,
	}
}

func toAllocationPayloads(as []core.Allocation) []allocationPayload {
	out := make([]allocationPayload, 0, len(as))
	for _, a := range as {
		out = append(out, toAllocationPayload(a))
	}
	return out
}

type summaryPayload struct {
	PeriodID       int64 `json:"period_id"`
	AllocatedCents int64 `json:"allocated_cents"`
	SpentCents     int64 `json:"spent_cents"`
	ProjectedCents int64 `json:"projected_cents"`
	RemainingCents int64 `json:"remaining_cents"`
}

func toSummaryPayload(s core.PeriodSummary) summaryPayload {
	return summaryPayload{
		PeriodID:       s.PeriodID,
		AllocatedCents: s.Allocated.Cents,
		SpentCents:     s.Spent.Cents,
		ProjectedCents: s.Projected.Cents,
		RemainingCents: s.Remaining.Cents,
	}
}

type seriesPointPayload struct {
	Date        string `json:"date"`
	SpentCents  int64  `json:"spent_cents"`
	BudgetCents int64  `json:"budget_cents"`
}

func toSeriesPayload(points []core.SeriesPoint) []seriesPointPayload {
	out := make([]seriesPointPayload, 0, len(points))
	for _, p := range points {
		out = append(out, seriesPointPayload{
			Date:        p.Date.ISO(),
			SpentCents:  p.Spent.Cents,
			BudgetCents: p.Budget.Cents,
		})
	}
	return out
}

// Request bodies.

type createAccountRequest struct {
	Name                 string `json:"name"`
	Owner                string `json:"owner"`
	Kind                 string `json:"kind"`
	StartingBalanceCents int64  `json:"starting_balance_cents"`
}

type adjustBalanceRequest struct {
	ActualCents int64  `json:"actual_cents"`
	Date        string `json:"date"`
	Note        string `json:"note"`
}

type closeAccountRequest struct {
	Date string `json:"date"`
}

type createCategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type transactionRequest struct {
	AccountID   int64  `json:"account_id"`
	CategoryID  int64  `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Projected   bool   `json:"projected"`
	Transfer    bool   `json:"transfer"`
}

type createPeriodRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
}

type allocateRequest struct {
	IncomeCents int64 `json:"income_cents"`
	Choices     []struct {
		CategoryID  int64  `json:"category_id"`
		AmountCents int64  `json:"amount_cents"`
		Description string `json:"description"`
	} `json:"choices"`
}

func (r allocateRequest) toChoices() []services.AllocationChoice {
	out := make([]services.AllocationChoice, 0, len(r.Choices))
	for _, c := range r.Choices {
		out = append(out, services.AllocationChoice{
			CategoryID:  c.CategoryID,
			Amount:      core.Money{Cents: c.AmountCents},
			Description: c.Description,
		})
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}
