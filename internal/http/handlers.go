package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetbee/internal/amqp"
	"budgetbee/internal/core"
)

// Accounts.

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]accountPayload, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountPayload(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := s.ledger.OpenAccount(r.Context(), core.Account{
		Name:            req.Name,
		Owner:           req.Owner,
		Kind:            core.AccountKind(req.Kind),
		StartingBalance: core.Money{Cents: req.StartingBalanceCents},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountPayload(a))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountPayload(a))
}

func (s *Server) handleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.ledger.GetAccount(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	txns, err := s.ledger.ListByAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionPayloads(txns))
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req adjustBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.ledger.AdjustBalance(r.Context(), id, core.Money{Cents: req.ActualCents}, d, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.publishEvent(r.Context(), amqp.EventRecorded, t, 0)
	writeJSON(w, http.StatusCreated, toTransactionPayload(t))
}

func (s *Server) handleCloseAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req closeAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.CloseAccount(r.Context(), id, d); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Categories.

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var (
		cats []core.Category
		err  error
	)
	if r.URL.Query().Get("budgetable") == "true" {
		cats, err = s.registry.ListBudgetable(r.Context())
	} else {
		cats, err = s.registry.List(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryPayload, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryPayload(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.registry.Create(r.Context(), req.Name, core.CategoryType(req.Type))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryPayload(c))
}

func (s *Server) handleDeactivateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.registry.Deactivate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transactions.

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	if raw := strings.TrimSpace(r.URL.Query().Get("account_id")); raw != "" {
		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || accountID <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid account_id"})
			return
		}
		txns, err := s.ledger.ListByAccount(r.Context(), accountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransactionPayloads(txns))
		return
	}
	txns, err := s.ledger.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionPayloads(txns))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := s.transactionFromRequest(req, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.ledger.Record(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.publishEvent(r.Context(), amqp.EventRecorded, created, s.linkedPeriod(r, created.ID))
	writeJSON(w, http.StatusCreated, toTransactionPayload(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionPayload(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// The projected flag and status ride along unchanged from the stored row.
	existing, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.transactionFromRequest(req, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t.Projected = existing.Projected
	t.Status = existing.Status
	updated, err := s.ledger.Update(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.publishEvent(r.Context(), amqp.EventUpdated, updated, s.linkedPeriod(r, updated.ID))
	writeJSON(w, http.StatusOK, toTransactionPayload(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	periodID := s.linkedPeriod(r, id)
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.publishEvent(r.Context(), amqp.EventDeleted, t, periodID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) transactionFromRequest(req transactionRequest, id int64) (core.Transaction, error) {
	d, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      core.Money{Cents: req.AmountCents},
		Date:        d,
		Description: req.Description,
		Projected:   req.Projected,
		Transfer:    req.Transfer,
	}, nil
}

// linkedPeriod resolves the period a transaction is linked to, zero if none.
func (s *Server) linkedPeriod(r *http.Request, transactionID int64) int64 {
	link, err := s.store.GetLinkByTransaction(r.Context(), transactionID)
	if err != nil {
		return 0
	}
	return link.PeriodID
}

// Budget periods.

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.periods.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]periodPayload, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodPayload(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := core.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.periods.Create(r.Context(), req.Name, d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodPayload(p))
}

func (s *Server) handleDeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.periods.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sum, err := s.summary.Summarize(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryPayload(sum))
}

func (s *Server) handleSpentByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rows, err := s.summary.SpentByCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	type row struct {
		CategoryID int64  `json:"category_id"`
		Name       string `json:"name"`
		SpentCents int64  `json:"spent_cents"`
	}
	out := make([]row, 0, len(rows))
	for _, ca := range rows {
		out = append(out, row{CategoryID: ca.CategoryID, Name: ca.Name, SpentCents: ca.Amount.Cents})
	}
	writeJSON(w, http.StatusOK, out)
}

// Allocations.

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.periods.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	allocs, err := s.allocator.ListByPeriod(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationPayloads(allocs))
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req allocateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rows, err := s.allocator.Allocate(r.Context(), id, core.Money{Cents: req.IncomeCents}, req.toChoices())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationPayloads(rows))
}

// Maintenance.

func (s *Server) handleRelinkAll(w http.ResponseWriter, r *http.Request) {
	if err := s.linker.RelinkAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Series.

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	now := core.DateOf(time.Now())
	from, ok := queryDate(w, r, "from", now.AddDays(-30))
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to", now)
	if !ok {
		return
	}
	points, err := s.summary.SpendingSeries(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesPayload(points))
}

// Projections.

func (s *Server) handleDueProjections(w http.ResponseWriter, r *http.Request) {
	asOf, ok := queryDate(w, r, "as_of", core.DateOf(time.Now()))
	if !ok {
		return
	}
	due, err := s.projections.ListDue(r.Context(), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionPayloads(due))
}

func (s *Server) handleCompleteProjection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	real, err := s.projections.Complete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.publishEvent(r.Context(), amqp.EventRecorded, real, s.linkedPeriod(r, real.ID))
	writeJSON(w, http.StatusCreated, toTransactionPayload(real))
}

func (s *Server) handleSkipProjection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.projections.Skip(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
