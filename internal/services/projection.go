package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetbee/internal/core"
	"budgetbee/internal/storage"
)

// ProjectionProcessor settles projected transactions. A pending projection
// is either completed, which writes the real ledger entry and marks the
// projection, or skipped. Both states are terminal, so a projection can
// never be counted twice.
type ProjectionProcessor struct {
	store storage.Store
}

func NewProjectionProcessor(store storage.Store) *ProjectionProcessor {
	return &ProjectionProcessor{store: store}
}

// ListDue returns the pending projections dated on or before now, oldest
// first.
func (p *ProjectionProcessor) ListDue(ctx context.Context, now core.Date) ([]core.Transaction, error) {
	txns, err := p.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	var due []core.Transaction
	for _, t := range txns {
		if t.Projected && t.Status == core.StatusPending && !t.Date.After(now.Time) {
			due = append(due, t)
		}
	}
	return due, nil
}

// Complete settles a projection: the real transaction is recorded through
// the ledger and the projection is marked completed, in one unit. Returns
// the real transaction.
func (p *ProjectionProcessor) Complete(ctx context.Context, projectionID int64) (core.Transaction, error) {
	var real core.Transaction
	err := p.store.RunInTransaction(ctx, func(s storage.Store) error {
		proj, err := p.pendingProjection(ctx, s, projectionID)
		if err != nil {
			return err
		}
		real, err = recordIn(ctx, s, core.Transaction{
			AccountID:   proj.AccountID,
			CategoryID:  proj.CategoryID,
			Amount:      proj.Amount,
			Date:        proj.Date,
			Description: proj.Description,
			Transfer:    proj.Transfer,
		})
		if err != nil {
			return err
		}
		proj.Status = core.StatusCompleted
		return s.UpdateTransaction(ctx, proj)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Projection completed",
		"projection_id", projectionID, "transaction_id", real.ID,
		"amount", real.Amount.String())
	return real, nil
}

// Skip marks a projection skipped without touching the ledger.
func (p *ProjectionProcessor) Skip(ctx context.Context, projectionID int64) error {
	err := p.store.RunInTransaction(ctx, func(s storage.Store) error {
		proj, err := p.pendingProjection(ctx, s, projectionID)
		if err != nil {
			return err
		}
		proj.Status = core.StatusSkipped
		return s.UpdateTransaction(ctx, proj)
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Projection skipped", "projection_id", projectionID)
	return nil
}

// Process completes every projection due at now. Failures are logged and
// skipped over so one bad row does not stall the rest. Returns how many
// were completed.
func (p *ProjectionProcessor) Process(ctx context.Context, now core.Date) (int, error) {
	due, err := p.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Processing due projections",
		"due", len(due), "as_of", now.ISO())

	completed := 0
	for _, proj := range due {
		if _, err := p.Complete(ctx, proj.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to complete projection",
				"projection_id", proj.ID, "error", err)
			continue
		}
		completed++
	}
	return completed, nil
}

func (p *ProjectionProcessor) pendingProjection(ctx context.Context, s storage.Store, id int64) (core.Transaction, error) {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !t.Projected {
		return core.Transaction{}, fmt.Errorf("transaction %d is not a projection: %w", id, core.ErrInvalidStatus)
	}
	if t.Status.Terminal() {
		return core.Transaction{}, fmt.Errorf("projection %d: %w", id, core.ErrProjectionSettled)
	}
	return t, nil
}
