package backend

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gamezone/internal/core"
)

// Snapshot is everything the dashboard shows for one date range. It is
// replaced wholesale on every fetch and never mutated afterwards.
type Snapshot struct {
	Range     core.DateRange
	Summary   core.FinancialSummary
	Expenses  []core.Expense
	Sales     []core.GameSale
	Audit     []core.AuditEntry
	FetchedAt time.Time
}

// FindSale returns the sale with id from the snapshot.
func (s *Snapshot) FindSale(id string) (core.GameSale, bool) {
	for _, sale := range s.Sales {
		if sale.ID == id {
			return sale, true
		}
	}
	return core.GameSale{}, false
}

// FindExpense returns the expense with id from the snapshot.
func (s *Snapshot) FindExpense(id string) (core.Expense, bool) {
	for _, e := range s.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}

// FindAudit returns the audit entry with id from the snapshot.
func (s *Snapshot) FindAudit(id string) (core.AuditEntry, bool) {
	for _, e := range s.Audit {
		if e.ID == id {
			return e, true
		}
	}
	return core.AuditEntry{}, false
}

// FetchDashboard issues the four range reads concurrently and joins them.
// The first failure cancels the others and fails the whole batch; no
// partial snapshot is ever returned.
func (c *Client) FetchDashboard(ctx context.Context, token string, r core.DateRange) (*Snapshot, error) {
	snap := &Snapshot{Range: r}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := c.FinancialSummary(gctx, token, r)
		if err != nil {
			return fmt.Errorf("financial summary: %w", err)
		}
		snap.Summary = s
		return nil
	})
	g.Go(func() error {
		e, err := c.Expenses(gctx, token, r)
		if err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		snap.Expenses = e
		return nil
	})
	g.Go(func() error {
		s, err := c.GameSales(gctx, token, r)
		if err != nil {
			return fmt.Errorf("game sales: %w", err)
		}
		snap.Sales = s
		return nil
	})
	g.Go(func() error {
		a, err := c.AuditLog(gctx, token, r)
		if err != nil {
			return fmt.Errorf("audit log: %w", err)
		}
		snap.Audit = a
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}
