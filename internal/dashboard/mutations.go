package dashboard

import (
	"context"
	"log/slog"
	"time"

	"gamezone/internal/core"
)

// MutationClient is the write side of the backend API.
type MutationClient interface {
	CreateSale(ctx context.Context, token string, p core.SalePayload) error
	UpdateSale(ctx context.Context, token, id string, p core.SalePayload) error
	DeleteSale(ctx context.Context, token, id string) error
	CreateExpense(ctx context.Context, token string, p core.ExpensePayload) error
	UpdateExpense(ctx context.Context, token, id string, p core.ExpensePayload) error
	DeleteExpense(ctx context.Context, token, id string) error
}

// Publisher announces accepted mutations. Publishing is best effort.
type Publisher interface {
	PublishMutation(ctx context.Context, ev core.MutationEvent) error
}

// Actor identifies who is mutating.
type Actor struct {
	SessionID string
	Token     string
	Name      string
}

// Mutations wraps the backend writes. Every accepted write publishes an
// event; the browser then reloads the dashboard, which re-fetches the batch.
type Mutations struct {
	client    MutationClient
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewMutations creates the write path. publisher may be nil.
func NewMutations(client MutationClient, publisher Publisher, logger *slog.Logger) *Mutations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutations{
		client:    client,
		publisher: publisher,
		logger:    logger.With("component", "dashboard"),
		now:       time.Now,
	}
}

func (m *Mutations) CreateSale(ctx context.Context, a Actor, p core.SalePayload) error {
	return m.apply(ctx, a, core.EntityGame, core.ActionCreate, "", func() error {
		return m.client.CreateSale(ctx, a.Token, p)
	})
}

func (m *Mutations) UpdateSale(ctx context.Context, a Actor, id string, p core.SalePayload) error {
	return m.apply(ctx, a, core.EntityGame, core.ActionUpdate, id, func() error {
		return m.client.UpdateSale(ctx, a.Token, id, p)
	})
}

func (m *Mutations) DeleteSale(ctx context.Context, a Actor, id string) error {
	return m.apply(ctx, a, core.EntityGame, core.ActionDelete, id, func() error {
		return m.client.DeleteSale(ctx, a.Token, id)
	})
}

func (m *Mutations) CreateExpense(ctx context.Context, a Actor, p core.ExpensePayload) error {
	return m.apply(ctx, a, core.EntityExpense, core.ActionCreate, "", func() error {
		return m.client.CreateExpense(ctx, a.Token, p)
	})
}

func (m *Mutations) UpdateExpense(ctx context.Context, a Actor, id string, p core.ExpensePayload) error {
	return m.apply(ctx, a, core.EntityExpense, core.ActionUpdate, id, func() error {
		return m.client.UpdateExpense(ctx, a.Token, id, p)
	})
}

func (m *Mutations) DeleteExpense(ctx context.Context, a Actor, id string) error {
	return m.apply(ctx, a, core.EntityExpense, core.ActionDelete, id, func() error {
		return m.client.DeleteExpense(ctx, a.Token, id)
	})
}

func (m *Mutations) apply(ctx context.Context, a Actor, entity string, action core.AuditAction, id string, call func() error) error {
	if err := call(); err != nil {
		return err
	}

	if m.publisher != nil {
		ev := core.NewMutationEvent(entity, action, id, a.Name, m.now())
		if err := m.publisher.PublishMutation(ctx, ev); err != nil {
			m.logger.WarnContext(ctx, "Failed to publish mutation event", "event_id", ev.ID, "error", err)
		}
	}
	return nil
}
