package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gamezone/internal/core"
	"gamezone/internal/sheets"
)

// Journal is the local store of mutation events.
type Journal interface {
	RecordActivity(ctx context.Context, ev core.MutationEvent) (bool, error)
}

// SessionPurger drops expired server-side sessions.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// JournalWorker records mutation events from AMQP into the local journal and,
// when configured, mirrors them to the activity sheet.
type JournalWorker struct {
	journal  Journal
	appender sheets.ActivityAppender
}

// NewJournalWorker creates the worker. appender may be nil.
func NewJournalWorker(journal Journal, appender sheets.ActivityAppender) *JournalWorker {
	return &JournalWorker{journal: journal, appender: appender}
}

// HandleMutation processes a single mutation event from AMQP. A storage
// failure is returned so the message is requeued; a redelivered event is
// recognised by its id and skipped.
func (w *JournalWorker) HandleMutation(ctx context.Context, ev core.MutationEvent) error {
	slog.InfoContext(ctx, "Processing mutation event",
		"event_id", ev.ID,
		"entity", ev.Entity,
		"action", ev.Action,
		"entity_id", ev.EntityID)

	inserted, err := w.journal.RecordActivity(ctx, ev)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	if !inserted {
		slog.DebugContext(ctx, "Mutation event already journaled", "event_id", ev.ID)
		return nil
	}

	if w.appender == nil {
		return nil
	}

	// Sheets is a mirror; the journal row is the source of truth.
	ref, err := w.appender.AppendActivity(ctx, ev)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to append activity to Google Sheets",
			"event_id", ev.ID,
			"error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully mirrored activity",
		"event_id", ev.ID,
		"sheets_ref", ref)
	return nil
}

// PurgeSessions removes expired sessions once.
func PurgeSessions(ctx context.Context, purger SessionPurger) error {
	n, err := purger.PurgeExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("purge expired sessions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged expired sessions", "count", n)
	}
	return nil
}

// RunPeriodic calls fn every interval until ctx ends. Errors are logged and
// the loop continues.
func RunPeriodic(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic task failed", "task", name, "error", err)
			}
		}
	}
}
