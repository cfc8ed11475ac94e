package memory

import (
	"context"
	"fmt"
	"sync"

	"gamezone/internal/core"
	ports "gamezone/internal/sheets"
)

// Store keeps exports in memory. Used when no spreadsheet is configured and
// in tests.
type Store struct {
	mu       sync.Mutex
	reports  []ports.Report
	activity []core.MutationEvent
}

var (
	_ ports.ReportExporter   = (*Store)(nil)
	_ ports.ActivityAppender = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// ExportReport stores the report and returns a synthetic reference.
func (s *Store) ExportReport(_ context.Context, r ports.Report) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return fmt.Sprintf("mem:report:%d", len(s.reports)), nil
}

// AppendActivity stores the event; the same event id is only kept once.
func (s *Store) AppendActivity(_ context.Context, ev core.MutationEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.activity {
		if existing.ID == ev.ID {
			return fmt.Sprintf("mem:activity:%d", i+1), nil
		}
	}
	s.activity = append(s.activity, ev)
	return fmt.Sprintf("mem:activity:%d", len(s.activity)), nil
}

// Reports returns every exported report, oldest first.
func (s *Store) Reports() []ports.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Report(nil), s.reports...)
}

// Activity returns the appended events, oldest first.
func (s *Store) Activity() []core.MutationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MutationEvent(nil), s.activity...)
}
